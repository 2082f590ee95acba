package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gokatarajesh/tarea-editor/internal/document"
	"github.com/gokatarajesh/tarea-editor/internal/editor"
)

type openRequest struct {
	TareaID int  `json:"tarea_id" validate:"required,min=1,max=2147483647"`
	Version *int `json:"version" validate:"omitempty,min=1,max=2147483647"`
}

type commandRequest struct {
	Op     string   `json:"op" validate:"required,max=64"`
	Block  int      `json:"block" validate:"min=0"`
	Index  *int     `json:"index" validate:"omitempty,min=0"`
	End    int      `json:"end" validate:"min=0"`
	Side   string   `json:"side" validate:"omitempty,oneof=left right"`
	Text   *string  `json:"text"`
	Number *int     `json:"number"`
	Float  *float64 `json:"float" validate:"omitempty,min=0"`
	Bool   *bool    `json:"bool"`
	Key    *string  `json:"key"`
	Lines  []string `json:"lines" validate:"omitempty,max=500"`
	Tag    string   `json:"tag" validate:"omitempty,oneof=b i u mark ul ol"`
}

func (r commandRequest) command() editor.Command {
	return editor.Command{
		Op:     editor.Op(r.Op),
		Block:  r.Block,
		Index:  r.Index,
		End:    r.End,
		Side:   document.Side(r.Side),
		Text:   r.Text,
		Number: r.Number,
		Float:  r.Float,
		Bool:   r.Bool,
		Key:    r.Key,
		Lines:  r.Lines,
		Tag:    r.Tag,
	}
}

type addBlockRequest struct {
	Type string `json:"type" validate:"required"`
}

type reorderRequest struct {
	Order []int `json:"order" validate:"required,dive,min=0"`
}

type selectRequest struct {
	Index int `json:"index" validate:"min=-1"`
}

type instructionsRequest struct {
	ES string `json:"es" validate:"max=10000"`
	ZH string `json:"zh" validate:"max=10000"`
}

type rawRequest struct {
	Text string `json:"text"`
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

type watchRequest struct {
	TaskID string `json:"task_id" validate:"required,max=128"`
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is a malformed or invalid request body.
type requestError struct {
	field   string
	missing bool
	message string
}

func (e *requestError) Error() string { return e.message }

// decodeBody decodes a JSON body into dst and validates it. An empty body is allowed
// when optional is set and leaves dst untouched.
func decodeBody(r *http.Request, v *validator.Validate, dst any, optional bool) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			return &requestError{message: "Invalid JSON payload"}
		}
	}
	return validateStruct(v, dst)
}

func validateStruct(v *validator.Validate, dst any) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return &requestError{field: fe.Field(), missing: true, message: fe.Field() + " is required"}
		}
		return &requestError{
			field:   fe.Field(),
			message: fmt.Sprintf("%s failed the %q rule", fe.Field(), fe.Tag()),
		}
	}
	return &requestError{message: err.Error()}
}
