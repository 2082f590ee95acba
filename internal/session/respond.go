package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gokatarajesh/tarea-editor/internal/document"
	"github.com/gokatarajesh/tarea-editor/internal/editor"
	httperrors "github.com/gokatarajesh/tarea-editor/pkg/http/errors"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError maps session, editor and document errors onto the error envelope.
// Anything unrecognised came from the document store.
func respondError(w http.ResponseWriter, err error) {
	var (
		reqErr   *requestError
		parseErr *document.ParseError
		valErr   *document.ValidationError
	)

	switch {
	case errors.As(err, &reqErr):
		if reqErr.missing {
			httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, reqErr.message, reqErr.field)
			return
		}
		if reqErr.field != "" {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, reqErr.message, reqErr.field)
			return
		}
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, reqErr.message)
	case errors.As(err, &parseErr):
		httperrors.RespondUnprocessable(w, httperrors.ErrCodeParseFailed, parseErr.Error(), map[string]interface{}{
			"index": parseErr.Index,
		})
	case errors.As(err, &valErr):
		httperrors.RespondUnprocessable(w, httperrors.ErrCodeValidationFailed, valErr.Message, map[string]interface{}{
			"index": valErr.Index,
			"type":  valErr.Type,
			"rule":  valErr.Rule,
		})
	case errors.Is(err, ErrSessionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Editor session not found")
	case errors.Is(err, ErrForbidden):
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Editor session belongs to another operator")
	case errors.Is(err, editor.ErrAuthExpired):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeTokenExpired, "Session expired, sign in again")
	case errors.Is(err, editor.ErrClosed):
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionClosed, err.Error())
	case errors.Is(err, editor.ErrUnsavedChanges):
		httperrors.RespondConflict(w, httperrors.ErrCodeUnsavedChanges, "There are unsaved changes; resend with confirm to discard them")
	case errors.Is(err, editor.ErrWrongMode):
		httperrors.RespondConflict(w, httperrors.ErrCodeWrongMode, err.Error())
	case errors.Is(err, editor.ErrBlockIndex):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeBlockIndex, err.Error())
	case errors.Is(err, editor.ErrWrongBlockType):
		httperrors.RespondUnprocessable(w, httperrors.ErrCodeWrongBlockType, err.Error(), nil)
	case errors.Is(err, editor.ErrInvalidCommand):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidCommand, err.Error())
	case errors.Is(err, editor.ErrInvalidPermutation):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidPermutation, err.Error())
	case errors.Is(err, editor.ErrInvalidVersion):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidVersion, err.Error())
	case errors.Is(err, document.ErrUnknownBlockType):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownBlockType, err.Error())
	case errors.Is(err, editor.ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeInvalidVersion, err.Error())
	default:
		httperrors.RespondBadGateway(w, err.Error())
	}
}
