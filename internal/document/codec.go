package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ParseError describes why raw text could not be turned into a Document.
// Index is the zero-based question index, or -1 when the failure is outside any block.
type ParseError struct {
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("question %d: %v", e.Index+1, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Marshal renders the document in its raw-mode text form.
func Marshal(d Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Parse reads raw-mode text. Members outside the schema are rejected so that an
// operator never loses a field silently. On failure the returned error is a *ParseError.
func Parse(data []byte) (Document, error) {
	return decodeDocument(data, true)
}

// Decode reads a stored document, ignoring members outside the schema. Errors are
// *ParseError as with Parse.
func Decode(data []byte) (Document, error) {
	return decodeDocument(data, false)
}

func decodeDocument(data []byte, strict bool) (Document, error) {
	var d Document
	if err := d.decode(data, strict); err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return Document{}, perr
		}
		return Document{}, &ParseError{Index: -1, Err: err}
	}
	return d, nil
}

// MarshalJSON emits an empty array rather than null for a document without questions.
func (d Document) MarshalJSON() ([]byte, error) {
	questions := d.Questions
	if questions == nil {
		questions = []Block{}
	}
	return json.Marshal(struct {
		Version      int          `json:"version"`
		Instructions Instructions `json:"instructions"`
		Questions    []Block      `json:"questions"`
	}{d.Version, d.Instructions, questions})
}

// UnmarshalJSON decodes the envelope and dispatches every question on its type tag.
func (d *Document) UnmarshalJSON(data []byte) error {
	return d.decode(data, false)
}

func (d *Document) decode(data []byte, strict bool) error {
	var envelope struct {
		Version      int               `json:"version"`
		Instructions *Instructions     `json:"instructions"`
		Questions    []json.RawMessage `json:"questions"`
	}
	if err := decodeObject(data, &envelope, strict); err != nil {
		return &ParseError{Index: -1, Err: err}
	}

	out := Document{
		Version:   envelope.Version,
		Questions: make([]Block, 0, len(envelope.Questions)),
	}
	if envelope.Instructions != nil {
		out.Instructions = *envelope.Instructions
	}
	for i, raw := range envelope.Questions {
		b, err := decodeBlock(raw, strict)
		if err != nil {
			return &ParseError{Index: i, Err: err}
		}
		out.Questions = append(out.Questions, b)
	}
	*d = out
	return nil
}

// decodeObject decodes a single JSON value into v. In strict mode unknown members fail.
func decodeObject(data []byte, v any, strict bool) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after the document")
	}
	return nil
}

func decodeBlock(raw json.RawMessage, strict bool) (Block, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, errors.New("question must be an object")
	}
	var tagged struct {
		Type BlockType `json:"type"`
	}
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, err
	}

	var b Block
	switch tagged.Type {
	case TypeSingleChoice, legacyTypeSingleChoice:
		b = &SingleChoice{}
	case TypeMatrixSingleChoice:
		b = &MatrixSingleChoice{}
	case TypePersonStatementMatching:
		b = &PersonStatementMatching{}
	case TypeMatching:
		b = &Matching{}
	case TypeOrdering:
		b = &Ordering{}
	case TypeFillInBlank:
		b = &FillInBlank{}
	case TypeTrueFalse:
		b = &TrueFalse{}
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrUnknownBlockType)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, tagged.Type)
	}

	if err := unmarshalVariant(raw, b, strict); err != nil {
		return nil, err
	}
	return b, nil
}

// unmarshalVariant decodes through method-less aliases wrapped next to the "type"
// member, so that strict decoding accepts the tag and nothing else outside the schema.
func unmarshalVariant(raw json.RawMessage, b Block, strict bool) error {
	switch v := b.(type) {
	case *SingleChoice:
		type plain SingleChoice
		var w struct {
			Type BlockType `json:"type"`
			plain
		}
		if err := decodeObject(raw, &w, strict); err != nil {
			return err
		}
		*v = SingleChoice(w.plain)
	case *MatrixSingleChoice:
		type plain MatrixSingleChoice
		var w struct {
			Type BlockType `json:"type"`
			plain
		}
		if err := decodeObject(raw, &w, strict); err != nil {
			return err
		}
		*v = MatrixSingleChoice(w.plain)
	case *PersonStatementMatching:
		type plain PersonStatementMatching
		var w struct {
			Type BlockType `json:"type"`
			plain
		}
		if err := decodeObject(raw, &w, strict); err != nil {
			return err
		}
		*v = PersonStatementMatching(w.plain)
	case *Matching:
		type plain Matching
		var w struct {
			Type BlockType `json:"type"`
			plain
		}
		if err := decodeObject(raw, &w, strict); err != nil {
			return err
		}
		*v = Matching(w.plain)
	case *Ordering:
		type plain Ordering
		var w struct {
			Type BlockType `json:"type"`
			plain
		}
		if err := decodeObject(raw, &w, strict); err != nil {
			return err
		}
		*v = Ordering(w.plain)
	case *FillInBlank:
		type plain FillInBlank
		var w struct {
			Type BlockType `json:"type"`
			plain
		}
		if err := decodeObject(raw, &w, strict); err != nil {
			return err
		}
		*v = FillInBlank(w.plain)
	case *TrueFalse:
		type plain TrueFalse
		var w struct {
			Type BlockType `json:"type"`
			plain
		}
		if err := decodeObject(raw, &w, strict); err != nil {
			return err
		}
		*v = TrueFalse(w.plain)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownBlockType, b)
	}
	return nil
}

func marshalTagged(t BlockType, fields any) ([]byte, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	// body is a JSON object; splice "type" in as its first member.
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func (b *SingleChoice) MarshalJSON() ([]byte, error) {
	type plain SingleChoice
	return marshalTagged(b.Type(), (*plain)(b))
}

func (b *MatrixSingleChoice) MarshalJSON() ([]byte, error) {
	type plain MatrixSingleChoice
	return marshalTagged(b.Type(), (*plain)(b))
}

func (b *PersonStatementMatching) MarshalJSON() ([]byte, error) {
	type plain PersonStatementMatching
	return marshalTagged(b.Type(), (*plain)(b))
}

func (b *Matching) MarshalJSON() ([]byte, error) {
	type plain Matching
	return marshalTagged(b.Type(), (*plain)(b))
}

func (b *Ordering) MarshalJSON() ([]byte, error) {
	type plain Ordering
	return marshalTagged(b.Type(), (*plain)(b))
}

func (b *FillInBlank) MarshalJSON() ([]byte, error) {
	type plain FillInBlank
	return marshalTagged(b.Type(), (*plain)(b))
}

func (b *TrueFalse) MarshalJSON() ([]byte, error) {
	type plain TrueFalse
	return marshalTagged(b.Type(), (*plain)(b))
}
