package course

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

const payloadField = "type_payload"

// Payload is the type-specific part of an Activity. Each ActivityType has exactly one variant.
type Payload interface {
	ActivityType() ActivityType
}

type (
	PagePayload struct {
		Content string `json:"content" validate:"required,notblank"`
	}

	LinkPayload struct {
		URL string `json:"url" validate:"required,url,max=2048"`
	}

	FilePayload struct {
		FileName string `json:"file_name" validate:"required,notblank,max=255"`
		FileURL  string `json:"file_url" validate:"required,url,max=2048"`
	}

	AssignmentPayload struct {
		DueDate    time.Time `json:"due_date" validate:"required"`
		CutoffDate time.Time `json:"cutoff_date" validate:"required,gtefield=DueDate"`
		MaxGrade   float64   `json:"max_grade" validate:"required,gt=0"`
	}

	QuizPayload struct {
		MaxGrade float64 `json:"max_grade" validate:"required,gt=0"`
	}

	LabelPayload struct{}
)

func (PagePayload) ActivityType() ActivityType       { return TypePage }
func (LinkPayload) ActivityType() ActivityType       { return TypeLink }
func (FilePayload) ActivityType() ActivityType       { return TypeFile }
func (AssignmentPayload) ActivityType() ActivityType { return TypeAssignment }
func (QuizPayload) ActivityType() ActivityType       { return TypeQuiz }
func (LabelPayload) ActivityType() ActivityType      { return TypeLabel }

// newPayload returns a pointer to the zero variant for t, or nil if t is unknown.
func newPayload(t ActivityType) Payload {
	switch t {
	case TypePage:
		return &PagePayload{}
	case TypeLink:
		return &LinkPayload{}
	case TypeFile:
		return &FilePayload{}
	case TypeAssignment:
		return &AssignmentPayload{}
	case TypeQuiz:
		return &QuizPayload{}
	case TypeLabel:
		return &LabelPayload{}
	}
	return nil
}

// deref turns the *Variant produced by newPayload into the Variant value stored on Activity.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *PagePayload:
		return *v
	case *LinkPayload:
		return *v
	case *FilePayload:
		return *v
	case *AssignmentPayload:
		return *v
	case *QuizPayload:
		return *v
	case *LabelPayload:
		return *v
	}
	return p
}

// DecodePayload strictly decodes raw into the variant for t: unknown fields, type mismatches
// and trailing data are reported as a *core.ValidationError. Required fields are not checked here.
func DecodePayload(t ActivityType, raw json.RawMessage) (Payload, error) {
	p := newPayload(t)
	if p == nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "type", Error: "unknown activity type"})
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, payloadDecodeError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, core.NewValidationError(nil, core.FieldError{Field: payloadField, Error: "unexpected data after payload object"})
	}
	return deref(p), nil
}

func payloadDecodeError(err error) error {
	switch e := err.(type) {
	case *json.UnmarshalTypeError:
		if e.Field == "" {
			break
		}
		return core.NewValidationError(nil, core.FieldError{Field: payloadField + "." + e.Field, Error: "expected " + e.Type.String()})
	case *json.SyntaxError:
		return core.NewValidationError(nil, core.FieldError{Field: payloadField, Error: "malformed JSON"})
	case *time.ParseError:
		return core.NewValidationError(nil, core.FieldError{Field: payloadField, Error: "dates must be RFC3339"})
	}

	// encoding/json has no typed error for unknown fields
	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		name, uErr := strconv.Unquote(strings.TrimPrefix(msg, unknownPrefix))
		if uErr != nil {
			name = strings.TrimPrefix(msg, unknownPrefix)
		}
		return core.NewValidationError(nil, core.FieldError{Field: payloadField + "." + name, Error: "unknown field for this activity type"})
	}
	if err == io.EOF || errors.Cause(err) == io.ErrUnexpectedEOF {
		return core.NewValidationError(nil, core.FieldError{Field: payloadField, Error: "malformed JSON"})
	}
	return core.NewValidationError(nil, core.FieldError{Field: payloadField, Error: "payload must be a JSON object"})
}

// EncodePayload marshals p for storage.
func EncodePayload(p Payload) (json.RawMessage, error) {
	if p == nil {
		return json.RawMessage("{}"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "encoding activity payload")
	}
	return data, nil
}
