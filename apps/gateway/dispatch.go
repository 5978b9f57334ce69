package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
)

// Ops of the outline JSON contract.
const (
	OpListTree       = "list_tree"
	OpCreateSection  = course.OpCreateSection
	OpRenameSection  = "rename_section"
	OpDeleteSection  = "delete_section"
	OpCreateActivity = course.OpCreateActivity
	OpRenameActivity = "rename_activity"
	OpUpdateActivity = "update_activity"
	OpDeleteActivity = "delete_activity"
)

var Ops = []string{
	OpListTree,
	OpCreateSection, OpRenameSection, OpDeleteSection,
	OpCreateActivity, OpRenameActivity, OpUpdateActivity, OpDeleteActivity,
}

type (
	opRequest struct {
		Op string `json:"op"`
	}

	ListTreeRequest struct {
		opRequest
		CourseID string `json:"course_id"`
	}

	CreateSectionRequest struct {
		opRequest
		CourseID string `json:"course_id"`
		course.NewSection
	}

	RenameSectionRequest struct {
		opRequest
		SectionID string `json:"section_id"`
		Name      string `json:"name"`
	}

	DeleteSectionRequest struct {
		opRequest
		SectionID string `json:"section_id"`
	}

	CreateActivityRequest struct {
		opRequest
		SectionID string `json:"section_id"`
		course.NewActivity
	}

	RenameActivityRequest struct {
		opRequest
		ActivityID string `json:"activity_id"`
		Title      string `json:"title"`
	}

	UpdateActivityRequest struct {
		opRequest
		ActivityID string `json:"activity_id"`
		course.UpdateActivity
	}

	DeleteActivityRequest struct {
		opRequest
		ActivityID string `json:"activity_id"`
	}
)

// Dispatch decodes an op-style request ({"op": ..., fields...}) and runs it.
// The returned value is the success envelope; errors are typed (see NewErrorResponse).
func (gw *Gateway) Dispatch(ctx context.Context, body []byte) (interface{}, error) {
	var head opRequest
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "body", Error: "request must be a JSON object"})
	}

	switch head.Op {
	case OpListTree:
		var req ListTreeRequest
		if err := Decode(body, &req); err != nil {
			return nil, err
		}
		return gw.ListTree(ctx, req.CourseID)
	case OpCreateSection:
		var req CreateSectionRequest
		if err := Decode(body, &req); err != nil {
			return nil, err
		}
		return gw.CreateSection(ctx, req.CourseID, req.NewSection)
	case OpRenameSection:
		var req RenameSectionRequest
		if err := Decode(body, &req); err != nil {
			return nil, err
		}
		return gw.RenameSection(ctx, req.SectionID, req.Name)
	case OpDeleteSection:
		var req DeleteSectionRequest
		if err := Decode(body, &req); err != nil {
			return nil, err
		}
		return gw.DeleteSection(ctx, req.SectionID)
	case OpCreateActivity:
		var req CreateActivityRequest
		if err := Decode(body, &req); err != nil {
			return nil, err
		}
		return gw.CreateActivity(ctx, req.SectionID, req.NewActivity)
	case OpRenameActivity:
		var req RenameActivityRequest
		if err := Decode(body, &req); err != nil {
			return nil, err
		}
		return gw.RenameActivity(ctx, req.ActivityID, req.Title)
	case OpUpdateActivity:
		var req UpdateActivityRequest
		if err := Decode(body, &req); err != nil {
			return nil, err
		}
		return gw.UpdateActivity(ctx, req.ActivityID, req.UpdateActivity)
	case OpDeleteActivity:
		var req DeleteActivityRequest
		if err := Decode(body, &req); err != nil {
			return nil, err
		}
		return gw.DeleteActivity(ctx, req.ActivityID)
	case "":
		return nil, core.NewValidationError(nil, core.FieldError{Field: "op", Error: "this field is required"})
	default:
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "op", Error: "must be one of: " + strings.Join(Ops, ", "),
		})
	}
}

// Decode strictly decodes a JSON request body into v; any decoding failure is a *core.ValidationError.
func Decode(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return decodeError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return core.NewValidationError(nil, core.FieldError{Field: "body", Error: "unexpected data after request object"})
	}
	return nil
}

func decodeError(err error) error {
	if e, ok := err.(*json.UnmarshalTypeError); ok && e.Field != "" {
		return core.NewValidationError(nil, core.FieldError{Field: e.Field, Error: "expected " + e.Type.String()})
	}
	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		name, uErr := strconv.Unquote(strings.TrimPrefix(msg, unknownPrefix))
		if uErr != nil {
			name = strings.TrimPrefix(msg, unknownPrefix)
		}
		return core.NewValidationError(nil, core.FieldError{Field: name, Error: "unknown field"})
	}
	return core.NewValidationError(nil, core.FieldError{Field: "body", Error: "request must be a JSON object"})
}
