package gateway

import (
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	internalErrorMessage = "internal error, the outline was left unchanged"
	staleSnapshotMessage = "internal error, the change was saved but the outline may be stale; refresh the tree before retrying"
)

type (
	TreeResponse struct {
		Status   string               `json:"status"`
		CourseID string               `json:"course_id"`
		Sections []course.SectionNode `json:"sections"`
	}

	SectionCreated struct {
		Status    string `json:"status"`
		SectionID string `json:"section_id"`
	}

	ActivityCreated struct {
		Status     string `json:"status"`
		ActivityID string `json:"activity_id"`
	}

	Empty struct {
		Status string `json:"status"`
	}

	ErrorResponse struct {
		Status  string            `json:"status"`
		Kind    string            `json:"kind"`
		Message string            `json:"message"`
		Fields  []core.FieldError `json:"fields,omitempty"`
		// Resource and ID name the missing or busy object.
		Resource string `json:"resource,omitempty"`
		ID       string `json:"id,omitempty"`
	}
)

func newTreeResponse(tree *course.Tree) TreeResponse {
	return TreeResponse{Status: StatusSuccess, CourseID: tree.CourseID, Sections: tree.Sections}
}

// NewErrorResponse renders err as the error envelope; internal details are never exposed.
func NewErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Status: StatusError, Kind: core.ErrorKind(err)}
	switch e := errors.Cause(err).(type) {
	case *core.ValidationError:
		resp.Message = e.Error()
		resp.Fields = e.Fields
	case *core.NotFoundError:
		resp.Message = e.Error()
		resp.Resource, resp.ID = e.Kind, e.ID
	case *core.ConflictError:
		resp.Message = e.Error()
		resp.Resource, resp.ID = e.Resource, e.ID
	default:
		if e == course.ErrStaleSnapshot {
			resp.Message = staleSnapshotMessage
		} else {
			resp.Message = internalErrorMessage
		}
	}
	return resp
}
