package course

import (
	"encoding/json"
	"time"

	"github.com/trezcool/masomo/core"
)

// Kinds used in NotFoundError & tombstones
const (
	KindCourse   = "course"
	KindSection  = "section"
	KindActivity = "activity"
)

// Activity types
const (
	TypePage       ActivityType = "page"
	TypeLink       ActivityType = "link"
	TypeFile       ActivityType = "file"
	TypeAssignment ActivityType = "assignment"
	TypeQuiz       ActivityType = "quiz"
	TypeLabel      ActivityType = "label"
)

var ActivityTypes = []ActivityType{TypePage, TypeLink, TypeFile, TypeAssignment, TypeQuiz, TypeLabel}

type ActivityType string

func (t ActivityType) IsValid() bool {
	for _, at := range ActivityTypes {
		if t == at {
			return true
		}
	}
	return false
}

// Course is owned by an external collaborator; this package only reads it.
type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Section struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Position  int       `json:"position"`
	Name      string    `json:"name"`
	Sequence  []string  `json:"sequence"`   // ordered Activity IDs
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Activity struct {
	ID          string       `json:"id"`
	CourseID    string       `json:"course_id"`
	SectionID   string       `json:"section_id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Payload     Payload      `json:"type_payload"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
	UpdatedAt   time.Time    `json:"updated_at"` // UTC
}

// Tombstone remembers a deleted Section or Activity so that repeated deletes are no-ops.
type Tombstone struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CourseID  string    `json:"course_id"`
	DeletedAt time.Time `json:"deleted_at"` // UTC
}

// IdempotencyRecord ties a client-supplied key to the object its first create produced.
type IdempotencyRecord struct {
	Key       string    `json:"key"`
	CourseID  string    `json:"course_id"`
	Op        string    `json:"op"`
	ResultID  string    `json:"result_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to register a Course (admin tooling only).
type NewCourse struct {
	Name string `json:"name" validate:"required,notblank,max=255"`
}

func (nc *NewCourse) Clean() {
	nc.Name = core.CleanString(nc.Name)
}

// NewSection contains information needed to append a Section to a Course.
type NewSection struct {
	Name           string `json:"name" validate:"required,notblank,max=255"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=128"`
}

func (ns *NewSection) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.IdempotencyKey = core.CleanString(ns.IdempotencyKey)
}

// NewActivity contains information needed to append an Activity to a Section.
// Payload is decoded against Type during validation.
type NewActivity struct {
	Type           ActivityType    `json:"type" validate:"required,activitytype"`
	Title          string          `json:"title" validate:"required,notblank,max=255"`
	Description    string          `json:"description"`
	Payload        json.RawMessage `json:"type_payload"`
	IdempotencyKey string          `json:"idempotency_key" validate:"omitempty,max=128"`
}

func (na *NewActivity) Clean() {
	na.Type = ActivityType(core.CleanString(string(na.Type), true /* lower */))
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.IdempotencyKey = core.CleanString(na.IdempotencyKey)
}

// UpdateActivity defines what information may be provided to modify an existing Activity.
// nil fields are left untouched; the type itself can never change.
type UpdateActivity struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Payload     json.RawMessage `json:"type_payload"`
}

func (ua *UpdateActivity) Clean() {
	ua.Title = core.CleanStringPtr(ua.Title)
	ua.Description = core.CleanStringPtr(ua.Description)
}

func (ua UpdateActivity) IsEmpty() bool {
	return ua.Title == nil && ua.Description == nil && len(ua.Payload) == 0
}
