package testutil

import (
	"context"
	"encoding/json"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
)

// Outline bundles an in-memory content store with a Service on top of it.
type Outline struct {
	DB        *inmemdb.DB
	Repo      course.Repository
	Snapshots *course.MemorySnapshotStore
	Svc       *course.Service
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate, translator
}

func NewOutline(t *testing.T) Outline {
	t.Helper()
	db := inmemdb.Open()
	repo := inmemdb.NewCourseRepository(db)
	snapshots := course.NewMemorySnapshotStore()
	validate, translator := NewValidator()
	return Outline{
		DB:        db,
		Repo:      repo,
		Snapshots: snapshots,
		Svc:       course.NewService(repo, snapshots, validate, translator, core.NopLogger{}),
	}
}

func CreateCourse(t *testing.T, svc *course.Service, name string) course.Course {
	t.Helper()
	crs, err := svc.CreateCourse(context.Background(), course.NewCourse{Name: name})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateSection(t *testing.T, svc *course.Service, courseID, name string) string {
	t.Helper()
	id, err := svc.CreateSection(context.Background(), courseID, course.NewSection{Name: name})
	if err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}
	return id
}

// CreateActivity creates an activity; payload is marshalled to JSON (nil for none).
func CreateActivity(
	t *testing.T,
	svc *course.Service,
	courseID, sectionID string,
	typ course.ActivityType,
	title string,
	payload interface{},
) string {
	t.Helper()
	na := course.NewActivity{Type: typ, Title: title, Payload: MarshalPayload(t, payload)}
	id, err := svc.CreateActivity(context.Background(), courseID, sectionID, na)
	if err != nil {
		t.Fatalf("CreateActivity() failed: %v", err)
	}
	return id
}

func MarshalPayload(t *testing.T, payload interface{}) json.RawMessage {
	t.Helper()
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("MarshalPayload() failed: %v", err)
	}
	return data
}

func Tree(t *testing.T, svc *course.Service, courseID string) *course.Tree {
	t.Helper()
	tree, err := svc.Tree(context.Background(), courseID)
	if err != nil {
		t.Fatalf("Tree() failed: %v", err)
	}
	return tree
}
