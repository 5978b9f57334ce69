package course

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

// ops recorded with idempotency keys
const (
	OpCreateSection  = "create_section"
	OpCreateActivity = "create_activity"
)

// errNoChange aborts a mutation that turned out to be a no-op (replayed create, repeated delete).
var errNoChange = errors.New("no change")

// Service is the HierarchyService. All operations are scoped to one course.
//
// Mutations are not serialized here: callers (the request gateway, the admin CLI) must hold the
// course's exclusion token for the duration of each mutating call.
type Service struct {
	repo    Repository
	cache   *TreeCache
	chk     checker
	logger  core.Logger
	nowFunc func() time.Time
}

func NewService(
	repo Repository,
	snapshots SnapshotStore,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) *Service {
	return &Service{
		repo:    repo,
		cache:   NewTreeCache(repo, snapshots, logger),
		chk:     checker{validate: validate, translator: translator},
		logger:  logger,
		nowFunc: time.Now,
	}
}

func (svc *Service) now() time.Time {
	return svc.nowFunc().UTC()
}

// mutate runs fn in a transaction, rebuilds the course's tree from the transaction's own view and
// publishes it once committed. Nothing is written or published when fn (or the rebuild) fails.
func (svc *Service) mutate(ctx context.Context, courseID string, fn func(tx Tx) error) error {
	var tree *Tree
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		if _, err := tx.GetCourse(ctx, courseID); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		var err error
		if tree, err = loadTree(ctx, tx, courseID); err != nil {
			return errors.Wrap(err, "rebuilding outline")
		}
		return nil
	})
	switch {
	case errors.Cause(err) == errNoChange:
		return nil
	case err != nil:
		return err
	}
	return svc.cache.swap(ctx, tree)
}

// Courses

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	nc.Clean()
	if err := svc.chk.check(nc); err != nil {
		return Course{}, err
	}
	var crs Course
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		var err error
		crs, err = tx.CreateCourse(ctx, Course{Name: nc.Name, CreatedAt: svc.now()})
		return err
	})
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (svc *Service) QueryCourses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

// Tree returns the course's outline snapshot (list_tree).
func (svc *Service) Tree(ctx context.Context, courseID string) (*Tree, error) {
	return svc.cache.Get(ctx, courseID)
}

// ResolveCourse returns the course owning the section or activity id, including deleted ones.
func (svc *Service) ResolveCourse(ctx context.Context, kind, id string) (string, error) {
	var (
		courseID string
		err      error
	)
	switch kind {
	case KindSection:
		var sec Section
		if sec, err = svc.repo.GetSection(ctx, id); err == nil {
			courseID = sec.CourseID
		}
	case KindActivity:
		var act Activity
		if act, err = svc.repo.GetActivity(ctx, id); err == nil {
			courseID = act.CourseID
		}
	default:
		return "", errors.Errorf("cannot resolve course of a %q", kind)
	}
	if err == nil {
		return courseID, nil
	}
	if !core.IsNotFound(err) {
		return "", err
	}
	if ts, tErr := svc.repo.GetTombstone(ctx, id); tErr == nil && ts.Kind == kind {
		return ts.CourseID, nil
	}
	return "", core.NewNotFoundError(kind, id)
}

// Sections

// CreateSection appends a new section at the next position.
func (svc *Service) CreateSection(ctx context.Context, courseID string, ns NewSection) (string, error) {
	if err := svc.chk.newSection(&ns); err != nil {
		return "", err
	}

	var id string
	err := svc.mutate(ctx, courseID, func(tx Tx) error {
		if replayed, err := svc.replay(ctx, tx, courseID, ns.IdempotencyKey, OpCreateSection, &id); err != nil || replayed {
			return err
		}

		sections, err := tx.QuerySections(ctx, courseID)
		if err != nil {
			return errors.Wrap(err, "querying sections")
		}
		now := svc.now()
		sec, err := tx.CreateSection(ctx, Section{
			CourseID:  courseID,
			Position:  len(sections),
			Name:      ns.Name,
			Sequence:  []string{},
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return errors.Wrap(err, "inserting section")
		}
		id = sec.ID
		return svc.remember(ctx, tx, courseID, ns.IdempotencyKey, OpCreateSection, id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (svc *Service) RenameSection(ctx context.Context, courseID, sectionID, name string) error {
	name, err := svc.chk.name("name", name)
	if err != nil {
		return err
	}
	return svc.mutate(ctx, courseID, func(tx Tx) error {
		sec, err := getSection(ctx, tx, courseID, sectionID)
		if err != nil {
			return err
		}
		if sec.Name == name {
			return errNoChange
		}
		sec.Name = name
		sec.UpdatedAt = svc.now()
		return errors.Wrap(tx.UpdateSection(ctx, sec), "updating section")
	})
}

// DeleteSection deletes the section with all its activities, then compacts the remaining positions.
// Deleting an already deleted section is a no-op.
func (svc *Service) DeleteSection(ctx context.Context, courseID, sectionID string) error {
	return svc.mutate(ctx, courseID, func(tx Tx) error {
		sec, err := getSection(ctx, tx, courseID, sectionID)
		if err != nil {
			return tombstoned(ctx, tx, courseID, KindSection, sectionID, err)
		}

		activities, err := tx.QueryActivities(ctx, courseID)
		if err != nil {
			return errors.Wrap(err, "querying activities")
		}
		now := svc.now()
		owned := make([]string, 0, len(sec.Sequence))
		tombstones := make([]Tombstone, 0, len(sec.Sequence)+1)
		for _, act := range activities {
			if act.SectionID == sec.ID {
				owned = append(owned, act.ID)
				tombstones = append(tombstones, Tombstone{ID: act.ID, Kind: KindActivity, CourseID: courseID, DeletedAt: now})
			}
		}
		tombstones = append(tombstones, Tombstone{ID: sec.ID, Kind: KindSection, CourseID: courseID, DeletedAt: now})

		if len(owned) > 0 {
			if err = tx.DeleteActivities(ctx, owned...); err != nil {
				return errors.Wrap(err, "deleting section activities")
			}
		}
		if err = tx.DeleteSection(ctx, sec.ID); err != nil {
			return errors.Wrap(err, "deleting section")
		}
		if err = svc.compact(ctx, tx, courseID); err != nil {
			return err
		}
		return errors.Wrap(tx.CreateTombstones(ctx, tombstones...), "recording tombstones")
	})
}

// compact renumbers the course's sections to 0..N-1, keeping their relative order.
func (svc *Service) compact(ctx context.Context, tx Tx, courseID string) error {
	sections, err := tx.QuerySections(ctx, courseID)
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	now := svc.now()
	for i, sec := range sections {
		if sec.Position == i {
			continue
		}
		sec.Position = i
		sec.UpdatedAt = now
		if err = tx.UpdateSection(ctx, sec); err != nil {
			return errors.Wrap(err, "compacting section positions")
		}
	}
	return nil
}

// Activities

// CreateActivity appends a new activity at the end of the section's sequence.
func (svc *Service) CreateActivity(ctx context.Context, courseID, sectionID string, na NewActivity) (string, error) {
	payload, err := svc.chk.newActivity(&na)
	if err != nil {
		return "", err
	}

	var id string
	err = svc.mutate(ctx, courseID, func(tx Tx) error {
		if replayed, err := svc.replay(ctx, tx, courseID, na.IdempotencyKey, OpCreateActivity, &id); err != nil || replayed {
			return err
		}

		sec, err := getSection(ctx, tx, courseID, sectionID)
		if err != nil {
			return err
		}
		now := svc.now()
		act, err := tx.CreateActivity(ctx, Activity{
			CourseID:    courseID,
			SectionID:   sec.ID,
			Type:        na.Type,
			Title:       na.Title,
			Description: na.Description,
			Payload:     payload,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return errors.Wrap(err, "inserting activity")
		}
		if _, err = NewSequenceIndex(tx).Append(ctx, sec.ID, act.ID); err != nil {
			return err
		}
		id = act.ID
		return svc.remember(ctx, tx, courseID, na.IdempotencyKey, OpCreateActivity, id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (svc *Service) RenameActivity(ctx context.Context, courseID, activityID, title string) error {
	title, err := svc.chk.name("title", title)
	if err != nil {
		return err
	}
	return svc.UpdateActivity(ctx, courseID, activityID, UpdateActivity{Title: &title})
}

// UpdateActivity applies a partial edit. The payload, when given, must match the activity's type.
func (svc *Service) UpdateActivity(ctx context.Context, courseID, activityID string, ua UpdateActivity) error {
	return svc.mutate(ctx, courseID, func(tx Tx) error {
		act, err := getActivity(ctx, tx, courseID, activityID)
		if err != nil {
			return err
		}
		payload, err := svc.chk.updateActivity(act.Type, &ua)
		if err != nil {
			return err
		}

		if ua.Title != nil {
			act.Title = *ua.Title
		}
		if ua.Description != nil {
			act.Description = *ua.Description
		}
		if payload != nil {
			act.Payload = payload
		}
		act.UpdatedAt = svc.now()
		return errors.Wrap(tx.UpdateActivity(ctx, act), "updating activity")
	})
}

// DeleteActivity removes the activity from its section's sequence and deletes it.
// Deleting an already deleted activity is a no-op.
func (svc *Service) DeleteActivity(ctx context.Context, courseID, activityID string) error {
	return svc.mutate(ctx, courseID, func(tx Tx) error {
		act, err := getActivity(ctx, tx, courseID, activityID)
		if err != nil {
			return tombstoned(ctx, tx, courseID, KindActivity, activityID, err)
		}
		if _, err = NewSequenceIndex(tx).Remove(ctx, act.SectionID, act.ID); err != nil {
			return err
		}
		if err = tx.DeleteActivities(ctx, act.ID); err != nil {
			return errors.Wrap(err, "deleting activity")
		}
		return errors.Wrap(
			tx.CreateTombstones(ctx, Tombstone{ID: act.ID, Kind: KindActivity, CourseID: courseID, DeletedAt: svc.now()}),
			"recording tombstone",
		)
	})
}

// Maintenance

// Verify reports every invariant violation found in the stored rows of the course.
func (svc *Service) Verify(ctx context.Context, courseID string) ([]Violation, error) {
	var violations []Violation
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		if _, err := tx.GetCourse(ctx, courseID); err != nil {
			return err
		}
		sections, err := tx.QuerySections(ctx, courseID)
		if err != nil {
			return errors.Wrap(err, "querying sections")
		}
		activities, err := tx.QueryActivities(ctx, courseID)
		if err != nil {
			return errors.Wrap(err, "querying activities")
		}
		violations = CheckInvariants(sections, activities)
		return nil
	})
	return violations, err
}

// RebuildCache rebuilds the course's snapshot from the store and swaps it in.
// Callers must hold the course's exclusion token.
func (svc *Service) RebuildCache(ctx context.Context, courseID string) (*Tree, error) {
	var tree *Tree
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		var err error
		tree, err = loadTree(ctx, tx, courseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err = svc.cache.swap(ctx, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// helpers

func getSection(ctx context.Context, tx Tx, courseID, id string) (Section, error) {
	sec, err := tx.GetSection(ctx, id)
	if err != nil {
		return Section{}, err
	}
	if sec.CourseID != courseID {
		return Section{}, core.NewNotFoundError(KindSection, id)
	}
	return sec, nil
}

func getActivity(ctx context.Context, tx Tx, courseID, id string) (Activity, error) {
	act, err := tx.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if act.CourseID != courseID {
		return Activity{}, core.NewNotFoundError(KindActivity, id)
	}
	return act, nil
}

// tombstoned turns a NotFoundError on a previously deleted object of this course into errNoChange.
func tombstoned(ctx context.Context, tx Tx, courseID, kind, id string, err error) error {
	if !core.IsNotFound(err) {
		return err
	}
	ts, tErr := tx.GetTombstone(ctx, id)
	if tErr != nil {
		if core.IsNotFound(tErr) {
			return err
		}
		return errors.Wrap(tErr, "looking up tombstone")
	}
	if ts.Kind == kind && ts.CourseID == courseID {
		return errNoChange
	}
	return err
}

// replay looks the idempotency key up; when found, *id is set to the original result.
func (svc *Service) replay(ctx context.Context, tx Tx, courseID, key, op string, id *string) (bool, error) {
	if key == "" {
		return false, nil
	}
	rec, err := tx.GetIdempotencyRecord(ctx, courseID, key)
	if err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "looking up idempotency key")
	}
	if rec.Op != op {
		return false, core.NewValidationError(nil, core.FieldError{
			Field: "idempotency_key", Error: "key already used for " + rec.Op,
		})
	}
	*id = rec.ResultID
	return true, errNoChange
}

func (svc *Service) remember(ctx context.Context, tx Tx, courseID, key, op, id string) error {
	if key == "" {
		return nil
	}
	err := tx.CreateIdempotencyRecord(ctx, IdempotencyRecord{
		Key:       key,
		CourseID:  courseID,
		Op:        op,
		ResultID:  id,
		CreatedAt: svc.now(),
	})
	return errors.Wrap(err, "recording idempotency key")
}
