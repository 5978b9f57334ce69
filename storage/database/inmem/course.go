package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

// reader returns a view of the last committed tables; committed tables are never modified in place.
func (repo *courseRepository) reader() *txView {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return &txView{db: repo.db, t: repo.db.tables}
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	return repo.reader().GetCourse(ctx, id)
}

func (repo *courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	return repo.reader().QueryCourses(ctx)
}

func (repo *courseRepository) GetSection(ctx context.Context, id string) (course.Section, error) {
	return repo.reader().GetSection(ctx, id)
}

func (repo *courseRepository) QuerySections(ctx context.Context, courseID string) ([]course.Section, error) {
	return repo.reader().QuerySections(ctx, courseID)
}

func (repo *courseRepository) GetActivity(ctx context.Context, id string) (course.Activity, error) {
	return repo.reader().GetActivity(ctx, id)
}

func (repo *courseRepository) QueryActivities(ctx context.Context, courseID string) ([]course.Activity, error) {
	return repo.reader().QueryActivities(ctx, courseID)
}

func (repo *courseRepository) GetTombstone(ctx context.Context, id string) (course.Tombstone, error) {
	return repo.reader().GetTombstone(ctx, id)
}

func (repo *courseRepository) RunInTx(ctx context.Context, fn func(tx course.Tx) error) error {
	repo.db.txMu.Lock()
	defer repo.db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	repo.db.mu.RLock()
	view := &txView{db: repo.db, t: repo.db.tables.clone()}
	repo.db.mu.RUnlock()

	if err := fn(view); err != nil {
		return err // discard the copy
	}

	repo.db.mu.Lock()
	repo.db.tables = view.t
	repo.db.mu.Unlock()
	return nil
}

// txView reads from (and, inside RunInTx, writes to) one version of the tables.
type txView struct {
	db *DB
	t  *tables
}

var _ course.Tx = (*txView)(nil) // interface compliance check

func (tx *txView) GetCourse(_ context.Context, id string) (course.Course, error) {
	if crs, ok := tx.t.courses[id]; ok {
		return crs, nil
	}
	return course.Course{}, core.NewNotFoundError(course.KindCourse, id)
}

func (tx *txView) QueryCourses(context.Context) ([]course.Course, error) {
	courses := make([]course.Course, 0, len(tx.t.courses))
	for _, crs := range tx.t.courses {
		courses = append(courses, crs)
	}
	sort.Slice(courses, func(i, j int) bool {
		if !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].CreatedAt.Before(courses[j].CreatedAt)
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (tx *txView) GetSection(_ context.Context, id string) (course.Section, error) {
	if sec, ok := tx.t.sections[id]; ok {
		return copySection(sec), nil
	}
	return course.Section{}, core.NewNotFoundError(course.KindSection, id)
}

func (tx *txView) QuerySections(_ context.Context, courseID string) ([]course.Section, error) {
	sections := make([]course.Section, 0)
	for _, sec := range tx.t.sections {
		if sec.CourseID == courseID {
			sections = append(sections, copySection(sec))
		}
	}
	sort.Slice(sections, func(i, j int) bool {
		if sections[i].Position != sections[j].Position {
			return sections[i].Position < sections[j].Position
		}
		return sections[i].ID < sections[j].ID
	})
	return sections, nil
}

func (tx *txView) GetActivity(_ context.Context, id string) (course.Activity, error) {
	if act, ok := tx.t.activities[id]; ok {
		return act, nil
	}
	return course.Activity{}, core.NewNotFoundError(course.KindActivity, id)
}

func (tx *txView) QueryActivities(_ context.Context, courseID string) ([]course.Activity, error) {
	activities := make([]course.Activity, 0)
	for _, act := range tx.t.activities {
		if act.CourseID == courseID {
			activities = append(activities, act)
		}
	}
	sort.Slice(activities, func(i, j int) bool {
		if !activities[i].CreatedAt.Equal(activities[j].CreatedAt) {
			return activities[i].CreatedAt.Before(activities[j].CreatedAt)
		}
		return activities[i].ID < activities[j].ID
	})
	return activities, nil
}

func (tx *txView) GetTombstone(_ context.Context, id string) (course.Tombstone, error) {
	if ts, ok := tx.t.tombstones[id]; ok {
		return ts, nil
	}
	return course.Tombstone{}, core.NewNotFoundError("tombstone", id)
}

func (tx *txView) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	if err := tx.db.fault("CreateCourse"); err != nil {
		return course.Course{}, err
	}
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	tx.t.courses[crs.ID] = crs
	return crs, nil
}

func (tx *txView) CreateSection(_ context.Context, sec course.Section) (course.Section, error) {
	if err := tx.db.fault("CreateSection"); err != nil {
		return course.Section{}, err
	}
	if sec.ID == "" {
		sec.ID = uuid.New().String()
	}
	if sec.Sequence == nil {
		sec.Sequence = []string{}
	}
	tx.t.sections[sec.ID] = copySection(sec)
	return copySection(sec), nil
}

func (tx *txView) UpdateSection(_ context.Context, sec course.Section) error {
	if err := tx.db.fault("UpdateSection"); err != nil {
		return err
	}
	orig, ok := tx.t.sections[sec.ID]
	if !ok {
		return core.NewNotFoundError(course.KindSection, sec.ID)
	}
	// only save mutable fields
	orig.Name = sec.Name
	orig.Position = sec.Position
	orig.Sequence = sec.Sequence
	orig.UpdatedAt = sec.UpdatedAt
	tx.t.sections[sec.ID] = copySection(orig)
	return nil
}

func (tx *txView) DeleteSection(_ context.Context, id string) error {
	if err := tx.db.fault("DeleteSection"); err != nil {
		return err
	}
	delete(tx.t.sections, id)
	return nil
}

func (tx *txView) CreateActivity(_ context.Context, act course.Activity) (course.Activity, error) {
	if err := tx.db.fault("CreateActivity"); err != nil {
		return course.Activity{}, err
	}
	if act.ID == "" {
		act.ID = uuid.New().String()
	}
	tx.t.activities[act.ID] = act
	return act, nil
}

func (tx *txView) UpdateActivity(_ context.Context, act course.Activity) error {
	if err := tx.db.fault("UpdateActivity"); err != nil {
		return err
	}
	orig, ok := tx.t.activities[act.ID]
	if !ok {
		return core.NewNotFoundError(course.KindActivity, act.ID)
	}
	orig.Title = act.Title
	orig.Description = act.Description
	orig.Payload = act.Payload
	orig.UpdatedAt = act.UpdatedAt
	tx.t.activities[act.ID] = orig
	return nil
}

func (tx *txView) DeleteActivities(_ context.Context, ids ...string) error {
	if err := tx.db.fault("DeleteActivities"); err != nil {
		return err
	}
	for _, id := range ids {
		delete(tx.t.activities, id)
	}
	return nil
}

func (tx *txView) CreateTombstones(_ context.Context, ts ...course.Tombstone) error {
	if err := tx.db.fault("CreateTombstones"); err != nil {
		return err
	}
	for _, t := range ts {
		tx.t.tombstones[t.ID] = t
	}
	return nil
}

func idempotencyKey(courseID, key string) string {
	return courseID + "/" + key
}

func (tx *txView) GetIdempotencyRecord(_ context.Context, courseID, key string) (course.IdempotencyRecord, error) {
	if rec, ok := tx.t.idempotency[idempotencyKey(courseID, key)]; ok {
		return rec, nil
	}
	return course.IdempotencyRecord{}, core.NewNotFoundError("idempotency_key", key)
}

func (tx *txView) CreateIdempotencyRecord(_ context.Context, rec course.IdempotencyRecord) error {
	if err := tx.db.fault("CreateIdempotencyRecord"); err != nil {
		return err
	}
	tx.t.idempotency[idempotencyKey(rec.CourseID, rec.Key)] = rec
	return nil
}
