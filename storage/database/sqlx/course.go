package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
)

type (
	courseRepository struct {
		queries
		db *sqlx.DB
	}

	// queries runs every statement through exec: the DB itself or the current transaction.
	queries struct {
		exec core.DBExecutor
	}

	courseRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
	}

	sectionRow struct {
		ID        string         `db:"id"`
		CourseID  string         `db:"course_id"`
		Position  int            `db:"position"`
		Name      string         `db:"name"`
		Sequence  pq.StringArray `db:"sequence"`
		CreatedAt time.Time      `db:"created_at"`
		UpdatedAt time.Time      `db:"updated_at"`
	}

	activityRow struct {
		ID          string    `db:"id"`
		CourseID    string    `db:"course_id"`
		SectionID   string    `db:"section_id"`
		Type        string    `db:"type"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		Payload     []byte    `db:"payload"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	tombstoneRow struct {
		ID        string    `db:"id"`
		Kind      string    `db:"kind"`
		CourseID  string    `db:"course_id"`
		DeletedAt time.Time `db:"deleted_at"`
	}

	idempotencyRow struct {
		CourseID  string    `db:"course_id"`
		Key       string    `db:"key"`
		Op        string    `db:"op"`
		ResultID  string    `db:"result_id"`
		CreatedAt time.Time `db:"created_at"`
	}
)

var (
	_ course.Repository = (*courseRepository)(nil) // interface compliance check
	_ course.Tx         = queries{}
)

const (
	sectionColumns  = `id, course_id, position, name, sequence, created_at, updated_at`
	activityColumns = `id, course_id, section_id, type, title, description, payload, created_at, updated_at`
)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{queries: queries{exec: db}, db: db}
}

// RunInTx runs fn in a REPEATABLE READ transaction so that every read of fn sees the same snapshot.
func (repo *courseRepository) RunInTx(ctx context.Context, fn func(tx course.Tx) error) (err error) {
	tx, err := repo.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(queries{exec: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// trapNoRowsErr maps "no rows" err to a core.NotFoundError
func trapNoRowsErr(err error, kind, id, msg string) error {
	if err == sql.ErrNoRows {
		return core.NewNotFoundError(kind, id)
	}
	return errors.Wrap(err, msg)
}

// validID rejects IDs postgres would fail to cast to UUID; such objects cannot exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (row sectionRow) unboil() course.Section {
	seq := []string(row.Sequence)
	if seq == nil {
		seq = []string{}
	}
	return course.Section{
		ID:        row.ID,
		CourseID:  row.CourseID,
		Position:  row.Position,
		Name:      row.Name,
		Sequence:  seq,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (row activityRow) unboil() (course.Activity, error) {
	payload, err := course.DecodePayload(course.ActivityType(row.Type), row.Payload)
	if err != nil {
		return course.Activity{}, errors.Wrapf(err, "decoding payload of activity %s", row.ID)
	}
	return course.Activity{
		ID:          row.ID,
		CourseID:    row.CourseID,
		SectionID:   row.SectionID,
		Type:        course.ActivityType(row.Type),
		Title:       row.Title,
		Description: row.Description,
		Payload:     payload,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}, nil
}

// Reads

func (q queries) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, core.NewNotFoundError(course.KindCourse, id)
	}
	var row courseRow
	if err := q.exec.GetContext(ctx, &row, `SELECT id, name, created_at FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.KindCourse, id, "finding course by ID")
	}
	return course.Course{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt.UTC()}, nil
}

func (q queries) QueryCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	if err := q.exec.SelectContext(ctx, &rows, `SELECT id, name, created_at FROM course ORDER BY created_at, id`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, course.Course{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt.UTC()})
	}
	return courses, nil
}

func (q queries) GetSection(ctx context.Context, id string) (course.Section, error) {
	if !validID(id) {
		return course.Section{}, core.NewNotFoundError(course.KindSection, id)
	}
	var row sectionRow
	if err := q.exec.GetContext(ctx, &row, `SELECT `+sectionColumns+` FROM section WHERE id = $1`, id); err != nil {
		return course.Section{}, trapNoRowsErr(err, course.KindSection, id, "finding section by ID")
	}
	return row.unboil(), nil
}

func (q queries) QuerySections(ctx context.Context, courseID string) ([]course.Section, error) {
	if !validID(courseID) {
		return []course.Section{}, nil
	}
	var rows []sectionRow
	err := q.exec.SelectContext(ctx, &rows,
		`SELECT `+sectionColumns+` FROM section WHERE course_id = $1 ORDER BY position, id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	sections := make([]course.Section, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, row.unboil())
	}
	return sections, nil
}

func (q queries) GetActivity(ctx context.Context, id string) (course.Activity, error) {
	if !validID(id) {
		return course.Activity{}, core.NewNotFoundError(course.KindActivity, id)
	}
	var row activityRow
	if err := q.exec.GetContext(ctx, &row, `SELECT `+activityColumns+` FROM activity WHERE id = $1`, id); err != nil {
		return course.Activity{}, trapNoRowsErr(err, course.KindActivity, id, "finding activity by ID")
	}
	return row.unboil()
}

func (q queries) QueryActivities(ctx context.Context, courseID string) ([]course.Activity, error) {
	if !validID(courseID) {
		return []course.Activity{}, nil
	}
	var rows []activityRow
	err := q.exec.SelectContext(ctx, &rows,
		`SELECT `+activityColumns+` FROM activity WHERE course_id = $1 ORDER BY created_at, id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	activities := make([]course.Activity, 0, len(rows))
	for _, row := range rows {
		act, err := row.unboil()
		if err != nil {
			return nil, err
		}
		activities = append(activities, act)
	}
	return activities, nil
}

func (q queries) GetTombstone(ctx context.Context, id string) (course.Tombstone, error) {
	if !validID(id) {
		return course.Tombstone{}, core.NewNotFoundError("tombstone", id)
	}
	var row tombstoneRow
	if err := q.exec.GetContext(ctx, &row, `SELECT id, kind, course_id, deleted_at FROM tombstone WHERE id = $1`, id); err != nil {
		return course.Tombstone{}, trapNoRowsErr(err, "tombstone", id, "finding tombstone by ID")
	}
	return course.Tombstone{ID: row.ID, Kind: row.Kind, CourseID: row.CourseID, DeletedAt: row.DeletedAt.UTC()}, nil
}

func (q queries) GetIdempotencyRecord(ctx context.Context, courseID, key string) (course.IdempotencyRecord, error) {
	var row idempotencyRow
	err := q.exec.GetContext(ctx, &row,
		`SELECT course_id, key, op, result_id, created_at FROM idempotency_key WHERE course_id = $1 AND key = $2`,
		courseID, key)
	if err != nil {
		return course.IdempotencyRecord{}, trapNoRowsErr(err, "idempotency_key", key, "finding idempotency key")
	}
	return course.IdempotencyRecord{
		Key:       row.Key,
		CourseID:  row.CourseID,
		Op:        row.Op,
		ResultID:  row.ResultID,
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}

// Writes

func (q queries) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	_, err := q.exec.ExecContext(ctx,
		`INSERT INTO course (id, name, created_at) VALUES ($1, $2, $3)`,
		crs.ID, crs.Name, crs.CreatedAt.UTC())
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (q queries) CreateSection(ctx context.Context, sec course.Section) (course.Section, error) {
	if sec.ID == "" {
		sec.ID = uuid.New().String()
	}
	if sec.Sequence == nil {
		sec.Sequence = []string{}
	}
	_, err := q.exec.ExecContext(ctx,
		`INSERT INTO section (`+sectionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sec.ID, sec.CourseID, sec.Position, sec.Name, pq.StringArray(sec.Sequence), sec.CreatedAt.UTC(), sec.UpdatedAt.UTC())
	if err != nil {
		return course.Section{}, errors.Wrap(err, "inserting section")
	}
	return sec, nil
}

func (q queries) UpdateSection(ctx context.Context, sec course.Section) error {
	seq := sec.Sequence
	if seq == nil {
		seq = []string{}
	}
	res, err := q.exec.ExecContext(ctx,
		`UPDATE section SET name = $2, position = $3, sequence = $4, updated_at = $5 WHERE id = $1`,
		sec.ID, sec.Name, sec.Position, pq.StringArray(seq), sec.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return checkAffected(res, course.KindSection, sec.ID)
}

func (q queries) DeleteSection(ctx context.Context, id string) error {
	if _, err := q.exec.ExecContext(ctx, `DELETE FROM section WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return nil
}

func (q queries) CreateActivity(ctx context.Context, act course.Activity) (course.Activity, error) {
	if act.ID == "" {
		act.ID = uuid.New().String()
	}
	payload, err := course.EncodePayload(act.Payload)
	if err != nil {
		return course.Activity{}, err
	}
	_, err = q.exec.ExecContext(ctx,
		`INSERT INTO activity (`+activityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		act.ID, act.CourseID, act.SectionID, string(act.Type), act.Title, act.Description, []byte(payload),
		act.CreatedAt.UTC(), act.UpdatedAt.UTC())
	if err != nil {
		return course.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return act, nil
}

func (q queries) UpdateActivity(ctx context.Context, act course.Activity) error {
	payload, err := course.EncodePayload(act.Payload)
	if err != nil {
		return err
	}
	res, err := q.exec.ExecContext(ctx,
		`UPDATE activity SET title = $2, description = $3, payload = $4, updated_at = $5 WHERE id = $1`,
		act.ID, act.Title, act.Description, []byte(payload), act.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "updating activity")
	}
	return checkAffected(res, course.KindActivity, act.ID)
}

func (q queries) DeleteActivities(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := q.exec.ExecContext(ctx, `DELETE FROM activity WHERE id = ANY($1::uuid[])`, pq.StringArray(ids)); err != nil {
		return errors.Wrap(err, "deleting activities")
	}
	return nil
}

func (q queries) CreateTombstones(ctx context.Context, ts ...course.Tombstone) error {
	for _, t := range ts {
		_, err := q.exec.ExecContext(ctx,
			`INSERT INTO tombstone (id, kind, course_id, deleted_at) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			t.ID, t.Kind, t.CourseID, t.DeletedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting tombstone")
		}
	}
	return nil
}

func (q queries) CreateIdempotencyRecord(ctx context.Context, rec course.IdempotencyRecord) error {
	_, err := q.exec.ExecContext(ctx,
		`INSERT INTO idempotency_key (course_id, key, op, result_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.CourseID, rec.Key, rec.Op, rec.ResultID, rec.CreatedAt.UTC())
	return errors.Wrap(err, "inserting idempotency key")
}

func checkAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return core.NewNotFoundError(kind, id)
	}
	return nil
}
