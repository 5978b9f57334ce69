package sqlxrepos_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
	"github.com/trezcool/masomo/storage/database"
	sqlxrepos "github.com/trezcool/masomo/storage/database/sqlx"
	testutil "github.com/trezcool/masomo/tests"
)

// prepareDB connects to TEST_DATABASE_URL, migrates it and empties the outline tables.
func prepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB))
	_, err = db.Exec(`TRUNCATE idempotency_key, tombstone, activity, section, course CASCADE`)
	require.NoError(t, err)
	return db
}

func newService(repo course.Repository) *course.Service {
	validate, translator := testutil.NewValidator()
	return course.NewService(repo, course.NewMemorySnapshotStore(), validate, translator, core.NopLogger{})
}

func TestCourseRepository_outline(t *testing.T) {
	repo := sqlxrepos.NewCourseRepository(prepareDB(t))
	svc := newService(repo)
	ctx := context.Background()

	crs := testutil.CreateCourse(t, svc, "Algebra")
	secs := []string{
		testutil.CreateSection(t, svc, crs.ID, "Week 1"),
		testutil.CreateSection(t, svc, crs.ID, "Week 2"),
		testutil.CreateSection(t, svc, crs.ID, "Week 3"),
	}
	quiz := testutil.CreateActivity(t, svc, crs.ID, secs[1], course.TypeQuiz, "Quiz 1", map[string]int{"max_grade": 100})
	link := testutil.CreateActivity(t, svc, crs.ID, secs[2], course.TypeLink, "Docs", map[string]string{"url": "https://go.dev"})

	act, err := repo.GetActivity(ctx, quiz)
	require.NoError(t, err)
	assert.Equal(t, course.QuizPayload{MaxGrade: 100}, act.Payload)

	require.NoError(t, svc.DeleteSection(ctx, crs.ID, secs[1]))
	require.NoError(t, svc.DeleteSection(ctx, crs.ID, secs[1]))

	tree := testutil.Tree(t, svc, crs.ID)
	require.Len(t, tree.Sections, 2)
	assert.Equal(t, secs[2], tree.Sections[1].ID)
	assert.Equal(t, 1, tree.Sections[1].Position)
	assert.Equal(t, link, tree.Sections[1].Activities[0].ID)

	err = svc.RenameActivity(ctx, crs.ID, quiz, "Quiz 2")
	assert.True(t, core.IsNotFound(err), "RenameActivity() error = %v", err)

	courseID, err := svc.ResolveCourse(ctx, course.KindActivity, quiz)
	require.NoError(t, err)
	assert.Equal(t, crs.ID, courseID)

	violations, err := svc.Verify(ctx, crs.ID)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCourseRepository_notFound(t *testing.T) {
	repo := sqlxrepos.NewCourseRepository(prepareDB(t))
	ctx := context.Background()

	for _, id := range []string{"nope", uuid.NewString()} {
		_, err := repo.GetCourse(ctx, id)
		assert.True(t, core.IsNotFound(err), "GetCourse(%q) error = %v", id, err)
		_, err = repo.GetSection(ctx, id)
		assert.True(t, core.IsNotFound(err), "GetSection(%q) error = %v", id, err)
		_, err = repo.GetActivity(ctx, id)
		assert.True(t, core.IsNotFound(err), "GetActivity(%q) error = %v", id, err)
		_, err = repo.GetTombstone(ctx, id)
		assert.True(t, core.IsNotFound(err), "GetTombstone(%q) error = %v", id, err)
	}
}

func TestCourseRepository_RunInTx_rollsBack(t *testing.T) {
	repo := sqlxrepos.NewCourseRepository(prepareDB(t))
	svc := newService(repo)
	ctx := context.Background()
	crs := testutil.CreateCourse(t, svc, "Algebra")

	errAbort := errors.New("abort")
	err := repo.RunInTx(ctx, func(tx course.Tx) error {
		if _, err := tx.CreateSection(ctx, course.Section{CourseID: crs.ID, Name: "Week 1", Sequence: []string{}}); err != nil {
			return err
		}
		return errAbort
	})
	assert.Equal(t, errAbort, errors.Cause(err))

	sections, err := repo.QuerySections(ctx, crs.ID)
	require.NoError(t, err)
	assert.Empty(t, sections)
}
