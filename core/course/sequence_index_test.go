package course_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
	testutil "github.com/trezcool/masomo/tests"
)

func TestSequenceIndex(t *testing.T) {
	o := testutil.NewOutline(t)
	ctx := context.Background()
	crs := testutil.CreateCourse(t, o.Svc, "Algebra")
	secID := testutil.CreateSection(t, o.Svc, crs.ID, "Week 1")

	err := o.Repo.RunInTx(ctx, func(tx course.Tx) error {
		idx := course.NewSequenceIndex(tx)

		sec, err := idx.Append(ctx, secID, "a1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a1"}, sec.Sequence)

		sec, err = idx.Append(ctx, secID, "a2")
		require.NoError(t, err)
		assert.Equal(t, []string{"a1", "a2"}, sec.Sequence)

		_, err = idx.Append(ctx, secID, "a1")
		assert.Error(t, err, "duplicates are rejected")

		sec, err = idx.Remove(ctx, secID, "a1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a2"}, sec.Sequence)

		// removing an absent id is a no-op
		sec, err = idx.Remove(ctx, secID, "a1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a2"}, sec.Sequence)

		_, err = idx.Append(ctx, "nope", "a3")
		assert.True(t, core.IsNotFound(err))
		_, err = idx.Remove(ctx, "nope", "a3")
		assert.True(t, core.IsNotFound(err))

		stored, err := tx.GetSection(ctx, secID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a2"}, stored.Sequence)
		return errDiskOnFire // roll back: a2 is not a real activity
	})
	require.Equal(t, errDiskOnFire, err)

	sec, err := o.Repo.GetSection(ctx, secID)
	require.NoError(t, err)
	assert.Empty(t, sec.Sequence)
}
