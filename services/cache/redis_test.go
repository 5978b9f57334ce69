package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core/course"
	redisdb "github.com/trezcool/masomo/storage/redis"
)

func setupTestRedis(t *testing.T) (*RedisSnapshotStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client, err := redisdb.Open("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSnapshotStore(client, time.Hour), s
}

func sampleTree(courseID, title string) *course.Tree {
	return &course.Tree{
		CourseID: courseID,
		Sections: []course.SectionNode{
			{
				ID: "s1", Position: 0, Name: "Week 1",
				Activities: []course.ActivityNode{{ID: "a1", Type: course.TypePage, Title: title}},
			},
			{ID: "s2", Position: 1, Name: "Week 2", Activities: []course.ActivityNode{}},
		},
	}
}

func TestRedisSnapshotStore(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	tree, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, tree, "miss")

	first := sampleTree("c1", "Intro")
	stored, err := store.StoreIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, stored)

	stale := sampleTree("c1", "stale")
	stored, err = store.StoreIfAbsent(ctx, stale)
	require.NoError(t, err)
	assert.False(t, stored, "must not overwrite")

	tree, err = store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, first, tree)

	second := sampleTree("c1", "Welcome")
	require.NoError(t, store.Store(ctx, second))
	tree, err = store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, second, tree)
	assert.Equal(t, time.Hour, s.TTL(store.key("c1")))

	require.NoError(t, store.Invalidate(ctx, "c1"))
	tree, err = store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, tree)
}

func TestRedisSnapshotStore_Load_corrupt(t *testing.T) {
	store, s := setupTestRedis(t)
	require.NoError(t, s.Set(store.key("c1"), "{not json"))

	_, err := store.Load(context.Background(), "c1")
	assert.Error(t, err)
}

func TestRedisSnapshotStore_unavailable(t *testing.T) {
	store, s := setupTestRedis(t)
	s.Close()

	ctx := context.Background()
	_, err := store.Load(ctx, "c1")
	assert.Error(t, err)
	assert.Error(t, store.Store(ctx, sampleTree("c1", "x")))
}
