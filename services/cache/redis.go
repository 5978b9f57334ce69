package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo/core/course"
)

// RedisSnapshotStore shares outline snapshots between API instances.
type RedisSnapshotStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ course.SnapshotStore = (*RedisSnapshotStore)(nil)

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, prefix: "outline:tree:", ttl: ttl}
}

func (s *RedisSnapshotStore) key(courseID string) string {
	return s.prefix + courseID
}

func (s *RedisSnapshotStore) Load(ctx context.Context, courseID string) (*course.Tree, error) {
	data, err := s.client.Get(ctx, s.key(courseID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading snapshot")
	}

	tree := new(course.Tree)
	if err = json.Unmarshal(data, tree); err != nil {
		return nil, errors.Wrap(err, "decoding snapshot")
	}
	return tree, nil
}

func (s *RedisSnapshotStore) Store(ctx context.Context, tree *course.Tree) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	return errors.Wrap(s.client.Set(ctx, s.key(tree.CourseID), data, s.ttl).Err(), "storing snapshot")
}

func (s *RedisSnapshotStore) StoreIfAbsent(ctx context.Context, tree *course.Tree) (bool, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return false, errors.Wrap(err, "encoding snapshot")
	}
	ok, err := s.client.SetNX(ctx, s.key(tree.CourseID), data, s.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "storing snapshot")
	}
	return ok, nil
}

func (s *RedisSnapshotStore) Invalidate(ctx context.Context, courseID string) error {
	return errors.Wrap(s.client.Del(ctx, s.key(courseID)).Err(), "invalidating snapshot")
}
