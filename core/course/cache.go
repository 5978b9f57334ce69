package course

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/masomo/core"
)

// ErrStaleSnapshot is returned when a mutation was committed but its snapshot could be neither
// published nor dropped: the change is saved and reads may serve the previous outline until rebuilt.
var ErrStaleSnapshot = errors.New("outline saved, snapshot cache is stale")

// SnapshotStore holds the latest built Tree of each course.
// Every method replaces or reads an entry in one step: readers see a whole old Tree or a whole new one.
type SnapshotStore interface {
	// Load returns nil, nil when the course has no snapshot.
	Load(ctx context.Context, courseID string) (*Tree, error)
	Store(ctx context.Context, tree *Tree) error
	// StoreIfAbsent never overwrites a snapshot stored by a mutation.
	StoreIfAbsent(ctx context.Context, tree *Tree) (bool, error)
	Invalidate(ctx context.Context, courseID string) error
}

// MemorySnapshotStore keeps snapshots in process.
type MemorySnapshotStore struct {
	entries sync.Map // courseID -> *Tree
}

var _ SnapshotStore = (*MemorySnapshotStore)(nil) // interface compliance check

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (s *MemorySnapshotStore) Load(_ context.Context, courseID string) (*Tree, error) {
	if v, ok := s.entries.Load(courseID); ok {
		return v.(*Tree), nil
	}
	return nil, nil
}

func (s *MemorySnapshotStore) Store(_ context.Context, tree *Tree) error {
	s.entries.Store(tree.CourseID, tree)
	return nil
}

func (s *MemorySnapshotStore) StoreIfAbsent(_ context.Context, tree *Tree) (bool, error) {
	_, loaded := s.entries.LoadOrStore(tree.CourseID, tree)
	return !loaded, nil
}

func (s *MemorySnapshotStore) Invalidate(_ context.Context, courseID string) error {
	s.entries.Delete(courseID)
	return nil
}

// TreeCache is the DerivedTreeCache: read paths go through Get, mutations publish through swap.
type TreeCache struct {
	repo   Repository
	store  SnapshotStore
	group  singleflight.Group
	logger core.Logger
}

func NewTreeCache(repo Repository, store SnapshotStore, logger core.Logger) *TreeCache {
	return &TreeCache{repo: repo, store: store, logger: logger}
}

// Get returns the latest snapshot, building it on first read after an invalidation.
// It never waits on a course's exclusion token.
func (c *TreeCache) Get(ctx context.Context, courseID string) (*Tree, error) {
	tree, err := c.store.Load(ctx, courseID)
	if err != nil {
		c.logger.Warn("loading outline snapshot", errors.Wrap(err, courseID))
	} else if tree != nil {
		return tree, nil
	}

	// shared by every waiting reader, so one caller's cancellation must not fail the others
	buildCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(courseID, func() (interface{}, error) {
		return c.build(buildCtx, courseID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tree), nil
}

func (c *TreeCache) build(ctx context.Context, courseID string) (*Tree, error) {
	var tree *Tree
	err := c.repo.RunInTx(ctx, func(tx Tx) error {
		var err error
		tree, err = loadTree(ctx, tx, courseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	stored, err := c.store.StoreIfAbsent(ctx, tree)
	if err != nil {
		c.logger.Warn("storing outline snapshot", errors.Wrap(err, courseID))
		return tree, nil
	}
	if !stored {
		// a mutation published a newer snapshot while this one was being built
		if latest, err := c.store.Load(ctx, courseID); err == nil && latest != nil {
			return latest, nil
		}
	}
	return tree, nil
}

// swap publishes tree as the course's snapshot. When that fails the entry is dropped so that
// the next read rebuilds from the store instead of serving the previous state.
func (c *TreeCache) swap(ctx context.Context, tree *Tree) error {
	err := c.store.Store(ctx, tree)
	if err == nil {
		return nil
	}
	if invErr := c.store.Invalidate(ctx, tree.CourseID); invErr != nil {
		return errors.Wrapf(ErrStaleSnapshot, "publishing outline snapshot: %v (invalidate: %v)", err, invErr)
	}
	c.logger.Warn("publishing outline snapshot failed; entry invalidated", errors.Wrap(err, tree.CourseID))
	return nil
}

// Invalidate drops the course's snapshot.
func (c *TreeCache) Invalidate(ctx context.Context, courseID string) error {
	return errors.Wrap(c.store.Invalidate(ctx, courseID), "invalidating outline snapshot")
}
