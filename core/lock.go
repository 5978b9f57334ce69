package core

import "context"

// ResourceCourse names a course's exclusion token in ConflictErrors.
const ResourceCourse = "course"

// Locker hands out per-course exclusion tokens. Lock waits a bounded time for the token and fails
// with a *ConflictError when it cannot be acquired; unlock is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, courseID string) (unlock func(), err error)
}
