package course

import "context"

type (
	// Reader looks records up. Missing records are reported as *core.NotFoundError.
	Reader interface {
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context) ([]Course, error)
		GetSection(ctx context.Context, id string) (Section, error)
		// QuerySections returns the course's sections ordered by position.
		QuerySections(ctx context.Context, courseID string) ([]Section, error)
		GetActivity(ctx context.Context, id string) (Activity, error)
		QueryActivities(ctx context.Context, courseID string) ([]Activity, error)
		GetTombstone(ctx context.Context, id string) (Tombstone, error)
	}

	// Tx is a transactional view of the content store.
	Tx interface {
		Reader

		CreateCourse(ctx context.Context, c Course) (Course, error)
		CreateSection(ctx context.Context, s Section) (Section, error)
		// UpdateSection saves the section's name, position, sequence and updated_at.
		UpdateSection(ctx context.Context, s Section) error
		DeleteSection(ctx context.Context, id string) error
		CreateActivity(ctx context.Context, a Activity) (Activity, error)
		// UpdateActivity saves the activity's title, description, payload and updated_at.
		UpdateActivity(ctx context.Context, a Activity) error
		DeleteActivities(ctx context.Context, ids ...string) error
		CreateTombstones(ctx context.Context, ts ...Tombstone) error
		GetIdempotencyRecord(ctx context.Context, courseID, key string) (IdempotencyRecord, error)
		CreateIdempotencyRecord(ctx context.Context, rec IdempotencyRecord) error
	}

	// Repository is the ContentStore: durable storage for courses, sections & activities.
	Repository interface {
		Reader

		// RunInTx runs fn against a consistent, isolated view of the store.
		// Everything fn wrote is committed when it returns nil and discarded otherwise.
		RunInTx(ctx context.Context, fn func(tx Tx) error) error
	}
)
