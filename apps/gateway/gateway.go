package gateway

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
)

// Gateway is the RequestGateway: every mutation runs while holding its course's exclusion token,
// reads go straight to the tree snapshot.
type Gateway struct {
	svc    *course.Service
	locker core.Locker
	logger core.Logger
}

func New(svc *course.Service, locker core.Locker, logger core.Logger) *Gateway {
	return &Gateway{svc: svc, locker: locker, logger: logger}
}

// withCourse runs fn while holding courseID's exclusion token.
func (gw *Gateway) withCourse(ctx context.Context, courseID string, fn func() error) error {
	unlock, err := gw.locker.Lock(ctx, courseID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// withOwner resolves the course owning the section/activity id, then runs fn under its token.
func (gw *Gateway) withOwner(ctx context.Context, kind, id string, fn func(courseID string) error) error {
	courseID, err := gw.svc.ResolveCourse(ctx, kind, id)
	if err != nil {
		return err
	}
	return gw.withCourse(ctx, courseID, func() error { return fn(courseID) })
}

// fail logs unexpected failures; typed errors are the client's business.
func (gw *Gateway) fail(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if core.ErrorKind(err) == core.KindInternal {
		gw.logger.Error("outline request failed", err, map[string]interface{}{"op": op, "id": id})
	}
	return err
}

func (gw *Gateway) done(op, id string, err error) (Empty, error) {
	if err != nil {
		return Empty{}, gw.fail(op, id, err)
	}
	return Empty{Status: StatusSuccess}, nil
}

func required(field, value string) error {
	if core.CleanString(value) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: "this field is required"})
	}
	return nil
}

func (gw *Gateway) ListTree(ctx context.Context, courseID string) (TreeResponse, error) {
	if err := required("course_id", courseID); err != nil {
		return TreeResponse{}, err
	}
	tree, err := gw.svc.Tree(ctx, courseID)
	if err != nil {
		return TreeResponse{}, gw.fail(OpListTree, courseID, err)
	}
	return newTreeResponse(tree), nil
}

func (gw *Gateway) CreateSection(ctx context.Context, courseID string, ns course.NewSection) (SectionCreated, error) {
	if err := required("course_id", courseID); err != nil {
		return SectionCreated{}, err
	}
	var id string
	err := gw.withCourse(ctx, courseID, func() error {
		var err error
		id, err = gw.svc.CreateSection(ctx, courseID, ns)
		return err
	})
	if err != nil {
		return SectionCreated{}, gw.fail(OpCreateSection, courseID, err)
	}
	return SectionCreated{Status: StatusSuccess, SectionID: id}, nil
}

func (gw *Gateway) RenameSection(ctx context.Context, sectionID, name string) (Empty, error) {
	if err := required("section_id", sectionID); err != nil {
		return Empty{}, err
	}
	err := gw.withOwner(ctx, course.KindSection, sectionID, func(courseID string) error {
		return gw.svc.RenameSection(ctx, courseID, sectionID, name)
	})
	return gw.done(OpRenameSection, sectionID, err)
}

func (gw *Gateway) DeleteSection(ctx context.Context, sectionID string) (Empty, error) {
	if err := required("section_id", sectionID); err != nil {
		return Empty{}, err
	}
	err := gw.withOwner(ctx, course.KindSection, sectionID, func(courseID string) error {
		return gw.svc.DeleteSection(ctx, courseID, sectionID)
	})
	return gw.done(OpDeleteSection, sectionID, err)
}

func (gw *Gateway) CreateActivity(ctx context.Context, sectionID string, na course.NewActivity) (ActivityCreated, error) {
	if err := required("section_id", sectionID); err != nil {
		return ActivityCreated{}, err
	}
	var id string
	err := gw.withOwner(ctx, course.KindSection, sectionID, func(courseID string) error {
		var err error
		id, err = gw.svc.CreateActivity(ctx, courseID, sectionID, na)
		return err
	})
	if err != nil {
		return ActivityCreated{}, gw.fail(OpCreateActivity, sectionID, err)
	}
	return ActivityCreated{Status: StatusSuccess, ActivityID: id}, nil
}

func (gw *Gateway) RenameActivity(ctx context.Context, activityID, title string) (Empty, error) {
	if err := required("activity_id", activityID); err != nil {
		return Empty{}, err
	}
	err := gw.withOwner(ctx, course.KindActivity, activityID, func(courseID string) error {
		return gw.svc.RenameActivity(ctx, courseID, activityID, title)
	})
	return gw.done(OpRenameActivity, activityID, err)
}

func (gw *Gateway) UpdateActivity(ctx context.Context, activityID string, ua course.UpdateActivity) (Empty, error) {
	if err := required("activity_id", activityID); err != nil {
		return Empty{}, err
	}
	err := gw.withOwner(ctx, course.KindActivity, activityID, func(courseID string) error {
		return gw.svc.UpdateActivity(ctx, courseID, activityID, ua)
	})
	return gw.done(OpUpdateActivity, activityID, err)
}

func (gw *Gateway) DeleteActivity(ctx context.Context, activityID string) (Empty, error) {
	if err := required("activity_id", activityID); err != nil {
		return Empty{}, err
	}
	err := gw.withOwner(ctx, course.KindActivity, activityID, func(courseID string) error {
		return gw.svc.DeleteActivity(ctx, courseID, activityID)
	})
	return gw.done(OpDeleteActivity, activityID, err)
}

// Maintenance

func (gw *Gateway) CreateCourse(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	crs, err := gw.svc.CreateCourse(ctx, nc)
	return crs, gw.fail("create_course", "", err)
}

func (gw *Gateway) QueryCourses(ctx context.Context) ([]course.Course, error) {
	courses, err := gw.svc.QueryCourses(ctx)
	return courses, gw.fail("query_courses", "", err)
}

func (gw *Gateway) Verify(ctx context.Context, courseID string) ([]course.Violation, error) {
	violations, err := gw.svc.Verify(ctx, courseID)
	return violations, gw.fail("verify", courseID, err)
}

// RebuildCache rebuilds the course's snapshot under its exclusion token.
func (gw *Gateway) RebuildCache(ctx context.Context, courseID string) (TreeResponse, error) {
	var tree *course.Tree
	err := gw.withCourse(ctx, courseID, func() error {
		var err error
		tree, err = gw.svc.RebuildCache(ctx, courseID)
		return errors.Wrap(err, "rebuilding outline cache")
	})
	if err != nil {
		return TreeResponse{}, gw.fail("rebuild_cache", courseID, err)
	}
	return newTreeResponse(tree), nil
}
