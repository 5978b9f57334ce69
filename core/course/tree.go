package course

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrInconsistentOutline is returned when the stored rows break an outline invariant.
var ErrInconsistentOutline = errors.New("inconsistent course outline")

type (
	// Tree is a fully resolved, read-only snapshot of a course outline.
	// Trees are shared between readers and must never be modified once built.
	Tree struct {
		CourseID string        `json:"course_id"`
		Sections []SectionNode `json:"sections"`
	}

	SectionNode struct {
		ID         string         `json:"id"`
		Position   int            `json:"position"`
		Name       string         `json:"name"`
		Activities []ActivityNode `json:"activities"`
	}

	ActivityNode struct {
		ID          string       `json:"id"`
		Type        ActivityType `json:"type"`
		Title       string       `json:"title"`
		Description string       `json:"description"`
	}
)

// Section returns the section node with the given ID.
func (t *Tree) Section(id string) (SectionNode, bool) {
	for _, sec := range t.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return SectionNode{}, false
}

// ActivityCount is the number of activities across all sections.
func (t *Tree) ActivityCount() int {
	var n int
	for _, sec := range t.Sections {
		n += len(sec.Activities)
	}
	return n
}

// BuildTree assembles the snapshot of a course from its rows.
// It never returns a partial tree: any invariant violation fails the whole build.
func BuildTree(courseID string, sections []Section, activities []Activity) (*Tree, error) {
	if violations := CheckInvariants(sections, activities); len(violations) > 0 {
		msgs := make([]string, 0, len(violations))
		for _, v := range violations {
			msgs = append(msgs, v.String())
		}
		return nil, errors.Wrapf(ErrInconsistentOutline, "course %s: %s", courseID, strings.Join(msgs, "; "))
	}

	sorted := make([]Section, len(sections))
	copy(sorted, sections)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	acts := make(map[string]Activity, len(activities))
	for _, act := range activities {
		acts[act.ID] = act
	}

	tree := &Tree{CourseID: courseID, Sections: make([]SectionNode, 0, len(sorted))}
	for _, sec := range sorted {
		node := SectionNode{
			ID:         sec.ID,
			Position:   sec.Position,
			Name:       sec.Name,
			Activities: make([]ActivityNode, 0, len(sec.Sequence)),
		}
		for _, id := range sec.Sequence {
			act := acts[id]
			node.Activities = append(node.Activities, ActivityNode{
				ID:          act.ID,
				Type:        act.Type,
				Title:       act.Title,
				Description: act.Description,
			})
		}
		tree.Sections = append(tree.Sections, node)
	}
	return tree, nil
}

// loadTree reads a course's rows through r and builds its snapshot.
func loadTree(ctx context.Context, r Reader, courseID string) (*Tree, error) {
	if _, err := r.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	sections, err := r.QuerySections(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	activities, err := r.QueryActivities(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	return BuildTree(courseID, sections, activities)
}
