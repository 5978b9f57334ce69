package course

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
)

var errAlreadySequenced = errors.New("activity already in a section sequence")

// SequenceIndex maintains, per Section, the ordered list of Activity IDs it owns.
// It must only be used inside a transaction holding the course's exclusion token.
type SequenceIndex struct {
	tx      Tx
	nowFunc func() time.Time
}

func NewSequenceIndex(tx Tx) SequenceIndex {
	return SequenceIndex{tx: tx, nowFunc: time.Now}
}

// Append adds activityID at the end of the section's sequence. Duplicates are rejected.
func (idx SequenceIndex) Append(ctx context.Context, sectionID, activityID string) (Section, error) {
	sec, err := idx.tx.GetSection(ctx, sectionID)
	if err != nil {
		return Section{}, err
	}
	seq, ok := appendID(sec.Sequence, activityID)
	if !ok {
		return Section{}, errors.Wrapf(errAlreadySequenced, "appending %s to section %s", activityID, sectionID)
	}
	sec.Sequence = seq
	sec.UpdatedAt = idx.nowFunc().UTC()
	if err = idx.tx.UpdateSection(ctx, sec); err != nil {
		return Section{}, errors.Wrap(err, "saving section sequence")
	}
	return sec, nil
}

// Remove drops activityID from the section's sequence. Removing an absent ID is a no-op.
func (idx SequenceIndex) Remove(ctx context.Context, sectionID, activityID string) (Section, error) {
	sec, err := idx.tx.GetSection(ctx, sectionID)
	if err != nil {
		return Section{}, err
	}
	seq, ok := removeID(sec.Sequence, activityID)
	if !ok {
		return sec, nil
	}
	sec.Sequence = seq
	sec.UpdatedAt = idx.nowFunc().UTC()
	if err = idx.tx.UpdateSection(ctx, sec); err != nil {
		return Section{}, errors.Wrap(err, "saving section sequence")
	}
	return sec, nil
}

// appendID returns a copy of seq with id appended; false if id is already present.
func appendID(seq []string, id string) ([]string, bool) {
	for _, s := range seq {
		if s == id {
			return seq, false
		}
	}
	out := make([]string, 0, len(seq)+1)
	out = append(out, seq...)
	return append(out, id), true
}

// removeID returns a copy of seq without id; false if id was not present.
func removeID(seq []string, id string) ([]string, bool) {
	for i, s := range seq {
		if s == id {
			out := make([]string, 0, len(seq)-1)
			out = append(out, seq[:i]...)
			return append(out, seq[i+1:]...), true
		}
	}
	return seq, false
}

// Violation describes one broken outline invariant.
type Violation struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.ID, v.Message)
}

// CheckInvariants reports every violation of:
//   - section positions are exactly 0..N-1
//   - every sequenced ID resolves to an activity of that section, once
//   - every activity is sequenced by its section
func CheckInvariants(sections []Section, activities []Activity) []Violation {
	var violations []Violation

	sorted := make([]Section, len(sections))
	copy(sorted, sections)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	for i, sec := range sorted {
		if sec.Position != i {
			violations = append(violations, Violation{
				Kind: KindSection, ID: sec.ID,
				Message: fmt.Sprintf("position %d, expected %d", sec.Position, i),
			})
		}
	}

	acts := make(map[string]Activity, len(activities))
	for _, act := range activities {
		acts[act.ID] = act
	}
	sequenced := make(map[string]string, len(activities)) // activity ID -> section ID
	for _, sec := range sorted {
		for _, id := range sec.Sequence {
			if owner, dup := sequenced[id]; dup {
				violations = append(violations, Violation{
					Kind: KindActivity, ID: id,
					Message: fmt.Sprintf("sequenced twice (sections %s and %s)", owner, sec.ID),
				})
				continue
			}
			sequenced[id] = sec.ID

			act, ok := acts[id]
			switch {
			case !ok:
				violations = append(violations, Violation{
					Kind: KindActivity, ID: id,
					Message: fmt.Sprintf("sequenced by section %s but does not exist", sec.ID),
				})
			case act.SectionID != sec.ID:
				violations = append(violations, Violation{
					Kind: KindActivity, ID: id,
					Message: fmt.Sprintf("sequenced by section %s but belongs to section %s", sec.ID, act.SectionID),
				})
			}
		}
	}

	for _, act := range activities {
		if _, ok := sequenced[act.ID]; !ok {
			violations = append(violations, Violation{
				Kind: KindActivity, ID: act.ID,
				Message: fmt.Sprintf("not sequenced by its section %s", act.SectionID),
			})
		}
	}
	return violations
}
