package course

import (
	"reflect"
	"testing"
)

func Test_appendID(t *testing.T) {
	tests := []struct {
		name   string
		seq    []string
		id     string
		want   []string
		wantOK bool
	}{
		{name: "empty", seq: nil, id: "a", want: []string{"a"}, wantOK: true},
		{name: "at the end", seq: []string{"a", "b"}, id: "c", want: []string{"a", "b", "c"}, wantOK: true},
		{name: "duplicate", seq: []string{"a", "b"}, id: "a", want: []string{"a", "b"}, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := appendID(tt.seq, tt.id)
			if ok != tt.wantOK {
				t.Errorf("appendID() ok = %v, want %v", ok, tt.wantOK)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("appendID() = %v, want %v", got, tt.want)
			}
		})
	}

	seq := make([]string, 1, 4)
	seq[0] = "a"
	got, _ := appendID(seq, "b")
	got[0] = "z"
	if seq[0] != "a" {
		t.Error("appendID() must not share the backing array of its input")
	}
}

func Test_removeID(t *testing.T) {
	tests := []struct {
		name   string
		seq    []string
		id     string
		want   []string
		wantOK bool
	}{
		{name: "absent", seq: []string{"a"}, id: "b", want: []string{"a"}, wantOK: false},
		{name: "empty", seq: []string{}, id: "a", want: []string{}, wantOK: false},
		{name: "first", seq: []string{"a", "b", "c"}, id: "a", want: []string{"b", "c"}, wantOK: true},
		{name: "middle", seq: []string{"a", "b", "c"}, id: "b", want: []string{"a", "c"}, wantOK: true},
		{name: "last", seq: []string{"a", "b", "c"}, id: "c", want: []string{"a", "b"}, wantOK: true},
		{name: "only", seq: []string{"a"}, id: "a", want: []string{}, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := removeID(tt.seq, tt.id)
			if ok != tt.wantOK {
				t.Errorf("removeID() ok = %v, want %v", ok, tt.wantOK)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("removeID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckInvariants(t *testing.T) {
	sec := func(id string, pos int, seq ...string) Section {
		if seq == nil {
			seq = []string{}
		}
		return Section{ID: id, Position: pos, Sequence: seq}
	}
	act := func(id, sectionID string) Activity {
		return Activity{ID: id, SectionID: sectionID}
	}

	tests := []struct {
		name       string
		sections   []Section
		activities []Activity
		want       []Violation
	}{
		{name: "empty course"},
		{
			name:       "consistent",
			sections:   []Section{sec("s1", 1, "a2"), sec("s0", 0, "a1", "a3")},
			activities: []Activity{act("a1", "s0"), act("a2", "s1"), act("a3", "s0")},
		},
		{
			name:     "gap",
			sections: []Section{sec("s0", 0), sec("s2", 2)},
			want:     []Violation{{Kind: KindSection, ID: "s2", Message: "position 2, expected 1"}},
		},
		{
			name:     "duplicate position",
			sections: []Section{sec("s0", 0), sec("s1", 0)},
			want:     []Violation{{Kind: KindSection, ID: "s1", Message: "position 0, expected 1"}},
		},
		{
			name:     "orphan id",
			sections: []Section{sec("s0", 0, "ghost")},
			want:     []Violation{{Kind: KindActivity, ID: "ghost", Message: "sequenced by section s0 but does not exist"}},
		},
		{
			name:       "wrong owner",
			sections:   []Section{sec("s0", 0, "a1"), sec("s1", 1)},
			activities: []Activity{act("a1", "s1")},
			want:       []Violation{{Kind: KindActivity, ID: "a1", Message: "sequenced by section s0 but belongs to section s1"}},
		},
		{
			name:       "sequenced twice",
			sections:   []Section{sec("s0", 0, "a1", "a1")},
			activities: []Activity{act("a1", "s0")},
			want:       []Violation{{Kind: KindActivity, ID: "a1", Message: "sequenced twice (sections s0 and s0)"}},
		},
		{
			name:       "not sequenced",
			sections:   []Section{sec("s0", 0)},
			activities: []Activity{act("a1", "s0")},
			want:       []Violation{{Kind: KindActivity, ID: "a1", Message: "not sequenced by its section s0"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckInvariants(tt.sections, tt.activities); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CheckInvariants() = %v, want %v", got, tt.want)
			}
		})
	}
}
