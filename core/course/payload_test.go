package course

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
)

func newChecker() checker {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return checker{validate: validate, translator: translator}
}

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		t.Fatalf("error = %v (%T), want a *core.ValidationError", err, err)
	}
	return vErr.Fields
}

func TestDecodePayload(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		typ       ActivityType
		raw       string
		want      Payload
		wantField string
	}{
		{name: "page", typ: TypePage, raw: `{"content":"hello"}`, want: PagePayload{Content: "hello"}},
		{name: "link", typ: TypeLink, raw: `{"url":"https://go.dev"}`, want: LinkPayload{URL: "https://go.dev"}},
		{
			name: "file", typ: TypeFile, raw: `{"file_name":"a.pdf","file_url":"https://x.cd/a.pdf"}`,
			want: FilePayload{FileName: "a.pdf", FileURL: "https://x.cd/a.pdf"},
		},
		{
			name: "assignment", typ: TypeAssignment,
			raw:  `{"due_date":"2026-03-01T12:00:00Z","cutoff_date":"2026-03-01T12:00:00Z","max_grade":20}`,
			want: AssignmentPayload{DueDate: due, CutoffDate: due, MaxGrade: 20},
		},
		{name: "quiz", typ: TypeQuiz, raw: `{"max_grade":100}`, want: QuizPayload{MaxGrade: 100}},
		{name: "label: empty", typ: TypeLabel, raw: ``, want: LabelPayload{}},
		{name: "label: null", typ: TypeLabel, raw: `null`, want: LabelPayload{}},
		{name: "unknown type", typ: "video", raw: `{}`, wantField: "type"},
		{name: "unknown field", typ: TypeQuiz, raw: `{"max_grade":1,"url":"x"}`, wantField: "type_payload.url"},
		{name: "field of another type", typ: TypeLabel, raw: `{"content":"x"}`, wantField: "type_payload.content"},
		{name: "wrong type", typ: TypeQuiz, raw: `{"max_grade":"lots"}`, wantField: "type_payload.max_grade"},
		{name: "malformed", typ: TypeQuiz, raw: `{"max_grade":`, wantField: "type_payload"},
		{name: "trailing data", typ: TypeQuiz, raw: `{"max_grade":1} {}`, wantField: "type_payload"},
		{name: "not an object", typ: TypeQuiz, raw: `[1]`, wantField: "type_payload"},
		{name: "bad date", typ: TypeAssignment, raw: `{"due_date":"tomorrow"}`, wantField: "type_payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.typ, json.RawMessage(tt.raw))
			if tt.wantField != "" {
				flds := fieldErrors(t, err)
				require.NotEmpty(t, flds)
				assert.Equal(t, tt.wantField, flds[0].Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.typ, got.ActivityType())
		})
	}
}

func TestEncodePayload(t *testing.T) {
	data, err := EncodePayload(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	data, err = EncodePayload(QuizPayload{MaxGrade: 10})
	require.NoError(t, err)
	assert.JSONEq(t, `{"max_grade":10}`, string(data))

	p, err := DecodePayload(TypeQuiz, data)
	require.NoError(t, err)
	assert.Equal(t, QuizPayload{MaxGrade: 10}, p)
}

func Test_checker_payload(t *testing.T) {
	chk := newChecker()

	tests := []struct {
		name      string
		typ       ActivityType
		raw       string
		wantField string
	}{
		{name: "quiz ok", typ: TypeQuiz, raw: `{"max_grade":100}`},
		{name: "quiz: missing max_grade", typ: TypeQuiz, raw: `{}`, wantField: "type_payload.max_grade"},
		{name: "quiz: zero max_grade", typ: TypeQuiz, raw: `{"max_grade":0}`, wantField: "type_payload.max_grade"},
		{name: "link: bad url", typ: TypeLink, raw: `{"url":"lol"}`, wantField: "type_payload.url"},
		{name: "page: blank content", typ: TypePage, raw: `{"content":"  "}`, wantField: "type_payload.content"},
		{
			name: "assignment: cutoff before due", typ: TypeAssignment,
			raw:       `{"due_date":"2026-03-02T00:00:00Z","cutoff_date":"2026-03-01T00:00:00Z","max_grade":20}`,
			wantField: "type_payload.cutoff_date",
		},
		{name: "label ok", typ: TypeLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chk.payload(tt.typ, json.RawMessage(tt.raw))
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("checker.payload() unexpected error = %v", err)
				}
				return
			}
			flds := fieldErrors(t, err)
			require.NotEmpty(t, flds)
			assert.Equal(t, tt.wantField, flds[0].Field)
		})
	}
}

func Test_checker_updateActivity(t *testing.T) {
	chk := newChecker()
	str := func(s string) *string { return &s }

	tests := []struct {
		name      string
		ua        UpdateActivity
		wantField string
		wantTitle string
	}{
		{name: "nothing", wantField: "title"},
		{name: "blank title", ua: UpdateActivity{Title: str("  ")}, wantField: "title"},
		{name: "title is cleaned", ua: UpdateActivity{Title: str("  Final  ")}, wantTitle: "Final"},
		{name: "description only", ua: UpdateActivity{Description: str("")}},
		{name: "bad payload", ua: UpdateActivity{Payload: json.RawMessage(`{"max_grade":-1}`)}, wantField: "type_payload.max_grade"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ua := tt.ua
			_, err := chk.updateActivity(TypeQuiz, &ua)
			if tt.wantField != "" {
				flds := fieldErrors(t, err)
				require.NotEmpty(t, flds)
				assert.Equal(t, tt.wantField, flds[0].Field)
				return
			}
			require.NoError(t, err)
			if tt.wantTitle != "" {
				assert.Equal(t, tt.wantTitle, *ua.Title)
			}
		})
	}
}
