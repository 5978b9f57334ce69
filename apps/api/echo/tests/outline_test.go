package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/apps/gateway"
	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
	testutil "github.com/trezcool/masomo/tests"
)

func errResp(kind, msg string, flds ...core.FieldError) gateway.ErrorResponse {
	return gateway.ErrorResponse{Status: gateway.StatusError, Kind: kind, Message: msg, Fields: flds}
}

func notFoundResp(resource, id string) gateway.ErrorResponse {
	resp := errResp(core.KindNotFound, fmt.Sprintf("%s %q not found", resource, id))
	resp.Resource, resp.ID = resource, id
	return resp
}

func Test_home(t *testing.T) {
	f := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	f.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo API!", rec.Body.String())
}

func Test_outlineApi_auth(t *testing.T) {
	f := setup(t)
	crs := testutil.CreateCourse(t, f.Svc, "Algebra")
	path := "/v1/courses/" + crs.ID + "/tree"

	f.run(t, []httpTest{
		{name: "auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "bad token", path: path, token: "lol", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errResp("unauthorized", "invalid or expired jwt")),
		},
		{
			name: "author required", path: path, token: getToken(t, false, false), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errResp("forbidden", "permission denied")),
		},
		{
			name: "teacher", path: path, token: getToken(t, false, true), wantCode: http.StatusOK,
			wantData: marchallObj(t, gateway.TreeResponse{Status: gateway.StatusSuccess, CourseID: crs.ID, Sections: []course.SectionNode{}}),
		},
		{
			name: "admin", path: path, token: getToken(t, true, false), wantCode: http.StatusOK,
			wantData: marchallObj(t, gateway.TreeResponse{Status: gateway.StatusSuccess, CourseID: crs.ID, Sections: []course.SectionNode{}}),
		},
	})
}

func Test_outlineApi_sections(t *testing.T) {
	f := setup(t)
	token := getToken(t, true, false)
	crs := testutil.CreateCourse(t, f.Svc, "Algebra")

	// scenario 4: positions 0,1,2 -> delete 1 -> 0,1
	ids := make([]string, 3)
	for i, name := range []string{"Week 1", "Week 2", "Week 3"} {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/sections", token, marchallObj(t, course.NewSection{Name: name}))
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created gateway.SectionCreated
		unmarchall(t, rec, &created)
		assert.Equal(t, gateway.StatusSuccess, created.Status)
		ids[i] = created.SectionID
	}

	ok := marchallObj(t, gateway.Empty{Status: gateway.StatusSuccess})
	f.run(t, []httpTest{
		{name: "delete middle", method: http.MethodDelete, path: "/v1/sections/" + ids[1], token: token, wantCode: http.StatusOK, wantData: ok},
		{name: "delete again", method: http.MethodDelete, path: "/v1/sections/" + ids[1], token: token, wantCode: http.StatusOK, wantData: ok},
		{
			name: "rename", method: http.MethodPut, path: "/v1/sections/" + ids[2], token: token,
			body: []byte(`{"name":" Week Two "}`), wantCode: http.StatusOK, wantData: ok,
		},
		{
			name: "rename deleted", method: http.MethodPut, path: "/v1/sections/" + ids[1], token: token,
			body: []byte(`{"name":"x"}`), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, notFoundResp(course.KindSection, ids[1])),
		},
		{
			name: "rename blank", method: http.MethodPut, path: "/v1/sections/" + ids[2], token: token,
			body: []byte(`{"name":"  "}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, errResp(core.KindValidation, "name: this field is required",
				core.FieldError{Field: "name", Error: "this field is required"})),
		},
		{
			name: "unknown field", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/sections", token: token,
			body: []byte(`{"name":"x","position":0}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, errResp(core.KindValidation, "position: unknown field",
				core.FieldError{Field: "position", Error: "unknown field"})),
		},
		{
			name: "unknown course", method: http.MethodPost, path: "/v1/courses/nope/sections", token: token,
			body: []byte(`{"name":"x"}`), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, notFoundResp(course.KindCourse, "nope")),
		},
		{
			name: "tree", path: "/v1/courses/" + crs.ID + "/tree", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, gateway.TreeResponse{
				Status:   gateway.StatusSuccess,
				CourseID: crs.ID,
				Sections: []course.SectionNode{
					{ID: ids[0], Position: 0, Name: "Week 1", Activities: []course.ActivityNode{}},
					{ID: ids[2], Position: 1, Name: "Week Two", Activities: []course.ActivityNode{}},
				},
			}),
		},
	})
}

func Test_outlineApi_activities(t *testing.T) {
	f := setup(t)
	token := getToken(t, true, false)
	crs := testutil.CreateCourse(t, f.Svc, "Algebra")
	secID := testutil.CreateSection(t, f.Svc, crs.ID, "Week 1")

	req, rec := newAuthRequest(http.MethodPost, "/v1/sections/"+secID+"/activities", token,
		[]byte(`{"type":"quiz","title":"Quiz 1","type_payload":{"max_grade":100}}`))
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created gateway.ActivityCreated
	unmarchall(t, rec, &created)
	actID := created.ActivityID

	ok := marchallObj(t, gateway.Empty{Status: gateway.StatusSuccess})
	f.run(t, []httpTest{
		{
			name: "invalid payload", method: http.MethodPost, path: "/v1/sections/" + secID + "/activities", token: token,
			body: []byte(`{"type":"quiz","title":"Quiz 2","type_payload":{"max_grade":0}}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown type", method: http.MethodPost, path: "/v1/sections/" + secID + "/activities", token: token,
			body: []byte(`{"type":"video","title":"V"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "rename", method: http.MethodPut, path: "/v1/activities/" + actID, token: token,
			body: []byte(`{"title":"Final quiz"}`), wantCode: http.StatusOK, wantData: ok,
		},
		{
			name: "update", method: http.MethodPatch, path: "/v1/activities/" + actID, token: token,
			body: []byte(`{"description":"20 questions","type_payload":{"max_grade":20}}`), wantCode: http.StatusOK, wantData: ok,
		},
		{
			name: "empty update", method: http.MethodPatch, path: "/v1/activities/" + actID, token: token,
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "tree", path: "/v1/courses/" + crs.ID + "/tree", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, gateway.TreeResponse{
				Status:   gateway.StatusSuccess,
				CourseID: crs.ID,
				Sections: []course.SectionNode{{
					ID: secID, Position: 0, Name: "Week 1",
					Activities: []course.ActivityNode{
						{ID: actID, Type: course.TypeQuiz, Title: "Final quiz", Description: "20 questions"},
					},
				}},
			}),
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/activities/" + actID, token: token, wantCode: http.StatusOK, wantData: ok},
		{name: "delete again", method: http.MethodDelete, path: "/v1/activities/" + actID, token: token, wantCode: http.StatusOK, wantData: ok},
		{
			name: "delete unknown", method: http.MethodDelete, path: "/v1/activities/nope", token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, notFoundResp(course.KindActivity, "nope")),
		},
	})
}

func Test_outlineApi_dispatch(t *testing.T) {
	f := setup(t)
	token := getToken(t, false, true)
	crs := testutil.CreateCourse(t, f.Svc, "Algebra")

	req, rec := newAuthRequest(http.MethodPost, "/v1/outline", token,
		marchallObj(t, map[string]string{"op": gateway.OpCreateSection, "course_id": crs.ID, "name": "Intro"}))
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created gateway.SectionCreated
	unmarchall(t, rec, &created)

	f.run(t, []httpTest{
		{
			name: "list_tree", method: http.MethodPost, path: "/v1/outline", token: token,
			body:     marchallObj(t, map[string]string{"op": gateway.OpListTree, "course_id": crs.ID}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, gateway.TreeResponse{
				Status:   gateway.StatusSuccess,
				CourseID: crs.ID,
				Sections: []course.SectionNode{
					{ID: created.SectionID, Position: 0, Name: "Intro", Activities: []course.ActivityNode{}},
				},
			}),
		},
		{
			name: "unknown op", method: http.MethodPost, path: "/v1/outline", token: token,
			body: []byte(`{"op":"lol"}`), wantCode: http.StatusBadRequest,
		},
	})
}

func Test_outlineApi_conflict(t *testing.T) {
	f := setup(t)
	token := getToken(t, true, false)
	crs := testutil.CreateCourse(t, f.Svc, "Algebra")

	unlock, err := f.locker.Lock(context.Background(), crs.ID)
	require.NoError(t, err)
	defer unlock()

	f.run(t, []httpTest{
		{
			name: "busy course", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/sections", token: token,
			body: []byte(`{"name":"x"}`), wantCode: http.StatusConflict,
		},
		{
			name: "reads still served", path: "/v1/courses/" + crs.ID + "/tree", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, gateway.TreeResponse{Status: gateway.StatusSuccess, CourseID: crs.ID, Sections: []course.SectionNode{}}),
		},
	})
}
