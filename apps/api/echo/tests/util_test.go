package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/masomo/apps/api/echo"
	"github.com/trezcool/masomo/apps/gateway"
	"github.com/trezcool/masomo/core"
	locksvc "github.com/trezcool/masomo/services/lock"
	testutil "github.com/trezcool/masomo/tests"
)

const secretKey = "test-secret"

var errMissingToken = gateway.ErrorResponse{Status: gateway.StatusError, Kind: "unauthorized", Message: "missing or malformed jwt"}

type fixture struct {
	testutil.Outline
	app    *echoapi.Server
	locker *locksvc.MemoryLocker
}

func setup(t *testing.T) fixture {
	outline := testutil.NewOutline(t)
	locker := locksvc.NewMemoryLocker(50 * time.Millisecond)
	conf := &core.Config{Env: "TEST", TestMode: true, SecretKey: secretKey, AuthEnabled: true}
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         core.NopLogger{},
		Gateway:        gateway.New(outline.Svc, locker, core.NopLogger{}),
		DisableReqLogs: true,
	})
	return fixture{Outline: outline, app: app, locker: locker}
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, isAdmin, isTeacher bool) string {
	claims := echoapi.NewClaims("u1", "awe", isAdmin, isTeacher, time.Hour)
	token, err := echoapi.GenerateToken(claims, secretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarchall() failed: %v; body %s", err, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func (f fixture) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
