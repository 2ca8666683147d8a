package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*testutil.Env
	srv Server
}

// setup builds a server on a fresh testutil.Env; configure may swap services or set options first.
func setup(t *testing.T, configure ...func(env *testutil.Env, opts *Options)) *testApp {
	t.Helper()
	env := testutil.NewEnv()
	opts := &Options{
		Conf:            env.Conf,
		Logger:          env.Logger,
		Validate:        env.Validate,
		Translator:      env.Translator,
		DisableReqLogs:  true,
		UserSvc:         env.UserSvc,
		CourseSvc:       env.CourseSvc,
		EnrollmentSvc:   env.EnrollmentSvc,
		ProgressSvc:     env.ProgressSvc,
		QuizSvc:         env.QuizSvc,
		AssignmentSvc:   env.AssignmentSvc,
		AnnouncementSvc: env.AnnouncementSvc,
		DashboardSvc:    env.DashboardSvc,
	}
	for _, fn := range configure {
		fn(env, opts)
	}
	return &testApp{Env: env, srv: NewServer(opts)}
}

// users creates one user per role group: admin, teacher, student.
func (app *testApp) users(t *testing.T) (admin, teacher, student user.User) {
	admin = testutil.CreateUser(t, app.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher = testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student = testutil.CreateUser(t, app.UserRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	return
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	return getToken(t, app, usr)
}

// do sends a JSON request to the server.
func (app *testApp) do(method, path, token string, body []byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, body)
	app.srv.ServeHTTP(rec, req)
	return rec
}

// upload sends a multipart request with the given form fields and an optional file.
func (app *testApp) upload(t *testing.T, method, path, token string, fields map[string]string, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		h["Content-Type"] = []string{contentType}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
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
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, app *testApp, usr user.User) string {
	token, err := GenerateToken(app.Conf, GetUserClaims(app.Conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, app.do(method, tt.path, tt.token, tt.body))
		})
	}
}

func ids[T any](objs []T, id func(T) string) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = id(o)
	}
	return out
}
