package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

func enrollmentIDs(enrs []enrollment.Enrollment) []string {
	return ids(enrs, func(e enrollment.Enrollment) string { return e.ID })
}

func Test_enrollmentApi_enroll(t *testing.T) {
	app := setup(t)
	_, teacher, student := app.users(t)
	crs := testutil.CreateCourse(t, app.CourseSvc, teacher.ID, "Algebra", "alg101", true)
	draft := testutil.CreateCourse(t, app.CourseSvc, teacher.ID, "Geometry", "geo101", false)
	path := "/v1/courses/" + crs.ID + "/enrollment"
	studentToken := app.token(t, student)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: path, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "students only", method: http.MethodPost, path: path, token: app.token(t, teacher), wantCode: http.StatusForbidden},
		{
			name: "unpublished course", method: http.MethodPost, path: "/v1/courses/" + draft.ID + "/enrollment", token: studentToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "drop without enrollment", method: http.MethodDelete, path: path, token: studentToken,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: enrollment.ErrNotEnrolled.Error()}),
		},
	})

	var enr enrollment.Enrollment
	t.Run("enroll", func(t *testing.T) {
		rec := app.do(http.MethodPost, path, studentToken, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &enr)
		assert.Equal(t, crs.ID, enr.CourseID)
		assert.Equal(t, student.ID, enr.StudentID)
		assert.Equal(t, enrollment.StatusActive, enr.Status)
	})

	t.Run("enroll twice", func(t *testing.T) {
		rec := app.do(http.MethodPost, path, studentToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error": "`+enrollment.ErrAlreadyEnrolled.Error()+`"}`, rec.Body.String())
	})

	t.Run("drop", func(t *testing.T) {
		rec := app.do(http.MethodDelete, path, studentToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got enrollment.Enrollment
		decode(t, rec, &got)
		assert.Equal(t, enr.ID, got.ID)
		assert.Equal(t, enrollment.StatusDropped, got.Status)
	})

	t.Run("re-enroll", func(t *testing.T) {
		rec := app.do(http.MethodPost, path, studentToken, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got enrollment.Enrollment
		decode(t, rec, &got)
		assert.Equal(t, enr.ID, got.ID)
		assert.Equal(t, enrollment.StatusActive, got.Status)
	})

	t.Run("confirmation emails", func(t *testing.T) {
		assert.Len(t, app.Mail.SentMessages(), 2)
	})
}

func Test_enrollmentApi_students(t *testing.T) {
	app := setup(t)
	admin, teacher, student := app.users(t)
	other := testutil.CreateUser(t, app.UserRepo, "Other", "other", "other@test.cd", "", []string{user.RoleTeacher}, true)
	crs := testutil.CreateCourse(t, app.CourseSvc, teacher.ID, "Algebra", "alg101", true)
	testutil.Enroll(t, app.EnrollmentSvc, student, crs)
	path := "/v1/courses/" + crs.ID + "/students"

	runHTTPTests(t, app, []httpTest{
		{name: "students cannot list", path: path, token: app.token(t, student), wantCode: http.StatusForbidden},
		{name: "other teachers cannot list", path: path, token: app.token(t, other), wantCode: http.StatusForbidden},
	})

	for _, usr := range []user.User{admin, teacher} {
		t.Run(usr.Username, func(t *testing.T) {
			rec := app.do(http.MethodGet, path, app.token(t, usr), nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got []enrollment.Student
			decode(t, rec, &got)
			require.Len(t, got, 1)
			assert.Equal(t, student.Summary(), got[0].Summary)
			assert.Equal(t, enrollment.StatusActive, got[0].Status)
		})
	}
}

func Test_enrollmentApi_query(t *testing.T) {
	app := setup(t)
	admin, teacher, student := app.users(t)
	other := testutil.CreateUser(t, app.UserRepo, "Other", "other", "other@test.cd", "", []string{user.RoleTeacher}, true)
	student2 := testutil.CreateUser(t, app.UserRepo, "Student 2", "student2", "student2@test.cd", "", []string{user.RoleStudent}, true)

	algebra := testutil.CreateCourse(t, app.CourseSvc, teacher.ID, "Algebra", "alg101", true)
	geometry := testutil.CreateCourse(t, app.CourseSvc, teacher.ID, "Geometry", "geo101", true)
	history := testutil.CreateCourse(t, app.CourseSvc, other.ID, "History", "his101", true)

	e1 := testutil.Enroll(t, app.EnrollmentSvc, student, algebra)
	e2 := testutil.Enroll(t, app.EnrollmentSvc, student, history)
	e3 := testutil.Enroll(t, app.EnrollmentSvc, student2, geometry)

	cases := []struct {
		name  string
		path  string
		token string
		want  []enrollment.Enrollment
	}{
		{"admin", "/v1/enrollments", app.token(t, admin), []enrollment.Enrollment{e1, e2, e3}},
		{"admin by course", "/v1/enrollments?course_id=" + history.ID, app.token(t, admin), []enrollment.Enrollment{e2}},
		{"admin by student", "/v1/enrollments?student_id=" + student2.ID, app.token(t, admin), []enrollment.Enrollment{e3}},
		{"teacher", "/v1/enrollments", app.token(t, teacher), []enrollment.Enrollment{e1, e3}},
		{"teacher by course", "/v1/enrollments?course_id=" + geometry.ID, app.token(t, teacher), []enrollment.Enrollment{e3}},
		{"teacher other course", "/v1/enrollments?course_id=" + history.ID, app.token(t, teacher), []enrollment.Enrollment{}},
		{"student", "/v1/enrollments", app.token(t, student), []enrollment.Enrollment{e1, e2}},
		{"student cannot see others", "/v1/enrollments?student_id=" + student2.ID, app.token(t, student), []enrollment.Enrollment{e1, e2}},
		{"status", "/v1/enrollments?status=dropped", app.token(t, admin), []enrollment.Enrollment{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, tc.path, tc.token, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got []enrollment.Enrollment
			decode(t, rec, &got)
			assert.ElementsMatch(t, enrollmentIDs(tc.want), enrollmentIDs(got))
		})
	}
}

func Test_enrollmentApi_updateStatus(t *testing.T) {
	app := setup(t)
	admin, teacher, student := app.users(t)
	other := testutil.CreateUser(t, app.UserRepo, "Other", "other", "other@test.cd", "", []string{user.RoleTeacher}, true)
	crs := testutil.CreateCourse(t, app.CourseSvc, teacher.ID, "Algebra", "alg101", true)
	enr := testutil.Enroll(t, app.EnrollmentSvc, student, crs)
	path := "/v1/enrollments/" + enr.ID

	runHTTPTests(t, app, []httpTest{
		{
			name: "unknown", method: http.MethodPut, path: "/v1/enrollments/lol", token: app.token(t, admin), body: []byte(`{"status": "completed"}`),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "enrollment not found"}),
		},
		{name: "students cannot update", method: http.MethodPut, path: path, token: app.token(t, student), body: []byte(`{"status": "completed"}`), wantCode: http.StatusForbidden},
		{name: "other teachers cannot update", method: http.MethodPut, path: path, token: app.token(t, other), body: []byte(`{"status": "completed"}`), wantCode: http.StatusForbidden},
		{name: "invalid status", method: http.MethodPut, path: path, token: app.token(t, teacher), body: []byte(`{"status": "graduated"}`), wantCode: http.StatusBadRequest},
		{
			name: "status required", method: http.MethodPut, path: path, token: app.token(t, teacher), body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"status": "this field is required"}),
		},
	})

	rec := app.do(http.MethodPut, path, app.token(t, teacher), []byte(`{"status": "completed"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got enrollment.Enrollment
	decode(t, rec, &got)
	assert.Equal(t, enrollment.StatusCompleted, got.Status)

	enr, err := app.EnrollmentSvc.GetByID(context.Background(), enr.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCompleted, enr.Status)
}
