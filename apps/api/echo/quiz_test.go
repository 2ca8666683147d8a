package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

const quizBody = `{
	"title": "Numbers",
	"is_published": true,
	"pass_mark": 60,
	"questions": [
		{"prompt": "1 + 1 ?", "options": ["1", "2", "3"], "answer": 1},
		{"prompt": "2 x 3 ?", "options": ["6", "5"], "answer": 0, "points": 2}
	]
}`

func Test_quizApi_create(t *testing.T) {
	app := setup(t)
	_, teacher, student := app.users(t)
	crs := testutil.CreateCourse(t, app.CourseSvc, teacher.ID, "Algebra", "alg101", true)
	other := testutil.CreateCourse(t, app.CourseSvc, teacher.ID, "Geometry", "geo101", true)
	lsn := testutil.CreateLesson(t, app.CourseSvc, other, "Intro", true)
	path := "/v1/courses/" + crs.ID + "/quizzes"
	teacherToken := app.token(t, teacher)

	runHTTPTests(t, app, []httpTest{
		{name: "students cannot create", method: http.MethodPost, path: path, token: app.token(t, student), body: []byte(quizBody), wantCode: http.StatusForbidden},
		{
			name: "questions required", method: http.MethodPost, path: path, token: teacherToken, body: []byte(`{"title": "Empty"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"questions": "this field is required"}),
		},
		{
			name: "answer out of options", method: http.MethodPost, path: path, token: teacherToken,
			body:     []byte(`{"title": "Bad", "questions": [{"prompt": "?", "options": ["a", "b"], "answer": 2}]}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"answer": "answer must be the index of one of the options"}),
		},
		{
			name: "lesson of another course", method: http.MethodPost, path: path, token: teacherToken,
			body:     []byte(`{"title": "Bad", "lesson_id": "` + lsn.ID + `", "questions": [{"prompt": "?", "options": ["a", "b"]}]}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"lesson_id": errUnknownLesson}),
		},
	})

	rec := app.do(http.MethodPost, path, teacherToken, []byte(quizBody))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got quiz.Quiz
	decode(t, rec, &got)
	assert.Equal(t, crs.ID, got.CourseID)
	assert.Equal(t, 60, got.PassMark)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, 1, got.Questions[0].Points)
	assert.Equal(t, 3, got.MaxScore())
	require.NotNil(t, got.Questions[1].Answer)
	assert.Equal(t, 0, *got.Questions[1].Answer)
}

type quizFixture struct {
	app                      *testApp
	teacher, student, other  user.User
	published, draft         quiz.Quiz
	teacherToken, studentTkn string
}

func newQuizFixture(t *testing.T) *quizFixture {
	app := setup(t)
	_, teacher, student := app.users(t)
	other := testutil.CreateUser(t, app.UserRepo, "Student 2", "student2", "student2@test.cd", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, app.CourseSvc, teacher.ID, "Algebra", "alg101", true)
	testutil.Enroll(t, app.EnrollmentSvc, student, crs)

	f := &quizFixture{app: app, teacher: teacher, student: student, other: other}
	f.teacherToken = app.token(t, teacher)
	f.studentTkn = app.token(t, student)

	rec := app.do(http.MethodPost, "/v1/courses/"+crs.ID+"/quizzes", f.teacherToken, []byte(quizBody))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &f.published)

	rec = app.do(http.MethodPost, "/v1/courses/"+crs.ID+"/quizzes", f.teacherToken, []byte(`{"title": "Draft", "questions": [{"prompt": "?", "options": ["a", "b"]}]}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &f.draft)
	return f
}

func Test_quizApi_retrieve(t *testing.T) {
	f := newQuizFixture(t)
	app := f.app

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/quizzes/" + f.published.ID, wantCode: http.StatusUnauthorized},
		{name: "unknown", path: "/v1/quizzes/" + uuid.New().String(), token: f.studentTkn, wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "quiz not found"})},
		{name: "draft hidden from students", path: "/v1/quizzes/" + f.draft.ID, token: f.studentTkn, wantCode: http.StatusNotFound},
		{name: "not enrolled", path: "/v1/quizzes/" + f.published.ID, token: app.token(t, f.other), wantCode: http.StatusForbidden},
		{name: "draft visible to teacher", path: "/v1/quizzes/" + f.draft.ID, token: f.teacherToken, wantCode: http.StatusOK},
	})

	t.Run("answers hidden from students", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/quizzes/"+f.published.ID, f.studentTkn, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got quiz.Quiz
		decode(t, rec, &got)
		require.Len(t, got.Questions, 2)
		for _, qn := range got.Questions {
			assert.Nil(t, qn.Answer)
		}
		assert.NotContains(t, rec.Body.String(), `"answer"`)
	})

	t.Run("answers shown to teacher", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/quizzes/"+f.published.ID, f.teacherToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got quiz.Quiz
		decode(t, rec, &got)
		require.Len(t, got.Questions, 2)
		assert.NotNil(t, got.Questions[0].Answer)
	})

	t.Run("course quizzes", func(t *testing.T) {
		quizIDs := func(qs []quiz.Quiz) []string { return ids(qs, func(q quiz.Quiz) string { return q.ID }) }
		path := "/v1/courses/" + f.published.CourseID + "/quizzes"

		rec := app.do(http.MethodGet, path, f.studentTkn, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got []quiz.Quiz
		decode(t, rec, &got)
		assert.Equal(t, []string{f.published.ID}, quizIDs(got))

		rec = app.do(http.MethodGet, path, f.teacherToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &got)
		assert.ElementsMatch(t, []string{f.published.ID, f.draft.ID}, quizIDs(got))

		rec = app.do(http.MethodGet, path, app.token(t, f.other), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_quizApi_update(t *testing.T) {
	f := newQuizFixture(t)
	app := f.app
	path := "/v1/quizzes/" + f.draft.ID

	rec := app.do(http.MethodPut, "/v1/quizzes/"+f.published.ID, f.studentTkn, []byte(`{"title": "Hack"}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPut, path, f.teacherToken, []byte(`{"is_published": true, "questions": [{"prompt": "Sky?", "options": ["blue", "green"], "answer": 0}]}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got quiz.Quiz
	decode(t, rec, &got)
	assert.True(t, got.IsPublished)
	assert.Equal(t, "Draft", got.Title)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, "Sky?", got.Questions[0].Prompt)

	rec = app.do(http.MethodDelete, path, f.teacherToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, path, f.teacherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_quizApi_submit(t *testing.T) {
	f := newQuizFixture(t)
	app := f.app
	path := "/v1/quizzes/" + f.published.ID + "/attempts"

	runHTTPTests(t, app, []httpTest{
		{name: "students only", method: http.MethodPost, path: path, token: f.teacherToken, body: []byte(`{"answers": [1, 0]}`), wantCode: http.StatusForbidden},
		{
			name: "not enrolled", method: http.MethodPost, path: path, token: app.token(t, f.other), body: []byte(`{"answers": [1, 0]}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: quiz.ErrNotEnrolled.Error()}),
		},
		{
			name: "draft", method: http.MethodPost, path: "/v1/quizzes/" + f.draft.ID + "/attempts", token: f.studentTkn,
			body: []byte(`{"answers": [0]}`), wantCode: http.StatusNotFound,
		},
		{
			name: "answers required", method: http.MethodPost, path: path, token: f.studentTkn, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"answers": "this field is required"}),
		},
		{
			name: "wrong answer count", method: http.MethodPost, path: path, token: f.studentTkn, body: []byte(`{"answers": [1]}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"answers": "expected 2 answers, got 1"}),
		},
	})

	submit := func(t *testing.T, body string) quiz.Attempt {
		rec := app.do(http.MethodPost, path, f.studentTkn, []byte(body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var att quiz.Attempt
		decode(t, rec, &att)
		return att
	}

	failed := submit(t, `{"answers": [1, 1]}`)
	assert.Equal(t, 1, failed.Score)
	assert.Equal(t, 3, failed.MaxScore)
	assert.False(t, failed.Passed)

	passed := submit(t, `{"answers": [0, 0]}`)
	assert.Equal(t, 2, passed.Score)
	assert.True(t, passed.Passed)

	attemptIDs := func(atts []quiz.Attempt) []string { return ids(atts, func(a quiz.Attempt) string { return a.ID }) }

	t.Run("student attempts", func(t *testing.T) {
		rec := app.do(http.MethodGet, path, f.studentTkn, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got []quiz.Attempt
		decode(t, rec, &got)
		assert.ElementsMatch(t, []string{failed.ID, passed.ID}, attemptIDs(got))
	})

	t.Run("teacher sees all attempts", func(t *testing.T) {
		crs, err := app.CourseSvc.GetByID(context.Background(), f.published.CourseID)
		require.NoError(t, err)
		testutil.Enroll(t, app.EnrollmentSvc, f.other, crs)
		rec := app.do(http.MethodPost, path, app.token(t, f.other), []byte(`{"answers": [1, 0]}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var third quiz.Attempt
		decode(t, rec, &third)
		assert.True(t, third.Passed)

		rec = app.do(http.MethodGet, path, f.teacherToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got []quiz.Attempt
		decode(t, rec, &got)
		assert.ElementsMatch(t, []string{failed.ID, passed.ID, third.ID}, attemptIDs(got))
	})
}
