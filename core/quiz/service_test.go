package quiz_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

func intPtr(i int) *int { return &i }

func TestGrade(t *testing.T) {
	qz := quiz.Quiz{
		PassMark: 50,
		Questions: []quiz.Question{
			{Answer: intPtr(0), Points: 1},
			{Answer: intPtr(2), Points: 1},
			{Answer: intPtr(1), Points: 2},
		},
	}

	tests := []struct {
		name       string
		answers    []int
		wantScore  int
		wantPassed bool
	}{
		{name: "all wrong", answers: []int{1, 1, 0}, wantScore: 0, wantPassed: false},
		{name: "one point", answers: []int{0, 0, 0}, wantScore: 1, wantPassed: false},
		{name: "exactly the pass mark", answers: []int{9, 9, 1}, wantScore: 2, wantPassed: true},
		{name: "all right", answers: []int{0, 2, 1}, wantScore: 4, wantPassed: true},
		{name: "too few answers", answers: []int{0}, wantScore: 1, wantPassed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, maxScore, passed := quiz.Grade(qz, tt.answers)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, 4, maxScore)
			assert.Equal(t, tt.wantPassed, passed)
		})
	}

	_, maxScore, passed := quiz.Grade(quiz.Quiz{PassMark: 0}, nil)
	assert.Equal(t, 0, maxScore)
	assert.False(t, passed, "an empty quiz cannot be passed")
}

func TestNewQuiz_Validate(t *testing.T) {
	env := testutil.NewEnv()

	valid := func() quiz.NewQuiz {
		return quiz.NewQuiz{
			Title: "  Week 1  ",
			Questions: []quiz.NewQuestion{
				{Prompt: "2 + 2?", Options: []string{"3", "4"}, Answer: 1},
			},
		}
	}

	nq := valid()
	require.NoError(t, nq.Validate(env.Validate))
	assert.Equal(t, "Week 1", nq.Title)
	assert.Equal(t, 1, nq.Questions[0].Points, "points default to 1")

	tests := []struct {
		name    string
		mutate  func(nq *quiz.NewQuiz)
		wantTag string
	}{
		{name: "no title", mutate: func(nq *quiz.NewQuiz) { nq.Title = " " }, wantTag: "required"},
		{name: "no questions", mutate: func(nq *quiz.NewQuiz) { nq.Questions = nil }, wantTag: "required"},
		{name: "pass mark > 100", mutate: func(nq *quiz.NewQuiz) { nq.PassMark = intPtr(101) }, wantTag: "max"},
		{name: "single option", mutate: func(nq *quiz.NewQuiz) { nq.Questions[0].Options = []string{"4"}; nq.Questions[0].Answer = 0 }, wantTag: "min"},
		{name: "answer out of range", mutate: func(nq *quiz.NewQuiz) { nq.Questions[0].Answer = 2 }, wantTag: "answeridx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nq := valid()
			tt.mutate(&nq)
			err := nq.Validate(env.Validate)
			require.Error(t, err)
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			assert.Equal(t, tt.wantTag, verrs[0].Tag())
		})
	}
}

func TestService_Submit(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	student := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	outsider := testutil.CreateUser(t, env.UserRepo, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, env.CourseSvc, "", "Algebra", "math101", true)
	testutil.Enroll(t, env.EnrollmentSvc, student, crs)

	nq := quiz.NewQuiz{
		Title:    "Week 1",
		PassMark: intPtr(60),
		Questions: []quiz.NewQuestion{
			{Prompt: "2 + 2?", Options: []string{"3", "4"}, Answer: 1},
			{Prompt: "3 * 3?", Options: []string{"6", "9", "12"}, Answer: 1, Points: 2},
		},
	}
	require.NoError(t, nq.Validate(env.Validate))
	draft, err := env.QuizSvc.Create(ctx, crs, nq)
	require.NoError(t, err)
	assert.Equal(t, 60, draft.PassMark)
	assert.Equal(t, 3, draft.MaxScore())
	require.Len(t, draft.Questions, 2)
	assert.Equal(t, 1, draft.Questions[0].Position)
	assert.Equal(t, 2, draft.Questions[1].Position)

	t.Run("unpublished", func(t *testing.T) {
		_, err := env.QuizSvc.Submit(ctx, student.ID, draft, quiz.NewAttempt{Answers: []int{1, 1}})
		assert.True(t, core.IsNotFound(err))
	})

	qz, err := env.QuizSvc.Update(ctx, draft, quiz.UpdateQuiz{IsPublished: testutil.BoolPtr(true)})
	require.NoError(t, err)
	qz, err = env.QuizSvc.GetByID(ctx, qz.ID)
	require.NoError(t, err)
	require.Len(t, qz.Questions, 2, "questions are kept when not provided")

	t.Run("not enrolled", func(t *testing.T) {
		_, err := env.QuizSvc.Submit(ctx, outsider.ID, qz, quiz.NewAttempt{Answers: []int{1, 1}})
		_, ok := errors.Cause(err).(*core.ValidationError)
		assert.True(t, ok)
	})

	t.Run("wrong number of answers", func(t *testing.T) {
		_, err := env.QuizSvc.Submit(ctx, student.ID, qz, quiz.NewAttempt{Answers: []int{1}})
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok)
		assert.Equal(t, "answers", verr.Fields[0].Field)
	})

	t.Run("failed then passed", func(t *testing.T) {
		att, err := env.QuizSvc.Submit(ctx, student.ID, qz, quiz.NewAttempt{Answers: []int{1, 0}})
		require.NoError(t, err)
		assert.Equal(t, 1, att.Score)
		assert.Equal(t, 3, att.MaxScore)
		assert.False(t, att.Passed)

		att, err = env.QuizSvc.Submit(ctx, student.ID, qz, quiz.NewAttempt{Answers: []int{0, 1}})
		require.NoError(t, err)
		assert.Equal(t, 2, att.Score)
		assert.True(t, att.Passed)

		atts, err := env.QuizSvc.ListAttempts(ctx, qz, student.ID)
		require.NoError(t, err)
		assert.Len(t, atts, 2)

		atts, err = env.QuizSvc.ListAttempts(ctx, qz, outsider.ID)
		require.NoError(t, err)
		assert.Empty(t, atts)
	})
}

func TestService_UpdateDelete(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	crs := testutil.CreateCourse(t, env.CourseSvc, "", "Algebra", "math101", true)
	nq := quiz.NewQuiz{
		Title: "Week 1",
		Questions: []quiz.NewQuestion{
			{Prompt: "2 + 2?", Options: []string{"3", "4"}, Answer: 1, Points: 1},
		},
	}
	qz, err := env.QuizSvc.Create(ctx, crs, nq)
	require.NoError(t, err)
	assert.Equal(t, 50, qz.PassMark, "default pass mark")

	uq := quiz.UpdateQuiz{
		Title: testutil.StrPtr("Week 2"),
		Questions: []quiz.NewQuestion{
			{Prompt: "1 + 1?", Options: []string{"2", "3"}, Answer: 0, Points: 1},
			{Prompt: "1 + 2?", Options: []string{"2", "3"}, Answer: 1, Points: 1},
		},
	}
	_, err = env.QuizSvc.Update(ctx, qz, uq)
	require.NoError(t, err)

	got, err := env.QuizSvc.GetByID(ctx, qz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Week 2", got.Title)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, "1 + 1?", got.Questions[0].Prompt)

	hidden := got.WithoutAnswers()
	for _, qn := range hidden.Questions {
		assert.Nil(t, qn.Answer)
	}
	assert.NotNil(t, got.Questions[0].Answer, "WithoutAnswers does not alter the original")

	quizzes, err := env.QuizSvc.QueryByCourse(ctx, crs.ID, true)
	require.NoError(t, err)
	assert.Empty(t, quizzes)
	quizzes, err = env.QuizSvc.QueryByCourse(ctx, crs.ID, false)
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Empty(t, quizzes[0].Questions)

	require.NoError(t, env.QuizSvc.Delete(ctx, got))
	_, err = env.QuizSvc.GetByID(ctx, qz.ID)
	assert.Equal(t, quiz.ErrNotFound, errors.Cause(err))
}
