package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/enrollment"
)

var (
	// errors
	ErrNotFound    = &core.NotFoundError{Resource: "quiz"}
	ErrNotEnrolled = errors.New("you must be enrolled in this course")
)

type (
	Repository interface {
		// CreateQuiz creates the Quiz along with its questions.
		CreateQuiz(ctx context.Context, qz Quiz) (Quiz, error)
		// QueryQuizzes returns quizzes without their questions, most recent first.
		QueryQuizzes(ctx context.Context, filter *QueryFilter) ([]Quiz, error)
		// GetQuiz returns the Quiz with its questions ordered by position.
		GetQuiz(ctx context.Context, id string) (Quiz, error)
		// UpdateQuiz updates the Quiz; its questions are replaced when replaceQuestions is true.
		UpdateQuiz(ctx context.Context, qz Quiz, replaceQuestions bool) (Quiz, error)
		DeleteQuiz(ctx context.Context, id string) error

		CreateAttempt(ctx context.Context, att Attempt) (Attempt, error)
		// QueryAttempts returns the attempts on quizID (of studentID only, if not empty), most recent first.
		QueryAttempts(ctx context.Context, quizID, studentID string) ([]Attempt, error)
	}

	Service struct {
		repo   Repository
		enrSvc *enrollment.Service
	}
)

func NewService(repo Repository, enrSvc *enrollment.Service) *Service {
	return &Service{repo: repo, enrSvc: enrSvc}
}

func newQuestions(nqs []NewQuestion) []Question {
	questions := make([]Question, len(nqs))
	for i, nq := range nqs {
		answer := nq.Answer
		questions[i] = Question{
			Prompt:   nq.Prompt,
			Options:  nq.Options,
			Answer:   &answer,
			Points:   nq.Points,
			Position: i + 1,
		}
	}
	return questions
}

func (svc *Service) Create(ctx context.Context, crs course.Course, nq NewQuiz) (Quiz, error) {
	now := time.Now().UTC()
	qz := Quiz{
		CourseID:    crs.ID,
		LessonID:    nq.LessonID,
		Title:       nq.Title,
		Description: nq.Description,
		IsPublished: nq.IsPublished,
		PassMark:    defaultPassMark,
		Questions:   newQuestions(nq.Questions),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nq.PassMark != nil {
		qz.PassMark = *nq.PassMark
	}
	qz, err := svc.repo.CreateQuiz(ctx, qz)
	return qz, errors.Wrap(err, "creating quiz")
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]Quiz, error) {
	quizzes, err := svc.repo.QueryQuizzes(ctx, &QueryFilter{CourseIDs: []string{courseID}, PublishedOnly: publishedOnly})
	return quizzes, errors.Wrap(err, "querying quizzes")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, id)
}

func (svc *Service) Update(ctx context.Context, qz Quiz, uq UpdateQuiz) (Quiz, error) {
	if uq.Title != nil {
		qz.Title = *uq.Title
	}
	if uq.Description != nil {
		qz.Description = *uq.Description
	}
	if uq.LessonID != nil {
		qz.LessonID = *uq.LessonID
	}
	if uq.IsPublished != nil {
		qz.IsPublished = *uq.IsPublished
	}
	if uq.PassMark != nil {
		qz.PassMark = *uq.PassMark
	}
	replace := uq.Questions != nil
	if replace {
		qz.Questions = newQuestions(uq.Questions)
	}
	qz.UpdatedAt = time.Now().UTC()

	qz, err := svc.repo.UpdateQuiz(ctx, qz, replace)
	return qz, errors.Wrap(err, "updating quiz")
}

func (svc *Service) Delete(ctx context.Context, qz Quiz) error {
	return errors.Wrap(svc.repo.DeleteQuiz(ctx, qz.ID), "deleting quiz")
}

// Grade computes the score of answers on qz.
func Grade(qz Quiz, answers []int) (score, maxScore int, passed bool) {
	for i, qn := range qz.Questions {
		maxScore += qn.Points
		if i < len(answers) && qn.IsCorrect(answers[i]) {
			score += qn.Points
		}
	}
	if maxScore > 0 {
		passed = score*100/maxScore >= qz.PassMark
	}
	return score, maxScore, passed
}

// Submit records and grades an attempt of studentID on a published Quiz.
func (svc *Service) Submit(ctx context.Context, studentID string, qz Quiz, na NewAttempt) (Attempt, error) {
	if !qz.IsPublished {
		return Attempt{}, ErrNotFound
	}
	enrolled, err := svc.enrSvc.IsEnrolled(ctx, qz.CourseID, studentID)
	if err != nil {
		return Attempt{}, err
	}
	if !enrolled {
		return Attempt{}, core.NewValidationError(ErrNotEnrolled)
	}
	if len(na.Answers) != len(qz.Questions) {
		msg := fmt.Sprintf("expected %d answers, got %d", len(qz.Questions), len(na.Answers))
		return Attempt{}, core.NewFieldError("answers", msg)
	}

	score, maxScore, passed := Grade(qz, na.Answers)
	att := Attempt{
		QuizID:    qz.ID,
		StudentID: studentID,
		Answers:   na.Answers,
		Score:     score,
		MaxScore:  maxScore,
		Passed:    passed,
		CreatedAt: time.Now().UTC(),
	}
	att, err = svc.repo.CreateAttempt(ctx, att)
	return att, errors.Wrap(err, "creating attempt")
}

// ListAttempts returns the attempts on qz; only those of studentID if not empty.
func (svc *Service) ListAttempts(ctx context.Context, qz Quiz, studentID string) ([]Attempt, error) {
	atts, err := svc.repo.QueryAttempts(ctx, qz.ID, studentID)
	return atts, errors.Wrap(err, "querying attempts")
}
