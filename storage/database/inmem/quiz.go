package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-lms/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

func copyQuestions(qz *quiz.Quiz) {
	questions := make([]quiz.Question, len(qz.Questions))
	for i, qn := range qz.Questions {
		qn.Options = append([]string{}, qn.Options...)
		if qn.Answer != nil {
			answer := *qn.Answer
			qn.Answer = &answer
		}
		qn.QuizID = qz.ID
		if qn.ID == "" {
			qn.ID = newID()
		}
		questions[i] = qn
	}
	qz.Questions = questions
}

func (repo *quizRepository) CreateQuiz(_ context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	qz.ID = newID()
	copyQuestions(&qz)
	repo.db.quizzes[qz.ID] = qz
	copyQuestions(&qz)
	return qz, nil
}

func (repo *quizRepository) QueryQuizzes(_ context.Context, filter *quiz.QueryFilter) ([]quiz.Quiz, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	quizzes := make([]quiz.Quiz, 0)
	for _, qz := range repo.db.quizzes {
		if filter != nil {
			if filter.CourseIDs != nil && !containsString(filter.CourseIDs, qz.CourseID) {
				continue
			}
			if filter.PublishedOnly && !qz.IsPublished {
				continue
			}
		}
		qz.Questions = nil
		quizzes = append(quizzes, qz)
	}
	sort.SliceStable(quizzes, func(i, j int) bool { return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt) })
	return quizzes, nil
}

func (repo *quizRepository) GetQuiz(_ context.Context, id string) (quiz.Quiz, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	qz, ok := repo.db.quizzes[id]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	copyQuestions(&qz)
	sort.SliceStable(qz.Questions, func(i, j int) bool { return qz.Questions[i].Position < qz.Questions[j].Position })
	return qz, nil
}

func (repo *quizRepository) UpdateQuiz(_ context.Context, qz quiz.Quiz, replaceQuestions bool) (quiz.Quiz, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.quizzes[qz.ID]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	if replaceQuestions {
		for i := range qz.Questions {
			qz.Questions[i].ID = ""
		}
	} else {
		qz.Questions = orig.Questions
	}
	qz.CourseID = orig.CourseID
	qz.CreatedAt = orig.CreatedAt
	copyQuestions(&qz)
	repo.db.quizzes[qz.ID] = qz
	copyQuestions(&qz)
	return qz, nil
}

func (repo *quizRepository) DeleteQuiz(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.quizzes[id]; !ok {
		return quiz.ErrNotFound
	}
	delete(repo.db.quizzes, id)
	repo.db.cascadeQuiz(id)
	return nil
}

func (repo *quizRepository) CreateAttempt(_ context.Context, att quiz.Attempt) (quiz.Attempt, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	att.ID = newID()
	att.Answers = append([]int{}, att.Answers...)
	repo.db.attempts[att.ID] = att
	return att, nil
}

func (repo *quizRepository) QueryAttempts(_ context.Context, quizID, studentID string) ([]quiz.Attempt, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	atts := make([]quiz.Attempt, 0)
	for _, att := range repo.db.attempts {
		if att.QuizID != quizID || (studentID != "" && att.StudentID != studentID) {
			continue
		}
		att.Answers = append([]int{}, att.Answers...)
		atts = append(atts, att)
	}
	sort.SliceStable(atts, func(i, j int) bool {
		if atts[i].CreatedAt.Equal(atts[j].CreatedAt) {
			return atts[i].ID < atts[j].ID
		}
		return atts[i].CreatedAt.After(atts[j].CreatedAt)
	})
	return atts, nil
}
