package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
)

const defaultPassMark = 50

type Quiz struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	LessonID    string     `json:"lesson_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsPublished bool       `json:"is_published"`
	PassMark    int        `json:"pass_mark"` // percentage
	Questions   []Question `json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

// MaxScore is the sum of the points of the Quiz's questions.
func (q Quiz) MaxScore() int {
	var max int
	for _, qn := range q.Questions {
		max += qn.Points
	}
	return max
}

// WithoutAnswers returns a copy of the Quiz that can be shown to students.
func (q Quiz) WithoutAnswers() Quiz {
	questions := make([]Question, len(q.Questions))
	for i, qn := range q.Questions {
		qn.Answer = nil
		questions[i] = qn
	}
	q.Questions = questions
	return q
}

type Question struct {
	ID       string   `json:"id"`
	QuizID   string   `json:"quiz_id"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
	Answer   *int     `json:"answer,omitempty"` // index in Options
	Points   int      `json:"points"`
	Position int      `json:"position"`
}

func (qn Question) IsCorrect(answer int) bool {
	return qn.Answer != nil && *qn.Answer == answer
}

type Attempt struct {
	ID        string    `json:"id"`
	QuizID    string    `json:"quiz_id"`
	StudentID string    `json:"student_id"`
	Answers   []int     `json:"answers"`
	Score     int       `json:"score"`
	MaxScore  int       `json:"max_score"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewQuestion contains information needed to create a Question.
type NewQuestion struct {
	Prompt  string   `json:"prompt" validate:"required,notblank"`
	Options []string `json:"options" validate:"required,min=2,dive,required"`
	Answer  int      `json:"answer" validate:"min=0"`
	Points  int      `json:"points" validate:"min=0"`
}

func (nq *NewQuestion) clean() {
	nq.Prompt = core.CleanString(nq.Prompt)
	for i, opt := range nq.Options {
		nq.Options[i] = core.CleanString(opt)
	}
	if nq.Points == 0 {
		nq.Points = 1
	}
}

// NewQuiz contains information needed to create a Quiz.
type NewQuiz struct {
	Title       string        `json:"title" validate:"required,notblank,max=200"`
	Description string        `json:"description"`
	LessonID    string        `json:"lesson_id" validate:"omitempty,uuid"`
	IsPublished bool          `json:"is_published"`
	PassMark    *int          `json:"pass_mark" validate:"omitempty,min=0,max=100"`
	Questions   []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.Description = core.SanitizeHTML(nq.Description)
	for i := range nq.Questions {
		nq.Questions[i].clean()
	}
	return validate.Struct(nq)
}

// UpdateQuiz defines what information may be provided to modify an existing Quiz.
// When Questions is provided, it replaces all the questions of the Quiz.
type UpdateQuiz struct {
	Title       *string       `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string       `json:"description"`
	LessonID    *string       `json:"lesson_id" validate:"omitempty,uuid"`
	IsPublished *bool         `json:"is_published"`
	PassMark    *int          `json:"pass_mark" validate:"omitempty,min=0,max=100"`
	Questions   []NewQuestion `json:"questions" validate:"omitempty,min=1,dive"`
}

func (uq *UpdateQuiz) Validate(validate *validator.Validate) error {
	if uq.Title != nil {
		title := core.CleanString(*uq.Title)
		uq.Title = &title
	}
	if uq.Description != nil {
		desc := core.SanitizeHTML(*uq.Description)
		uq.Description = &desc
	}
	for i := range uq.Questions {
		uq.Questions[i].clean()
	}
	return validate.Struct(uq)
}

type NewAttempt struct {
	Answers []int `json:"answers" validate:"required"`
}

func (na NewAttempt) Validate(validate *validator.Validate) error { return validate.Struct(na) }

type QueryFilter struct {
	CourseIDs     []string
	PublishedOnly bool
}
