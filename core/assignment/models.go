package assignment

import (
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
)

const defaultMaxPoints = 100

// Submission statuses
const (
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

type Assignment struct {
	ID            string     `json:"id"`
	CourseID      string     `json:"course_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	DueAt         *time.Time `json:"due_at"` // UTC
	MaxPoints     int        `json:"max_points"`
	Attachment    string     `json:"-"` // storage key
	AttachmentURL string     `json:"attachment_url"`
	CreatedAt     time.Time  `json:"created_at"` // UTC
	UpdatedAt     time.Time  `json:"updated_at"` // UTC
}

// IsDueBetween reports whether the Assignment is due within [from, to].
func (a Assignment) IsDueBetween(from, to time.Time) bool {
	return a.DueAt != nil && !a.DueAt.Before(from) && !a.DueAt.After(to)
}

type Submission struct {
	ID            string     `json:"id"`
	AssignmentID  string     `json:"assignment_id"`
	StudentID     string     `json:"student_id"`
	Content       string     `json:"content"`
	Attachment    string     `json:"-"` // storage key
	AttachmentURL string     `json:"attachment_url"`
	Grade         *int       `json:"grade"`
	Feedback      string     `json:"feedback"`
	Status        string     `json:"status"`
	SubmittedAt   time.Time  `json:"submitted_at"` // UTC
	GradedAt      *time.Time `json:"graded_at"`    // UTC
}

func (s Submission) IsGraded() bool {
	return s.Status == StatusGraded
}

// Upload is a file sent along with a request.
type Upload struct {
	Filename string
	Content  io.Reader
}

// NewAssignment contains information needed to create an Assignment.
type NewAssignment struct {
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
	MaxPoints   int        `json:"max_points" validate:"min=0"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.SanitizeHTML(na.Description)
	if na.MaxPoints == 0 {
		na.MaxPoints = defaultMaxPoints
	}
	return validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an existing Assignment.
type UpdateAssignment struct {
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description"`
	DueAt       *time.Time `json:"due_at"`
	MaxPoints   *int       `json:"max_points" validate:"omitempty,min=1"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	if ua.Title != nil {
		title := core.CleanString(*ua.Title)
		ua.Title = &title
	}
	if ua.Description != nil {
		desc := core.SanitizeHTML(*ua.Description)
		ua.Description = &desc
	}
	return validate.Struct(ua)
}

// NewSubmission is the text part of a submission; a file may be uploaded alongside.
type NewSubmission struct {
	Content string `json:"content" form:"content"`
}

func (ns *NewSubmission) Clean() {
	ns.Content = core.SanitizeHTML(ns.Content)
}

type GradeSubmission struct {
	Grade    *int   `json:"grade" validate:"required,min=0"`
	Feedback string `json:"feedback"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}

type QueryFilter struct {
	CourseIDs []string
	DueFrom   time.Time
	DueTo     time.Time
}

type SubmissionFilter struct {
	AssignmentIDs []string
	StudentID     string
	Status        string
}
