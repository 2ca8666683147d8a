package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
)

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	TeacherID   string    `json:"teacher_id"`
	IsPublished bool      `json:"is_published"`
	CoverImage  string    `json:"-"` // storage key
	CoverURL    string    `json:"cover_url"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// IsOwnedBy reports whether the teacher with the given ID teaches the Course.
func (c Course) IsOwnedBy(userID string) bool {
	return c.TeacherID != "" && c.TeacherID == userID
}

type Lesson struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Position    int       `json:"position"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Code        string `json:"code" validate:"required,max=20,alphanum_"`
	Description string `json:"description"`
	TeacherID   string `json:"teacher_id" validate:"omitempty,uuid"`
	IsPublished bool   `json:"is_published"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Code = core.CleanString(nc.Code, true /* lower */)
	nc.Description = core.SanitizeHTML(nc.Description)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, nc.Code)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Code        *string `json:"code" validate:"omitempty,max=20,alphanum_"`
	Description *string `json:"description"`
	TeacherID   *string `json:"teacher_id" validate:"omitempty,uuid"`
	IsPublished *bool   `json:"is_published"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, orig Course, validate *validator.Validate, svc *Service) error {
	if uc.Title != nil {
		title := core.CleanString(*uc.Title)
		uc.Title = &title
	}
	if uc.Description != nil {
		desc := core.SanitizeHTML(*uc.Description)
		uc.Description = &desc
	}
	if uc.Code != nil {
		code := core.CleanString(*uc.Code, true /* lower */)
		uc.Code = &code
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.Code != nil && *uc.Code != orig.Code {
		return svc.CheckCodeUniqueness(ctx, *uc.Code, orig.ID)
	}
	return nil
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Content     string `json:"content"`
	Position    int    `json:"position" validate:"min=0"`
	IsPublished bool   `json:"is_published"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Content = core.SanitizeHTML(nl.Content)
	return validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify an existing Lesson.
type UpdateLesson struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Content     *string `json:"content"`
	Position    *int    `json:"position" validate:"omitempty,min=0"`
	IsPublished *bool   `json:"is_published"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	if ul.Title != nil {
		title := core.CleanString(*ul.Title)
		ul.Title = &title
	}
	if ul.Content != nil {
		content := core.SanitizeHTML(*ul.Content)
		ul.Content = &content
	}
	return validate.Struct(ul)
}

type QueryFilter struct {
	Search      string
	TeacherID   string
	IsPublished *bool
	IDs         []string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.TeacherID = core.CleanString(qf.TeacherID)
}

// OrderingFields are the fields courses can be ordered by.
var OrderingFields = []string{"title", "code", "created_at", "updated_at"}
