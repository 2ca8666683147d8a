package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
)

type Announcement struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"` // empty for school-wide announcements
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (a Announcement) IsSchoolWide() bool {
	return a.CourseID == ""
}

// NewAnnouncement contains information needed to create an Announcement.
type NewAnnouncement struct {
	CourseID string `json:"course_id" validate:"omitempty,uuid"`
	Title    string `json:"title" validate:"required,notblank,max=200"`
	Body     string `json:"body" validate:"required"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.CourseID = core.CleanString(na.CourseID)
	na.Title = core.CleanString(na.Title)
	na.Body = core.SanitizeHTML(na.Body)
	return validate.Struct(na)
}

type QueryFilter struct {
	// CourseIDs restricts the announcements to those of the given courses.
	CourseIDs []string
	// SchoolWide includes the school-wide announcements.
	SchoolWide bool
	AuthorID   string
}
