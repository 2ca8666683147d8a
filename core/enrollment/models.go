package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core/user"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusDropped   = "dropped"
)

var (
	Statuses = []string{StatusPending, StatusActive, StatusCompleted, StatusDropped}

	// CountedStatuses are the statuses counted as course enrollments.
	CountedStatuses = []string{StatusPending, StatusActive, StatusCompleted}
	// AccessStatuses grant access to a course's content.
	AccessStatuses = []string{StatusActive, StatusCompleted}
)

type Enrollment struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	StudentID string    `json:"student_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (e Enrollment) GrantsAccess() bool {
	return e.Status == StatusActive || e.Status == StatusCompleted
}

// Student is a User enrolled in a course.
type Student struct {
	user.Summary
	Status     string    `json:"status"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=pending active completed dropped"`
}

func (us UpdateStatus) Validate(validate *validator.Validate) error { return validate.Struct(us) }

type QueryFilter struct {
	CourseIDs []string
	StudentID string
	Statuses  []string
	Limit     int // 0 means no limit
}

// OrderingFields are the fields enrollments can be ordered by.
var OrderingFields = []string{"status", "created_at", "updated_at"}
