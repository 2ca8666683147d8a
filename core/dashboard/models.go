package dashboard

import (
	"github.com/trezcool/masomo-lms/core/announcement"
	"github.com/trezcool/masomo-lms/core/assignment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/progress"
)

// Counts are the school-wide figures shown on the admin dashboard.
type Counts struct {
	Users       UserCounts       `json:"users"`
	Courses     CourseCounts     `json:"courses"`
	Enrollments EnrollmentCounts `json:"enrollments"`
}

type UserCounts struct {
	Total    int `json:"total" db:"users_total"`
	Active   int `json:"active" db:"users_active"`
	Admins   int `json:"admins" db:"users_admins"`
	Teachers int `json:"teachers" db:"users_teachers"`
	Students int `json:"students" db:"users_students"`
}

type CourseCounts struct {
	Total     int `json:"total" db:"courses_total"`
	Published int `json:"published" db:"courses_published"`
}

type EnrollmentCounts struct {
	Total     int `json:"total" db:"enrollments_total"`
	Pending   int `json:"pending" db:"enrollments_pending"`
	Active    int `json:"active" db:"enrollments_active"`
	Completed int `json:"completed" db:"enrollments_completed"`
	Dropped   int `json:"dropped" db:"enrollments_dropped"`
}

// CourseStats is a Course along with its number of enrollments.
type CourseStats struct {
	course.Course
	EnrollmentCount int `json:"enrollment_count"`
}

type Admin struct {
	Counts            Counts                  `json:"counts"`
	TopCourses        []CourseStats           `json:"top_courses"`
	RecentEnrollments []enrollment.Enrollment `json:"recent_enrollments"`
}

type Teacher struct {
	Courses            []CourseStats           `json:"courses"`
	TotalStudents      int                     `json:"total_students"`
	PendingSubmissions []assignment.Submission `json:"pending_submissions"`
}

// StudentCourse is a Course the student is enrolled in, along with the student's progress.
type StudentCourse struct {
	course.Course
	Progress progress.CourseProgress `json:"progress"`
}

type Student struct {
	Courses       []StudentCourse             `json:"courses"`
	DueSoon       []assignment.Assignment     `json:"due_soon"`
	Announcements []announcement.Announcement `json:"announcements"`
}
