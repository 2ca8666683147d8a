package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-lms/core/announcement"
	"github.com/trezcool/masomo-lms/core/assignment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/progress"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/user"
)

// DB is an in-memory database, mostly used in tests.
type DB struct {
	mu sync.RWMutex

	users         map[string]user.User
	courses       map[string]course.Course
	lessons       map[string]course.Lesson
	enrollments   map[string]enrollment.Enrollment
	progress      map[string]progress.LessonProgress
	quizzes       map[string]quiz.Quiz // with questions
	attempts      map[string]quiz.Attempt
	assignments   map[string]assignment.Assignment
	submissions   map[string]assignment.Submission
	announcements map[string]announcement.Announcement
}

func Open() *DB {
	return &DB{
		users:         make(map[string]user.User),
		courses:       make(map[string]course.Course),
		lessons:       make(map[string]course.Lesson),
		enrollments:   make(map[string]enrollment.Enrollment),
		progress:      make(map[string]progress.LessonProgress),
		quizzes:       make(map[string]quiz.Quiz),
		attempts:      make(map[string]quiz.Attempt),
		assignments:   make(map[string]assignment.Assignment),
		submissions:   make(map[string]assignment.Submission),
		announcements: make(map[string]announcement.Announcement),
	}
}

func newID() string {
	return uuid.New().String()
}

func containsString(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}

// cascadeUser mimics the foreign keys on "user". db.mu must be held.
func (db *DB) cascadeUser(id string) {
	for k, crs := range db.courses {
		if crs.TeacherID == id {
			crs.TeacherID = ""
			db.courses[k] = crs
		}
	}
	for k, enr := range db.enrollments {
		if enr.StudentID == id {
			delete(db.enrollments, k)
		}
	}
	for k, lp := range db.progress {
		if lp.StudentID == id {
			delete(db.progress, k)
		}
	}
	for k, att := range db.attempts {
		if att.StudentID == id {
			delete(db.attempts, k)
		}
	}
	for k, sub := range db.submissions {
		if sub.StudentID == id {
			delete(db.submissions, k)
		}
	}
	for k, ann := range db.announcements {
		if ann.AuthorID == id {
			ann.AuthorID = ""
			db.announcements[k] = ann
		}
	}
}

// cascadeCourse mimics the foreign keys on "course". db.mu must be held.
func (db *DB) cascadeCourse(id string) {
	for k, lsn := range db.lessons {
		if lsn.CourseID == id {
			delete(db.lessons, k)
			db.cascadeLesson(k)
		}
	}
	for k, enr := range db.enrollments {
		if enr.CourseID == id {
			delete(db.enrollments, k)
		}
	}
	for k, qz := range db.quizzes {
		if qz.CourseID == id {
			delete(db.quizzes, k)
			db.cascadeQuiz(k)
		}
	}
	for k, asg := range db.assignments {
		if asg.CourseID == id {
			delete(db.assignments, k)
			db.cascadeAssignment(k)
		}
	}
	for k, ann := range db.announcements {
		if ann.CourseID == id {
			delete(db.announcements, k)
		}
	}
}

func (db *DB) cascadeLesson(id string) {
	for k, lp := range db.progress {
		if lp.LessonID == id {
			delete(db.progress, k)
		}
	}
	for k, qz := range db.quizzes {
		if qz.LessonID == id {
			qz.LessonID = ""
			db.quizzes[k] = qz
		}
	}
}

func (db *DB) cascadeQuiz(id string) {
	for k, att := range db.attempts {
		if att.QuizID == id {
			delete(db.attempts, k)
		}
	}
}

func (db *DB) cascadeAssignment(id string) {
	for k, sub := range db.submissions {
		if sub.AssignmentID == id {
			delete(db.submissions, k)
		}
	}
}
