package progress

import "time"

// LessonProgress records that a student completed a lesson.
type LessonProgress struct {
	ID          string    `json:"id"`
	LessonID    string    `json:"lesson_id"`
	CourseID    string    `json:"course_id"`
	StudentID   string    `json:"student_id"`
	CompletedAt time.Time `json:"completed_at"` // UTC
}

// CourseProgress summarizes a student's progress through a course's published lessons.
type CourseProgress struct {
	CourseID         string   `json:"course_id"`
	CompletedLessons int      `json:"completed_lessons"`
	TotalLessons     int      `json:"total_lessons"`
	Percent          int      `json:"percent"`
	CompletedIDs     []string `json:"completed_lesson_ids"`
}

func newCourseProgress(courseID string, total int, completedIDs []string) CourseProgress {
	cp := CourseProgress{
		CourseID:         courseID,
		CompletedLessons: len(completedIDs),
		TotalLessons:     total,
		CompletedIDs:     completedIDs,
	}
	if total > 0 {
		cp.Percent = cp.CompletedLessons * 100 / total
	}
	return cp
}
