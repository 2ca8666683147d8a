package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CodeExists(_ context.Context, code string, excludedIDs ...string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Code == code && !containsString(excludedIDs, crs.ID) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	crs.ID = newID()
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func matchesCourseFilter(crs course.Course, filter *course.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(crs.Title), search) ||
			strings.Contains(strings.ToLower(crs.Code), search) ||
			strings.Contains(strings.ToLower(crs.Description), search)) {
			return false
		}
	}
	if filter.TeacherID != "" && crs.TeacherID != filter.TeacherID {
		return false
	}
	if filter.IsPublished != nil && crs.IsPublished != *filter.IsPublished {
		return false
	}
	if filter.IDs != nil && !containsString(filter.IDs, crs.ID) {
		return false
	}
	return true
}

func courseLess(a, b course.Course, ord core.DBOrdering) (less, equal bool) {
	switch ord.Field {
	case "title":
		return a.Title < b.Title, a.Title == b.Title
	case "code":
		return a.Code < b.Code, a.Code == b.Code
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
	default: // created_at
		return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
	}
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		if matchesCourseFilter(crs, filter) {
			courses = append(courses, crs)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range ordering {
			less, equal := courseLess(courses[i], courses[j], ord)
			if equal {
				continue
			}
			return less == ord.Ascending
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)
	repo.db.cascadeCourse(id)
	return nil
}

// Lessons

func (repo *courseRepository) CreateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	lsn.ID = newID()
	repo.db.lessons[lsn.ID] = lsn
	return lsn, nil
}

func (repo *courseRepository) QueryLessons(_ context.Context, courseID string, publishedOnly bool) ([]course.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	lessons := make([]course.Lesson, 0)
	for _, lsn := range repo.db.lessons {
		if lsn.CourseID != courseID || (publishedOnly && !lsn.IsPublished) {
			continue
		}
		lessons = append(lessons, lsn)
	}
	sort.SliceStable(lessons, func(i, j int) bool {
		if lessons[i].Position != lessons[j].Position {
			return lessons[i].Position < lessons[j].Position
		}
		return lessons[i].CreatedAt.Before(lessons[j].CreatedAt)
	})
	return lessons, nil
}

func (repo *courseRepository) GetLesson(_ context.Context, courseID, id string) (course.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if lsn, ok := repo.db.lessons[id]; ok && lsn.CourseID == courseID {
		return lsn, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) UpdateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if orig, ok := repo.db.lessons[lsn.ID]; !ok || orig.CourseID != lsn.CourseID {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	repo.db.lessons[lsn.ID] = lsn
	return lsn, nil
}

func (repo *courseRepository) DeleteLesson(_ context.Context, courseID, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if lsn, ok := repo.db.lessons[id]; !ok || lsn.CourseID != courseID {
		return course.ErrLessonNotFound
	}
	delete(repo.db.lessons, id)
	repo.db.cascadeLesson(id)
	return nil
}
