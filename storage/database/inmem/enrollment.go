package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/progress"
)

type enrollmentRepository struct {
	db *DB
}

var (
	// interface compliance checks
	_ enrollment.Repository = (*enrollmentRepository)(nil)
	_ progress.Repository   = (*enrollmentRepository)(nil)
)

// NewEnrollmentRepository returns a repository of enrollments and lesson progress.
func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	enr.ID = newID()
	repo.db.enrollments[enr.ID] = enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) FindEnrollment(_ context.Context, courseID, studentID string) (enrollment.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID && enr.StudentID == studentID {
			return enr, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func matchesEnrollmentFilter(enr enrollment.Enrollment, filter *enrollment.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.CourseIDs != nil && !containsString(filter.CourseIDs, enr.CourseID) {
		return false
	}
	if filter.StudentID != "" && enr.StudentID != filter.StudentID {
		return false
	}
	if len(filter.Statuses) > 0 && !containsString(filter.Statuses, enr.Status) {
		return false
	}
	return true
}

func enrollmentLess(a, b enrollment.Enrollment, ord core.DBOrdering) (less, equal bool) {
	switch ord.Field {
	case "status":
		return a.Status < b.Status, a.Status == b.Status
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
	default: // created_at
		return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
	}
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering) ([]enrollment.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if matchesEnrollmentFilter(enr, filter) {
			enrs = append(enrs, enr)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(enrs, func(i, j int) bool {
		for _, ord := range ordering {
			less, equal := enrollmentLess(enrs[i], enrs[j], ord)
			if equal {
				continue
			}
			return less == ord.Ascending
		}
		return enrs[i].ID < enrs[j].ID
	})
	if filter != nil && filter.Limit > 0 && len(enrs) > filter.Limit {
		enrs = enrs[:filter.Limit]
	}
	return enrs, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.enrollments[enr.ID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	orig.Status = enr.Status
	orig.UpdatedAt = enr.UpdatedAt
	repo.db.enrollments[enr.ID] = orig
	return orig, nil
}

// Lesson progress

func (repo *enrollmentRepository) FindProgress(_ context.Context, lessonID, studentID string) (progress.LessonProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, lp := range repo.db.progress {
		if lp.LessonID == lessonID && lp.StudentID == studentID {
			return lp, nil
		}
	}
	return progress.LessonProgress{}, progress.ErrNotFound
}

func (repo *enrollmentRepository) CreateProgress(_ context.Context, lp progress.LessonProgress) (progress.LessonProgress, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.progress {
		if existing.LessonID == lp.LessonID && existing.StudentID == lp.StudentID {
			return lp, nil
		}
	}
	lp.ID = newID()
	repo.db.progress[lp.ID] = lp
	return lp, nil
}

func (repo *enrollmentRepository) QueryProgress(_ context.Context, studentID string, courseIDs ...string) ([]progress.LessonProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	lps := make([]progress.LessonProgress, 0)
	if len(courseIDs) == 0 {
		return lps, nil
	}
	for _, lp := range repo.db.progress {
		if lp.StudentID == studentID && containsString(courseIDs, lp.CourseID) {
			lps = append(lps, lp)
		}
	}
	sort.SliceStable(lps, func(i, j int) bool { return lps[i].CompletedAt.Before(lps[j].CompletedAt) })
	return lps, nil
}
