package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/enrollment"
)

var (
	// errors
	ErrNotFound    = &core.NotFoundError{Resource: "lesson progress"}
	ErrNotEnrolled = errors.New("you must be enrolled in this course")
)

type (
	Repository interface {
		// FindProgress returns the progress of a student on a lesson, or ErrNotFound.
		FindProgress(ctx context.Context, lessonID, studentID string) (LessonProgress, error)
		CreateProgress(ctx context.Context, lp LessonProgress) (LessonProgress, error)
		// QueryProgress returns the progress of a student on the lessons of the given courses.
		QueryProgress(ctx context.Context, studentID string, courseIDs ...string) ([]LessonProgress, error)
	}

	Service struct {
		repo   Repository
		crsSvc *course.Service
		enrSvc *enrollment.Service
	}
)

func NewService(repo Repository, crsSvc *course.Service, enrSvc *enrollment.Service) *Service {
	return &Service{repo: repo, crsSvc: crsSvc, enrSvc: enrSvc}
}

// CompleteLesson marks lsn as completed by studentID. Completing a lesson twice is a no-op.
func (svc *Service) CompleteLesson(ctx context.Context, studentID string, lsn course.Lesson) (LessonProgress, error) {
	enrolled, err := svc.enrSvc.IsEnrolled(ctx, lsn.CourseID, studentID)
	if err != nil {
		return LessonProgress{}, err
	}
	if !enrolled {
		return LessonProgress{}, core.NewValidationError(ErrNotEnrolled)
	}

	lp, err := svc.repo.FindProgress(ctx, lsn.ID, studentID)
	if err == nil {
		return lp, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return LessonProgress{}, errors.Wrap(err, "finding progress")
	}

	lp = LessonProgress{
		LessonID:    lsn.ID,
		CourseID:    lsn.CourseID,
		StudentID:   studentID,
		CompletedAt: time.Now().UTC(),
	}
	lp, err = svc.repo.CreateProgress(ctx, lp)
	return lp, errors.Wrap(err, "creating progress")
}

// CourseProgress computes the student's progress over the published lessons of courseID.
func (svc *Service) CourseProgress(ctx context.Context, studentID, courseID string) (CourseProgress, error) {
	all, err := svc.ManyCourseProgress(ctx, studentID, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	return all[courseID], nil
}

// ManyCourseProgress computes the student's progress for each of courseIDs.
func (svc *Service) ManyCourseProgress(ctx context.Context, studentID string, courseIDs ...string) (map[string]CourseProgress, error) {
	result := make(map[string]CourseProgress, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}

	lps, err := svc.repo.QueryProgress(ctx, studentID, courseIDs...)
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	done := make(map[string]struct{}, len(lps))
	for _, lp := range lps {
		done[lp.LessonID] = struct{}{}
	}

	for _, courseID := range core.UniqueStrings(courseIDs) {
		lessons, err := svc.crsSvc.QueryLessons(ctx, courseID, true /* publishedOnly */)
		if err != nil {
			return nil, err
		}
		completed := make([]string, 0, len(lessons))
		for _, lsn := range lessons {
			if _, ok := done[lsn.ID]; ok {
				completed = append(completed, lsn.ID)
			}
		}
		result[courseID] = newCourseProgress(courseID, len(lessons), completed)
	}
	return result, nil
}
