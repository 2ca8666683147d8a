package course

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

var (
	// errors
	ErrNotFound       = &core.NotFoundError{Resource: "course"}
	ErrLessonNotFound = &core.NotFoundError{Resource: "lesson"}
	ErrCodeExists     = errors.New("a course with this code already exists")
)

type (
	Repository interface {
		// CodeExists reports whether a Course other than the excluded ones uses code.
		CodeExists(ctx context.Context, code string, excludedIDs ...string) (bool, error)
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Course.Title, Course.Code or Course.Description.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		// QueryLessons returns the lessons of a Course ordered by position.
		QueryLessons(ctx context.Context, courseID string, publishedOnly bool) ([]Lesson, error)
		GetLesson(ctx context.Context, courseID, id string) (Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, courseID, id string) error
	}

	Service struct {
		repo    Repository
		storage core.FileStorage
		logger  core.Logger

		// run before a Course row is deleted; the rows cascade, their files do not.
		onDelete []func(ctx context.Context, courseID string)
	}
)

func NewService(repo Repository, storage core.FileStorage, logger core.Logger) *Service {
	return &Service{repo: repo, storage: storage, logger: logger}
}

func (svc *Service) withURL(crs Course) Course {
	if crs.CoverImage != "" {
		crs.CoverURL = svc.storage.URL(crs.CoverImage)
	}
	return crs
}

func (svc *Service) CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	exists, err := svc.repo.CodeExists(ctx, code, excludedIDs...)
	if err != nil {
		return errors.Wrap(err, "checking code uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	}
	return nil
}

// Create creates a Course taught by teacherID unless nc.TeacherID is set.
func (svc *Service) Create(ctx context.Context, nc NewCourse, teacherID string) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Code:        nc.Code,
		Description: nc.Description,
		TeacherID:   teacherID,
		IsPublished: nc.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nc.TeacherID != "" {
		crs.TeacherID = nc.TeacherID
	}
	crs, err := svc.repo.CreateCourse(ctx, crs)
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return svc.withURL(crs), nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	for i := range courses {
		courses[i] = svc.withURL(courses[i])
	}
	return courses, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	return svc.withURL(crs), nil
}

// GetManyByID returns the Courses matching ids; unknown ids are ignored.
func (svc *Service) GetManyByID(ctx context.Context, ids ...string) ([]Course, error) {
	if len(ids) == 0 {
		return []Course{}, nil
	}
	return svc.Query(ctx, &QueryFilter{IDs: core.UniqueStrings(ids)}, nil)
}

func (svc *Service) Update(ctx context.Context, crs Course, uc UpdateCourse) (Course, error) {
	if uc.Title != nil {
		crs.Title = *uc.Title
	}
	if uc.Code != nil {
		crs.Code = *uc.Code
	}
	if uc.Description != nil {
		crs.Description = *uc.Description
	}
	if uc.TeacherID != nil {
		crs.TeacherID = *uc.TeacherID
	}
	if uc.IsPublished != nil {
		crs.IsPublished = *uc.IsPublished
	}
	crs.UpdatedAt = time.Now().UTC()

	crs, err := svc.repo.UpdateCourse(ctx, crs)
	if err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	return svc.withURL(crs), nil
}

// SetCover stores a new cover image for the Course and removes the previous one.
func (svc *Service) SetCover(ctx context.Context, crs Course, filename string, r io.Reader) (Course, error) {
	key := fmt.Sprintf("courses/%s/cover-%s%s", crs.ID, uuid.New().String(), path.Ext(filename))
	if _, err := svc.storage.Save(ctx, key, r); err != nil {
		return Course{}, errors.Wrap(err, "saving cover image")
	}

	prev := crs.CoverImage
	crs.CoverImage = key
	crs.UpdatedAt = time.Now().UTC()
	crs, err := svc.repo.UpdateCourse(ctx, crs)
	if err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	if prev != "" {
		svc.deleteFile(ctx, prev)
	}
	return svc.withURL(crs), nil
}

// OnDelete registers fn to run (best-effort) before a Course is deleted.
func (svc *Service) OnDelete(fn func(ctx context.Context, courseID string)) {
	svc.onDelete = append(svc.onDelete, fn)
}

// Delete removes the Course's files (best-effort) then the Course itself.
func (svc *Service) Delete(ctx context.Context, crs Course) error {
	for _, fn := range svc.onDelete {
		fn(ctx, crs.ID)
	}
	if crs.CoverImage != "" {
		svc.deleteFile(ctx, crs.CoverImage)
	}
	return errors.Wrap(svc.repo.DeleteCourse(ctx, crs.ID), "deleting course")
}

func (svc *Service) deleteFile(ctx context.Context, key string) {
	if err := svc.storage.Delete(ctx, key); err != nil {
		svc.logger.Warn(fmt.Sprintf("deleting file %q: %v", key, err), err)
	}
}

// Lessons

func (svc *Service) CreateLesson(ctx context.Context, crs Course, nl NewLesson) (Lesson, error) {
	pos := nl.Position
	if pos == 0 {
		lessons, err := svc.repo.QueryLessons(ctx, crs.ID, false)
		if err != nil {
			return Lesson{}, errors.Wrap(err, "querying lessons")
		}
		for _, l := range lessons {
			if l.Position >= pos {
				pos = l.Position
			}
		}
		pos++
	}

	now := time.Now().UTC()
	lsn := Lesson{
		CourseID:    crs.ID,
		Title:       nl.Title,
		Content:     nl.Content,
		Position:    pos,
		IsPublished: nl.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	lsn, err := svc.repo.CreateLesson(ctx, lsn)
	return lsn, errors.Wrap(err, "creating lesson")
}

func (svc *Service) QueryLessons(ctx context.Context, courseID string, publishedOnly bool) ([]Lesson, error) {
	lessons, err := svc.repo.QueryLessons(ctx, courseID, publishedOnly)
	return lessons, errors.Wrap(err, "querying lessons")
}

func (svc *Service) GetLesson(ctx context.Context, courseID, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, courseID, id)
}

func (svc *Service) UpdateLesson(ctx context.Context, lsn Lesson, ul UpdateLesson) (Lesson, error) {
	if ul.Title != nil {
		lsn.Title = *ul.Title
	}
	if ul.Content != nil {
		lsn.Content = *ul.Content
	}
	if ul.Position != nil {
		lsn.Position = *ul.Position
	}
	if ul.IsPublished != nil {
		lsn.IsPublished = *ul.IsPublished
	}
	lsn.UpdatedAt = time.Now().UTC()

	lsn, err := svc.repo.UpdateLesson(ctx, lsn)
	return lsn, errors.Wrap(err, "updating lesson")
}

func (svc *Service) DeleteLesson(ctx context.Context, lsn Lesson) error {
	return errors.Wrap(svc.repo.DeleteLesson(ctx, lsn.CourseID, lsn.ID), "deleting lesson")
}
