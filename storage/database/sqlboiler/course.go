package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/course"
)

type courseRow struct {
	ID          string      `boil:"id"`
	Title       string      `boil:"title"`
	Code        string      `boil:"code"`
	Description string      `boil:"description"`
	TeacherID   null.String `boil:"teacher_id"`
	IsPublished bool        `boil:"is_published"`
	CoverImage  string      `boil:"cover_image"`
	CreatedAt   time.Time   `boil:"created_at"`
	UpdatedAt   time.Time   `boil:"updated_at"`
}

type lessonRow struct {
	ID          string    `boil:"id"`
	CourseID    string    `boil:"course_id"`
	Title       string    `boil:"title"`
	Content     string    `boil:"content"`
	Position    int       `boil:"position"`
	IsPublished bool      `boil:"is_published"`
	CreatedAt   time.Time `boil:"created_at"`
	UpdatedAt   time.Time `boil:"updated_at"`
}

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) boil(crs course.Course) courseRow {
	return courseRow{
		ID:          crs.ID,
		Title:       crs.Title,
		Code:        crs.Code,
		Description: crs.Description,
		TeacherID:   null.NewString(crs.TeacherID, crs.TeacherID != ""),
		IsPublished: crs.IsPublished,
		CoverImage:  crs.CoverImage,
		CreatedAt:   crs.CreatedAt.UTC(),
		UpdatedAt:   crs.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) unboil(row courseRow) course.Course {
	return course.Course{
		ID:          row.ID,
		Title:       row.Title,
		Code:        row.Code,
		Description: row.Description,
		TeacherID:   row.TeacherID.String,
		IsPublished: row.IsPublished,
		CoverImage:  row.CoverImage,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) unboilLesson(row lessonRow) course.Lesson {
	return course.Lesson{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Title:       row.Title,
		Content:     row.Content,
		Position:    row.Position,
		IsPublished: row.IsPublished,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) CodeExists(ctx context.Context, code string, excludedIDs ...string) (bool, error) {
	mods := []qm.QueryMod{qm.Where("code = ?", code)}
	if ids := validUUIDs(excludedIDs); len(ids) > 0 {
		mods = append(mods, whereNotIn("id", ids))
	}
	ok, err := exists(ctx, repo.exec, tableCourse, mods...)
	return ok, errors.Wrap(err, "checking course code")
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	row := repo.boil(crs)
	_, err := execRaw(
		ctx, repo.exec,
		`INSERT INTO "course" (id, title, code, description, teacher_id, is_published, cover_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.ID, row.Title, row.Code, row.Description, row.TeacherID, row.IsPublished, row.CoverImage,
		row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.unboil(row), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var mods []qm.QueryMod

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			mods = append(mods, qm.Expr(qm.Where("title ILIKE ? OR code ILIKE ? OR description ILIKE ?", val, val, val)))
		}
		if filter.TeacherID != "" {
			if !isUUID(filter.TeacherID) {
				return []course.Course{}, nil
			}
			mods = append(mods, qm.Where("teacher_id = ?", filter.TeacherID))
		}
		if filter.IsPublished != nil {
			mods = append(mods, qm.Where("is_published = ?", *filter.IsPublished))
		}
		if filter.IDs != nil {
			ids := validUUIDs(filter.IDs)
			if len(ids) == 0 {
				return []course.Course{}, nil
			}
			mods = append(mods, whereIn("id", ids))
		}
	}
	mods = append(mods, orderBy(ordering, "created_at DESC"))

	var rows []courseRow
	if err := newQuery(tableCourse, mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.unboil(row))
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !isUUID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := newQuery(tableCourse, qm.Where("id = ?", id)).Bind(ctx, repo.exec, &row); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return repo.unboil(row), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	row := repo.boil(crs)
	n, err := execRaw(
		ctx, repo.exec,
		`UPDATE "course" SET title = $2, code = $3, description = $4, teacher_id = $5, is_published = $6,
		cover_image = $7, updated_at = $8 WHERE id = $1`,
		row.ID, row.Title, row.Code, row.Description, row.TeacherID, row.IsPublished, row.CoverImage, row.UpdatedAt,
	)
	if err = checkAffected(n, err, course.ErrNotFound, "updating course"); err != nil {
		return course.Course{}, err
	}
	return repo.unboil(row), nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !isUUID(id) {
		return course.ErrNotFound
	}
	n, err := deleteAll(ctx, repo.exec, tableCourse, qm.Where("id = ?", id))
	return checkAffected(n, err, course.ErrNotFound, "deleting course")
}

// Lessons

func (repo courseRepository) CreateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	lsn.ID = uuid.New().String()
	lsn.CreatedAt = lsn.CreatedAt.UTC()
	lsn.UpdatedAt = lsn.UpdatedAt.UTC()
	_, err := execRaw(
		ctx, repo.exec,
		`INSERT INTO "lesson" (id, course_id, title, content, position, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		lsn.ID, lsn.CourseID, lsn.Title, lsn.Content, lsn.Position, lsn.IsPublished, lsn.CreatedAt, lsn.UpdatedAt,
	)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lsn, nil
}

func (repo courseRepository) QueryLessons(ctx context.Context, courseID string, publishedOnly bool) ([]course.Lesson, error) {
	if !isUUID(courseID) {
		return []course.Lesson{}, nil
	}
	mods := []qm.QueryMod{qm.Where("course_id = ?", courseID)}
	if publishedOnly {
		mods = append(mods, qm.Where("is_published = ?", true))
	}
	mods = append(mods, qm.OrderBy("position, created_at"))

	var rows []lessonRow
	if err := newQuery(tableLesson, mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, repo.unboilLesson(row))
	}
	return lessons, nil
}

func (repo courseRepository) GetLesson(ctx context.Context, courseID, id string) (course.Lesson, error) {
	if !isUUID(courseID) || !isUUID(id) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	var row lessonRow
	err := newQuery(tableLesson, qm.Where("id = ?", id), qm.Where("course_id = ?", courseID)).Bind(ctx, repo.exec, &row)
	if err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "finding lesson")
	}
	return repo.unboilLesson(row), nil
}

func (repo courseRepository) UpdateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	lsn.UpdatedAt = lsn.UpdatedAt.UTC()
	n, err := execRaw(
		ctx, repo.exec,
		`UPDATE "lesson" SET title = $3, content = $4, position = $5, is_published = $6, updated_at = $7
		WHERE id = $1 AND course_id = $2`,
		lsn.ID, lsn.CourseID, lsn.Title, lsn.Content, lsn.Position, lsn.IsPublished, lsn.UpdatedAt,
	)
	if err = checkAffected(n, err, course.ErrLessonNotFound, "updating lesson"); err != nil {
		return course.Lesson{}, err
	}
	return lsn, nil
}

func (repo courseRepository) DeleteLesson(ctx context.Context, courseID, id string) error {
	if !isUUID(courseID) || !isUUID(id) {
		return course.ErrLessonNotFound
	}
	n, err := deleteAll(ctx, repo.exec, tableLesson, qm.Where("id = ?", id), qm.Where("course_id = ?", courseID))
	return checkAffected(n, err, course.ErrLessonNotFound, "deleting lesson")
}
