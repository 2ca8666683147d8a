package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/progress"
)

type enrollmentRow struct {
	ID        string    `boil:"id"`
	CourseID  string    `boil:"course_id"`
	StudentID string    `boil:"student_id"`
	Status    string    `boil:"status"`
	CreatedAt time.Time `boil:"created_at"`
	UpdatedAt time.Time `boil:"updated_at"`
}

func (row enrollmentRow) unboil() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:        row.ID,
		CourseID:  row.CourseID,
		StudentID: row.StudentID,
		Status:    row.Status,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type progressRow struct {
	ID          string    `boil:"id"`
	LessonID    string    `boil:"lesson_id"`
	CourseID    string    `boil:"course_id"`
	StudentID   string    `boil:"student_id"`
	CompletedAt time.Time `boil:"completed_at"`
}

func (row progressRow) unboil() progress.LessonProgress {
	return progress.LessonProgress{
		ID:          row.ID,
		LessonID:    row.LessonID,
		CourseID:    row.CourseID,
		StudentID:   row.StudentID,
		CompletedAt: row.CompletedAt.UTC(),
	}
}

type enrollmentRepository struct {
	exec core.DBExecutor
}

var (
	// interface compliance checks
	_ enrollment.Repository = (*enrollmentRepository)(nil)
	_ progress.Repository   = (*enrollmentRepository)(nil)
)

// NewEnrollmentRepository returns a repository of enrollments and lesson progress.
func NewEnrollmentRepository(exec core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{exec: exec}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	enr.ID = uuid.New().String()
	enr.CreatedAt = enr.CreatedAt.UTC()
	enr.UpdatedAt = enr.UpdatedAt.UTC()
	_, err := execRaw(
		ctx, repo.exec,
		`INSERT INTO "enrollment" (id, course_id, student_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		enr.ID, enr.CourseID, enr.StudentID, enr.Status, enr.CreatedAt, enr.UpdatedAt,
	)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	if !isUUID(id) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	var row enrollmentRow
	if err := newQuery(tableEnrollment, qm.Where("id = ?", id)).Bind(ctx, repo.exec, &row); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return row.unboil(), nil
}

func (repo enrollmentRepository) FindEnrollment(ctx context.Context, courseID, studentID string) (enrollment.Enrollment, error) {
	if !isUUID(courseID) || !isUUID(studentID) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	var row enrollmentRow
	err := newQuery(tableEnrollment, qm.Where("course_id = ? AND student_id = ?", courseID, studentID)).
		Bind(ctx, repo.exec, &row)
	if err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return row.unboil(), nil
}

func (repo enrollmentRepository) QueryEnrollments(ctx context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering) ([]enrollment.Enrollment, error) {
	var mods []qm.QueryMod

	if filter != nil {
		if filter.CourseIDs != nil {
			ids := validUUIDs(filter.CourseIDs)
			if len(ids) == 0 {
				return []enrollment.Enrollment{}, nil
			}
			mods = append(mods, whereIn("course_id", ids))
		}
		if filter.StudentID != "" {
			if !isUUID(filter.StudentID) {
				return []enrollment.Enrollment{}, nil
			}
			mods = append(mods, qm.Where("student_id = ?", filter.StudentID))
		}
		if len(filter.Statuses) > 0 {
			mods = append(mods, whereIn("status", filter.Statuses))
		}
		if filter.Limit > 0 {
			mods = append(mods, qm.Limit(filter.Limit))
		}
	}
	mods = append(mods, orderBy(ordering, "created_at DESC"))

	var rows []enrollmentRow
	if err := newQuery(tableEnrollment, mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.unboil())
	}
	return enrs, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	enr.UpdatedAt = enr.UpdatedAt.UTC()
	n, err := execRaw(
		ctx, repo.exec,
		`UPDATE "enrollment" SET status = $2, updated_at = $3 WHERE id = $1`,
		enr.ID, enr.Status, enr.UpdatedAt,
	)
	if err = checkAffected(n, err, enrollment.ErrNotFound, "updating enrollment"); err != nil {
		return enrollment.Enrollment{}, err
	}
	return enr, nil
}

// Lesson progress

func (repo enrollmentRepository) FindProgress(ctx context.Context, lessonID, studentID string) (progress.LessonProgress, error) {
	if !isUUID(lessonID) || !isUUID(studentID) {
		return progress.LessonProgress{}, progress.ErrNotFound
	}
	var row progressRow
	err := newQuery(tableProgress, qm.Where("lesson_id = ? AND student_id = ?", lessonID, studentID)).
		Bind(ctx, repo.exec, &row)
	if err != nil {
		return progress.LessonProgress{}, trapNoRowsErr(err, progress.ErrNotFound, "finding progress")
	}
	return row.unboil(), nil
}

func (repo enrollmentRepository) CreateProgress(ctx context.Context, lp progress.LessonProgress) (progress.LessonProgress, error) {
	lp.ID = uuid.New().String()
	lp.CompletedAt = lp.CompletedAt.UTC()
	_, err := execRaw(
		ctx, repo.exec,
		`INSERT INTO "lesson_progress" (id, lesson_id, course_id, student_id, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lesson_id, student_id) DO NOTHING`,
		lp.ID, lp.LessonID, lp.CourseID, lp.StudentID, lp.CompletedAt,
	)
	if err != nil {
		return progress.LessonProgress{}, errors.Wrap(err, "inserting progress")
	}
	return lp, nil
}

func (repo enrollmentRepository) QueryProgress(ctx context.Context, studentID string, courseIDs ...string) ([]progress.LessonProgress, error) {
	ids := validUUIDs(courseIDs)
	if !isUUID(studentID) || len(ids) == 0 {
		return []progress.LessonProgress{}, nil
	}
	var rows []progressRow
	err := newQuery(tableProgress, qm.Where("student_id = ?", studentID), whereIn("course_id", ids), qm.OrderBy("completed_at")).
		Bind(ctx, repo.exec, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	lps := make([]progress.LessonProgress, 0, len(rows))
	for _, row := range rows {
		lps = append(lps, row.unboil())
	}
	return lps, nil
}
