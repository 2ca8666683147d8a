package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/assignment"
)

type assignmentRow struct {
	ID          string    `boil:"id"`
	CourseID    string    `boil:"course_id"`
	Title       string    `boil:"title"`
	Description string    `boil:"description"`
	DueAt       null.Time `boil:"due_at"`
	MaxPoints   int       `boil:"max_points"`
	Attachment  string    `boil:"attachment"`
	CreatedAt   time.Time `boil:"created_at"`
	UpdatedAt   time.Time `boil:"updated_at"`
}

func (row assignmentRow) unboil() assignment.Assignment {
	asg := assignment.Assignment{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Title:       row.Title,
		Description: row.Description,
		MaxPoints:   row.MaxPoints,
		Attachment:  row.Attachment,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if row.DueAt.Valid {
		due := row.DueAt.Time.UTC()
		asg.DueAt = &due
	}
	return asg
}

type submissionRow struct {
	ID           string    `boil:"id"`
	AssignmentID string    `boil:"assignment_id"`
	StudentID    string    `boil:"student_id"`
	Content      string    `boil:"content"`
	Attachment   string    `boil:"attachment"`
	Grade        null.Int  `boil:"grade"`
	Feedback     string    `boil:"feedback"`
	Status       string    `boil:"status"`
	SubmittedAt  time.Time `boil:"submitted_at"`
	GradedAt     null.Time `boil:"graded_at"`
}

func (row submissionRow) unboil() assignment.Submission {
	sub := assignment.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		StudentID:    row.StudentID,
		Content:      row.Content,
		Attachment:   row.Attachment,
		Grade:        row.Grade.Ptr(),
		Feedback:     row.Feedback,
		Status:       row.Status,
		SubmittedAt:  row.SubmittedAt.UTC(),
	}
	if row.GradedAt.Valid {
		graded := row.GradedAt.Time.UTC()
		sub.GradedAt = &graded
	}
	return sub
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

type assignmentRepository struct {
	exec core.DBExecutor
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(exec core.DBExecutor) *assignmentRepository {
	return &assignmentRepository{exec: exec}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	asg.ID = uuid.New().String()
	asg.CreatedAt = asg.CreatedAt.UTC()
	asg.UpdatedAt = asg.UpdatedAt.UTC()
	_, err := execRaw(
		ctx, repo.exec,
		`INSERT INTO "assignment" (id, course_id, title, description, due_at, max_points, attachment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		asg.ID, asg.CourseID, asg.Title, asg.Description, nullTime(asg.DueAt), asg.MaxPoints, asg.Attachment,
		asg.CreatedAt, asg.UpdatedAt,
	)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo assignmentRepository) QueryAssignments(ctx context.Context, filter *assignment.QueryFilter) ([]assignment.Assignment, error) {
	var mods []qm.QueryMod
	if filter != nil {
		if filter.CourseIDs != nil {
			ids := validUUIDs(filter.CourseIDs)
			if len(ids) == 0 {
				return []assignment.Assignment{}, nil
			}
			mods = append(mods, whereIn("course_id", ids))
		}
		if !filter.DueFrom.IsZero() {
			mods = append(mods, qm.Where("due_at >= ?", filter.DueFrom.UTC()))
		}
		if !filter.DueTo.IsZero() {
			mods = append(mods, qm.Where("due_at <= ?", filter.DueTo.UTC()))
		}
	}
	mods = append(mods, qm.OrderBy("due_at ASC NULLS LAST, created_at DESC"))

	var rows []assignmentRow
	if err := newQuery(tableAssignment, mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	asgs := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		asgs = append(asgs, row.unboil())
	}
	return asgs, nil
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	if !isUUID(id) {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var row assignmentRow
	if err := newQuery(tableAssignment, qm.Where("id = ?", id)).Bind(ctx, repo.exec, &row); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment")
	}
	return row.unboil(), nil
}

func (repo assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	asg.UpdatedAt = asg.UpdatedAt.UTC()
	n, err := execRaw(
		ctx, repo.exec,
		`UPDATE "assignment" SET title = $2, description = $3, due_at = $4, max_points = $5, attachment = $6,
		updated_at = $7 WHERE id = $1`,
		asg.ID, asg.Title, asg.Description, nullTime(asg.DueAt), asg.MaxPoints, asg.Attachment, asg.UpdatedAt,
	)
	if err = checkAffected(n, err, assignment.ErrNotFound, "updating assignment"); err != nil {
		return assignment.Assignment{}, err
	}
	return asg, nil
}

func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	if !isUUID(id) {
		return assignment.ErrNotFound
	}
	n, err := deleteAll(ctx, repo.exec, tableAssignment, qm.Where("id = ?", id))
	return checkAffected(n, err, assignment.ErrNotFound, "deleting assignment")
}

// Submissions

func (repo assignmentRepository) CreateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	sub.ID = uuid.New().String()
	sub.SubmittedAt = sub.SubmittedAt.UTC()
	_, err := execRaw(
		ctx, repo.exec,
		`INSERT INTO "submission" (id, assignment_id, student_id, content, attachment, grade, feedback, status, submitted_at, graded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sub.ID, sub.AssignmentID, sub.StudentID, sub.Content, sub.Attachment, null.IntFromPtr(sub.Grade),
		sub.Feedback, sub.Status, sub.SubmittedAt, nullTime(sub.GradedAt),
	)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo assignmentRepository) GetSubmission(ctx context.Context, id string) (assignment.Submission, error) {
	if !isUUID(id) {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	var row submissionRow
	if err := newQuery(tableSubmission, qm.Where("id = ?", id)).Bind(ctx, repo.exec, &row); err != nil {
		return assignment.Submission{}, trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "finding submission")
	}
	return row.unboil(), nil
}

func (repo assignmentRepository) FindSubmission(ctx context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	if !isUUID(assignmentID) || !isUUID(studentID) {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	var row submissionRow
	err := newQuery(tableSubmission, qm.Where("assignment_id = ? AND student_id = ?", assignmentID, studentID)).
		Bind(ctx, repo.exec, &row)
	if err != nil {
		return assignment.Submission{}, trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "finding submission")
	}
	return row.unboil(), nil
}

func (repo assignmentRepository) QuerySubmissions(ctx context.Context, filter *assignment.SubmissionFilter) ([]assignment.Submission, error) {
	var mods []qm.QueryMod
	if filter != nil {
		if filter.AssignmentIDs != nil {
			ids := validUUIDs(filter.AssignmentIDs)
			if len(ids) == 0 {
				return []assignment.Submission{}, nil
			}
			mods = append(mods, whereIn("assignment_id", ids))
		}
		if filter.StudentID != "" {
			if !isUUID(filter.StudentID) {
				return []assignment.Submission{}, nil
			}
			mods = append(mods, qm.Where("student_id = ?", filter.StudentID))
		}
		if filter.Status != "" {
			mods = append(mods, qm.Where("status = ?", filter.Status))
		}
	}
	mods = append(mods, qm.OrderBy("submitted_at DESC"))

	var rows []submissionRow
	if err := newQuery(tableSubmission, mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]assignment.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.unboil())
	}
	return subs, nil
}

func (repo assignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	sub.SubmittedAt = sub.SubmittedAt.UTC()
	n, err := execRaw(
		ctx, repo.exec,
		`UPDATE "submission" SET content = $2, attachment = $3, grade = $4, feedback = $5, status = $6,
		submitted_at = $7, graded_at = $8 WHERE id = $1`,
		sub.ID, sub.Content, sub.Attachment, null.IntFromPtr(sub.Grade), sub.Feedback, sub.Status,
		sub.SubmittedAt, nullTime(sub.GradedAt),
	)
	if err = checkAffected(n, err, assignment.ErrSubmissionNotFound, "updating submission"); err != nil {
		return assignment.Submission{}, err
	}
	return sub, nil
}
