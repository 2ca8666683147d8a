package assignment_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/assignment"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

func validationErr(t *testing.T, err error) *core.ValidationError {
	t.Helper()
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "expected a validation error, got %v", err)
	return verr
}

func TestService_CreateUpdate(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	crs := testutil.CreateCourse(t, env.CourseSvc, "", "Algebra", "math101", true)

	na := assignment.NewAssignment{Title: " Homework 1 ", Description: `<p>Solve</p><script>alert(1)</script>`}
	require.NoError(t, na.Validate(env.Validate))
	assert.Equal(t, "Homework 1", na.Title)
	assert.Equal(t, 100, na.MaxPoints, "max points default to 100")
	assert.NotContains(t, na.Description, "script")

	asg, err := env.AssignmentSvc.Create(ctx, crs.ID, na)
	require.NoError(t, err)
	assert.Nil(t, asg.DueAt)

	due := time.Now().Add(48 * time.Hour)
	asg, err = env.AssignmentSvc.Update(ctx, asg, assignment.UpdateAssignment{DueAt: &due, MaxPoints: testutil.IntPtr(20)})
	require.NoError(t, err)
	require.NotNil(t, asg.DueAt)
	assert.Equal(t, time.UTC, asg.DueAt.Location())
	assert.Equal(t, 20, asg.MaxPoints)

	asg, err = env.AssignmentSvc.SetAttachment(ctx, asg, assignment.Upload{Filename: "sheet.pdf", Content: strings.NewReader("v1")})
	require.NoError(t, err)
	first := asg.Attachment
	assert.True(t, strings.HasPrefix(first, "assignments/"+asg.ID+"/"))
	assert.True(t, strings.HasSuffix(first, ".pdf"))
	assert.Equal(t, "memory://"+first, asg.AttachmentURL)

	asg, err = env.AssignmentSvc.SetAttachment(ctx, asg, assignment.Upload{Filename: "sheet2.pdf", Content: strings.NewReader("v2")})
	require.NoError(t, err)
	_, ok := env.Storage.Get(first)
	assert.False(t, ok, "previous attachment is removed")
	content, ok := env.Storage.Get(asg.Attachment)
	require.True(t, ok)
	assert.Equal(t, "v2", string(content))

	got, err := env.AssignmentSvc.GetByID(ctx, asg.ID)
	require.NoError(t, err)
	assert.Equal(t, asg.AttachmentURL, got.AttachmentURL)

	_, err = env.AssignmentSvc.GetByID(ctx, "unknown")
	assert.True(t, core.IsNotFound(err))
}

func TestService_SubmitGrade(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	student := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	outsider := testutil.CreateUser(t, env.UserRepo, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, env.CourseSvc, "", "Algebra", "math101", true)
	testutil.Enroll(t, env.EnrollmentSvc, student, crs)

	asg, err := env.AssignmentSvc.Create(ctx, crs.ID, assignment.NewAssignment{Title: "Homework 1", MaxPoints: 20})
	require.NoError(t, err)

	t.Run("not enrolled", func(t *testing.T) {
		_, err := env.AssignmentSvc.Submit(ctx, outsider.ID, asg, assignment.NewSubmission{Content: "x"}, nil)
		verr := validationErr(t, err)
		assert.Equal(t, assignment.ErrNotEnrolled, verr.Err)
	})

	t.Run("empty submission", func(t *testing.T) {
		_, err := env.AssignmentSvc.Submit(ctx, student.ID, asg, assignment.NewSubmission{}, nil)
		verr := validationErr(t, err)
		assert.Equal(t, "content", verr.Fields[0].Field)
	})

	var sub assignment.Submission
	t.Run("resubmit replaces", func(t *testing.T) {
		first, err := env.AssignmentSvc.Submit(ctx, student.ID, asg, assignment.NewSubmission{}, &assignment.Upload{
			Filename: "answer.txt",
			Content:  strings.NewReader("42"),
		})
		require.NoError(t, err)
		assert.Equal(t, assignment.StatusSubmitted, first.Status)
		assert.NotEmpty(t, first.AttachmentURL)

		sub, err = env.AssignmentSvc.Submit(ctx, student.ID, asg, assignment.NewSubmission{Content: "forty-two"}, &assignment.Upload{
			Filename: "answer2.txt",
			Content:  strings.NewReader("42!"),
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, sub.ID)
		assert.Equal(t, "forty-two", sub.Content)
		_, ok := env.Storage.Get(first.Attachment)
		assert.False(t, ok)

		subs, err := env.AssignmentSvc.ListSubmissions(ctx, asg, "")
		require.NoError(t, err)
		assert.Len(t, subs, 1)
	})

	t.Run("text-only resubmission drops the previous file", func(t *testing.T) {
		prevAttachment := sub.Attachment
		require.NotEmpty(t, prevAttachment)

		textOnly, err := env.AssignmentSvc.Submit(ctx, student.ID, asg, assignment.NewSubmission{Content: "forty-two, final"}, nil)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, textOnly.ID)
		assert.Equal(t, "forty-two, final", textOnly.Content)
		assert.Empty(t, textOnly.Attachment)
		assert.Empty(t, textOnly.AttachmentURL)
		_, ok := env.Storage.Get(prevAttachment)
		assert.False(t, ok)

		stored, err := env.AssignmentSvc.GetSubmission(ctx, sub.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.AttachmentURL)
		sub = textOnly
	})

	t.Run("grade above max points", func(t *testing.T) {
		_, err := env.AssignmentSvc.Grade(ctx, asg, sub, assignment.GradeSubmission{Grade: testutil.IntPtr(21)})
		verr := validationErr(t, err)
		assert.Equal(t, "grade", verr.Fields[0].Field)
	})

	t.Run("grade", func(t *testing.T) {
		env.Mail.Reset()
		graded, err := env.AssignmentSvc.Grade(ctx, asg, sub, assignment.GradeSubmission{Grade: testutil.IntPtr(18), Feedback: "Well done"})
		require.NoError(t, err)
		assert.Equal(t, assignment.StatusGraded, graded.Status)
		require.NotNil(t, graded.Grade)
		assert.Equal(t, 18, *graded.Grade)
		assert.NotNil(t, graded.GradedAt)

		msgs := env.Mail.SentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "Submission Graded: Homework 1", msgs[0].Subject)
		assert.Contains(t, msgs[0].TextContent, "18/20")
	})

	t.Run("graded submissions are final", func(t *testing.T) {
		_, err := env.AssignmentSvc.Submit(ctx, student.ID, asg, assignment.NewSubmission{Content: "late fix"}, nil)
		verr := validationErr(t, err)
		assert.Equal(t, assignment.ErrAlreadyGraded, verr.Err)
	})
}

func TestService_Delete(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	student := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, env.CourseSvc, "", "Algebra", "math101", true)
	testutil.Enroll(t, env.EnrollmentSvc, student, crs)

	asg, err := env.AssignmentSvc.Create(ctx, crs.ID, assignment.NewAssignment{Title: "Homework 1", MaxPoints: 20})
	require.NoError(t, err)
	asg, err = env.AssignmentSvc.SetAttachment(ctx, asg, assignment.Upload{Filename: "sheet.pdf", Content: strings.NewReader("v1")})
	require.NoError(t, err)
	_, err = env.AssignmentSvc.Submit(ctx, student.ID, asg, assignment.NewSubmission{}, &assignment.Upload{
		Filename: "answer.txt",
		Content:  strings.NewReader("42"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, env.Storage.Len())

	// file cleanup is best-effort
	env.Storage.FailDeletes = true
	require.NoError(t, env.AssignmentSvc.Delete(ctx, asg))
	assert.Equal(t, 2, env.Storage.Len())
	env.Storage.FailDeletes = false

	_, err = env.AssignmentSvc.GetByID(ctx, asg.ID)
	assert.Equal(t, assignment.ErrNotFound, errors.Cause(err))
	subs, err := env.AssignmentSvc.QuerySubmissions(ctx, &assignment.SubmissionFilter{StudentID: student.ID})
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestService_Query(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	crs := testutil.CreateCourse(t, env.CourseSvc, "", "Algebra", "math101", true)
	other := testutil.CreateCourse(t, env.CourseSvc, "", "Biology", "bio101", true)

	now := time.Now().UTC()
	later := now.Add(72 * time.Hour)
	soon := now.Add(24 * time.Hour)
	create := func(courseID, title string, due *time.Time) assignment.Assignment {
		asg, err := env.AssignmentSvc.Create(ctx, courseID, assignment.NewAssignment{Title: title, DueAt: due, MaxPoints: 10})
		require.NoError(t, err)
		return asg
	}
	noDue := create(crs.ID, "No due date", nil)
	asgLater := create(crs.ID, "Later", &later)
	asgSoon := create(crs.ID, "Soon", &soon)
	create(other.ID, "Other", &soon)

	asgs, err := env.AssignmentSvc.QueryByCourse(ctx, crs.ID)
	require.NoError(t, err)
	require.Len(t, asgs, 3)
	assert.Equal(t, []string{asgSoon.ID, asgLater.ID, noDue.ID}, []string{asgs[0].ID, asgs[1].ID, asgs[2].ID})

	asgs, err = env.AssignmentSvc.Query(ctx, &assignment.QueryFilter{
		CourseIDs: []string{crs.ID},
		DueFrom:   now,
		DueTo:     now.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, asgs, 1)
	assert.Equal(t, asgSoon.ID, asgs[0].ID)

	subs, err := env.AssignmentSvc.QuerySubmissions(ctx, &assignment.SubmissionFilter{AssignmentIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, subs)
}
