package progress_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

func TestService_CompleteLesson(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	student := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, env.CourseSvc, "", "Algebra", "math101", true)
	lsn1 := testutil.CreateLesson(t, env.CourseSvc, crs, "Intro", true)
	lsn2 := testutil.CreateLesson(t, env.CourseSvc, crs, "Equations", true)
	lsn3 := testutil.CreateLesson(t, env.CourseSvc, crs, "Inequalities", true)
	testutil.CreateLesson(t, env.CourseSvc, crs, "Draft", false)

	_, err := env.ProgressSvc.CompleteLesson(ctx, student.ID, lsn1)
	_, isValidationErr := errors.Cause(err).(*core.ValidationError)
	assert.True(t, isValidationErr, "completing a lesson requires an enrollment")

	testutil.Enroll(t, env.EnrollmentSvc, student, crs)

	cp, err := env.ProgressSvc.CourseProgress(ctx, student.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cp.CompletedLessons)
	assert.Equal(t, 3, cp.TotalLessons)
	assert.Equal(t, 0, cp.Percent)

	lp, err := env.ProgressSvc.CompleteLesson(ctx, student.ID, lsn1)
	require.NoError(t, err)
	assert.Equal(t, lsn1.ID, lp.LessonID)
	assert.Equal(t, crs.ID, lp.CourseID)

	// completing twice is idempotent
	again, err := env.ProgressSvc.CompleteLesson(ctx, student.ID, lsn1)
	require.NoError(t, err)
	assert.Equal(t, lp.ID, again.ID)

	_, err = env.ProgressSvc.CompleteLesson(ctx, student.ID, lsn2)
	require.NoError(t, err)

	cp, err = env.ProgressSvc.CourseProgress(ctx, student.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cp.CompletedLessons)
	assert.Equal(t, 3, cp.TotalLessons)
	assert.Equal(t, 66, cp.Percent)
	assert.ElementsMatch(t, []string{lsn1.ID, lsn2.ID}, cp.CompletedIDs)

	_, err = env.ProgressSvc.CompleteLesson(ctx, student.ID, lsn3)
	require.NoError(t, err)
	cp, err = env.ProgressSvc.CourseProgress(ctx, student.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, cp.Percent)
}

func TestService_ManyCourseProgress(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	student := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	c1 := testutil.CreateCourse(t, env.CourseSvc, "", "Algebra", "math101", true)
	c2 := testutil.CreateCourse(t, env.CourseSvc, "", "Biology", "bio101", true)
	lsn := testutil.CreateLesson(t, env.CourseSvc, c1, "Intro", true)
	testutil.CreateLesson(t, env.CourseSvc, c1, "Equations", true)
	testutil.Enroll(t, env.EnrollmentSvc, student, c1)
	testutil.Enroll(t, env.EnrollmentSvc, student, c2)

	_, err := env.ProgressSvc.CompleteLesson(ctx, student.ID, lsn)
	require.NoError(t, err)

	progs, err := env.ProgressSvc.ManyCourseProgress(ctx, student.ID, c1.ID, c2.ID)
	require.NoError(t, err)
	require.Len(t, progs, 2)
	assert.Equal(t, 50, progs[c1.ID].Percent)
	assert.Equal(t, 0, progs[c2.ID].TotalLessons)
	assert.Equal(t, 0, progs[c2.ID].Percent)

	progs, err = env.ProgressSvc.ManyCourseProgress(ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, progs)
}
