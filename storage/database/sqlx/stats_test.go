package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/dashboard"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/storage/database/sqlboiler"
	"github.com/trezcool/masomo-lms/storage/database/sqlx"
	"github.com/trezcool/masomo-lms/tests"
)

func TestStatsRepository_Counts(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewStatsRepository(db)

	t.Run("empty database", func(t *testing.T) {
		counts, err := repo.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, dashboard.Counts{}, counts)
	})

	usrRepo := boiledrepos.NewUserRepository(db)
	crsRepo := boiledrepos.NewCourseRepository(db)
	enrRepo := boiledrepos.NewEnrollmentRepository(db)

	testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@email.com", "", []string{user.RoleAdminOwner, user.RoleTeacher}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@email.com", "", []string{user.RoleTeacher}, true)
	students := []user.User{
		testutil.CreateUser(t, usrRepo, "Student 1", "student1", "student1@email.com", "", []string{user.RoleStudent}, true),
		testutil.CreateUser(t, usrRepo, "Student 2", "student2", "student2@email.com", "", []string{user.RoleStudent}, true),
		testutil.CreateUser(t, usrRepo, "Student 3", "student3", "student3@email.com", "", []string{user.RoleStudent}, false),
	}

	now := time.Now().UTC()
	newCourse := func(code string, published bool) course.Course {
		crs, err := crsRepo.CreateCourse(ctx, course.Course{
			Title:       code,
			Code:        code,
			TeacherID:   teacher.ID,
			IsPublished: published,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		require.NoError(t, err)
		return crs
	}
	algebra := newCourse("alg101", true)
	poetry := newCourse("poe101", true)
	newCourse("draft", false)

	enroll := func(crs course.Course, student user.User, status string) {
		_, err := enrRepo.CreateEnrollment(ctx, enrollment.Enrollment{
			CourseID:  crs.ID,
			StudentID: student.ID,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		})
		require.NoError(t, err)
	}
	enroll(algebra, students[0], enrollment.StatusActive)
	enroll(algebra, students[1], enrollment.StatusPending)
	enroll(algebra, students[2], enrollment.StatusDropped)
	enroll(poetry, students[0], enrollment.StatusCompleted)
	enroll(poetry, students[1], enrollment.StatusActive)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, dashboard.Counts{
		Users:       dashboard.UserCounts{Total: 5, Active: 4, Admins: 1, Teachers: 2, Students: 3},
		Courses:     dashboard.CourseCounts{Total: 3, Published: 2},
		Enrollments: dashboard.EnrollmentCounts{Total: 5, Pending: 1, Active: 2, Completed: 1, Dropped: 1},
	}, counts)
}
