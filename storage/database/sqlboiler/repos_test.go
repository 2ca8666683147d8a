package boiledrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/announcement"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/storage/database/sqlboiler"
	"github.com/trezcool/masomo-lms/tests"
)

type fixtures struct {
	teacher, student user.User
	algebra, poetry  course.Course
}

func setup(t *testing.T) (*sqlx.DB, fixtures) {
	db := testutil.PrepareDB(t)
	usrRepo := boiledrepos.NewUserRepository(db)
	crsRepo := boiledrepos.NewCourseRepository(db)

	fx := fixtures{
		teacher: testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@email.com", "", []string{user.RoleTeacher}, true),
		student: testutil.CreateUser(t, usrRepo, "Student", "student", "student@email.com", "", []string{user.RoleStudent}, true),
	}
	newCourse := func(title, code string) course.Course {
		now := time.Now().UTC()
		crs, err := crsRepo.CreateCourse(context.Background(), course.Course{
			Title:       title,
			Code:        code,
			TeacherID:   fx.teacher.ID,
			IsPublished: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		require.NoError(t, err)
		return crs
	}
	fx.algebra = newCourse("Algebra", "alg101")
	fx.poetry = newCourse("Poetry", "poe101")
	return db, fx
}

func TestEnrollmentRepository(t *testing.T) {
	db, fx := setup(t)
	ctx := context.Background()
	repo := boiledrepos.NewEnrollmentRepository(db)

	now := time.Now().UTC()
	enr, err := repo.CreateEnrollment(ctx, enrollment.Enrollment{
		CourseID:  fx.algebra.ID,
		StudentID: fx.student.ID,
		Status:    enrollment.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NotEmpty(t, enr.ID)

	t.Run("find by course and student", func(t *testing.T) {
		got, err := repo.FindEnrollment(ctx, fx.algebra.ID, fx.student.ID)
		require.NoError(t, err)
		assert.Equal(t, enr.ID, got.ID)
		assert.Equal(t, enrollment.StatusPending, got.Status)

		_, err = repo.FindEnrollment(ctx, fx.poetry.ID, fx.student.ID)
		assert.Equal(t, enrollment.ErrNotFound, err)
		_, err = repo.FindEnrollment(ctx, "lol", fx.student.ID)
		assert.Equal(t, enrollment.ErrNotFound, err)
	})

	t.Run("one enrollment per course and student", func(t *testing.T) {
		_, err := repo.CreateEnrollment(ctx, enrollment.Enrollment{
			CourseID:  fx.algebra.ID,
			StudentID: fx.student.ID,
			Status:    enrollment.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
		assert.Error(t, err)

		enrs, err := repo.QueryEnrollments(ctx, &enrollment.QueryFilter{StudentID: fx.student.ID}, nil)
		require.NoError(t, err)
		assert.Len(t, enrs, 1)
	})

	t.Run("status filter", func(t *testing.T) {
		enr.Status = enrollment.StatusActive
		enr.UpdatedAt = time.Now().UTC()
		_, err := repo.UpdateEnrollment(ctx, enr)
		require.NoError(t, err)

		enrs, err := repo.QueryEnrollments(ctx, &enrollment.QueryFilter{
			CourseIDs: []string{fx.algebra.ID},
			Statuses:  enrollment.AccessStatuses,
		}, nil)
		require.NoError(t, err)
		require.Len(t, enrs, 1)
		assert.Equal(t, enrollment.StatusActive, enrs[0].Status)

		enrs, err = repo.QueryEnrollments(ctx, &enrollment.QueryFilter{
			CourseIDs: []string{fx.algebra.ID},
			Statuses:  []string{enrollment.StatusPending},
		}, nil)
		require.NoError(t, err)
		assert.Empty(t, enrs)
	})
}

func TestAnnouncementRepository_QueryAnnouncements(t *testing.T) {
	db, fx := setup(t)
	ctx := context.Background()
	repo := boiledrepos.NewAnnouncementRepository(db)

	now := time.Now().UTC()
	create := func(courseID, title string, age time.Duration) announcement.Announcement {
		ann, err := repo.CreateAnnouncement(ctx, announcement.Announcement{
			CourseID:  courseID,
			AuthorID:  fx.teacher.ID,
			Title:     title,
			Body:      "...",
			CreatedAt: now.Add(-age),
		})
		require.NoError(t, err)
		return ann
	}
	algebra := create(fx.algebra.ID, "algebra", time.Hour)
	poetry := create(fx.poetry.ID, "poetry", 2*time.Hour)
	school := create("", "school", 3*time.Hour)

	titles := func(anns []announcement.Announcement) []string {
		res := make([]string, 0, len(anns))
		for _, ann := range anns {
			res = append(res, ann.Title)
		}
		return res
	}

	tests := []struct {
		name   string
		filter *announcement.QueryFilter
		limit  int
		want   []string
	}{
		{name: "no filter", want: []string{algebra.Title, poetry.Title, school.Title}},
		{
			name:   "courses or school-wide",
			filter: &announcement.QueryFilter{CourseIDs: []string{fx.algebra.ID}, SchoolWide: true},
			want:   []string{algebra.Title, school.Title},
		},
		{
			name:   "courses only",
			filter: &announcement.QueryFilter{CourseIDs: []string{fx.algebra.ID}},
			want:   []string{algebra.Title},
		},
		{
			name:   "school-wide only",
			filter: &announcement.QueryFilter{SchoolWide: true},
			want:   []string{school.Title},
		},
		{
			name:   "no courses",
			filter: &announcement.QueryFilter{CourseIDs: []string{}},
			want:   []string{},
		},
		{
			name:   "no courses or school-wide",
			filter: &announcement.QueryFilter{CourseIDs: []string{"lol"}, SchoolWide: true},
			want:   []string{school.Title},
		},
		{
			name:   "by author",
			filter: &announcement.QueryFilter{AuthorID: fx.student.ID},
			want:   []string{},
		},
		{
			name:  "limit",
			limit: 2,
			want:  []string{algebra.Title, poetry.Title},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			anns, err := repo.QueryAnnouncements(ctx, tc.filter, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, titles(anns))
		})
	}

	t.Run("school-wide have no course", func(t *testing.T) {
		got, err := repo.GetAnnouncement(ctx, school.ID)
		require.NoError(t, err)
		assert.True(t, got.IsSchoolWide())
	})
}

func TestQuizRepository(t *testing.T) {
	db, fx := setup(t)
	ctx := context.Background()
	repo := boiledrepos.NewQuizRepository(db)

	now := time.Now().UTC()
	qz, err := repo.CreateQuiz(ctx, quiz.Quiz{
		CourseID: fx.algebra.ID,
		Title:    "Week 1",
		PassMark: 50,
		Questions: []quiz.Question{
			{Prompt: "1 + 1?", Options: []string{"1", "2"}, Answer: testutil.IntPtr(1), Points: 1, Position: 0},
			{Prompt: "2 + 2?", Options: []string{"3", "4"}, Answer: testutil.IntPtr(1), Points: 1, Position: 1},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	t.Run("questions ordered by position", func(t *testing.T) {
		got, err := repo.GetQuiz(ctx, qz.ID)
		require.NoError(t, err)
		require.Len(t, got.Questions, 2)
		assert.Equal(t, "1 + 1?", got.Questions[0].Prompt)
		assert.Equal(t, []string{"1", "2"}, got.Questions[0].Options)
		require.NotNil(t, got.Questions[0].Answer)
		assert.Equal(t, 1, *got.Questions[0].Answer)
	})

	t.Run("update keeps questions", func(t *testing.T) {
		qz.Title = "Week one"
		qz.Questions = nil
		_, err := repo.UpdateQuiz(ctx, qz, false)
		require.NoError(t, err)

		got, err := repo.GetQuiz(ctx, qz.ID)
		require.NoError(t, err)
		assert.Equal(t, "Week one", got.Title)
		assert.Len(t, got.Questions, 2)
	})

	t.Run("update replaces questions", func(t *testing.T) {
		qz.Questions = []quiz.Question{
			{Prompt: "3 x 3?", Options: []string{"6", "9", "12"}, Answer: testutil.IntPtr(1), Points: 2, Position: 0},
		}
		_, err := repo.UpdateQuiz(ctx, qz, true)
		require.NoError(t, err)

		got, err := repo.GetQuiz(ctx, qz.ID)
		require.NoError(t, err)
		require.Len(t, got.Questions, 1)
		assert.Equal(t, "3 x 3?", got.Questions[0].Prompt)
		assert.Equal(t, []string{"6", "9", "12"}, got.Questions[0].Options)
		assert.Equal(t, 2, got.Questions[0].Points)
	})

	t.Run("attempt answers", func(t *testing.T) {
		_, err := repo.CreateAttempt(ctx, quiz.Attempt{
			QuizID:    qz.ID,
			StudentID: fx.student.ID,
			Answers:   []int{1, 0, 2},
			Score:     2,
			MaxScore:  2,
			Passed:    true,
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)

		atts, err := repo.QueryAttempts(ctx, qz.ID, fx.student.ID)
		require.NoError(t, err)
		require.Len(t, atts, 1)
		assert.Equal(t, []int{1, 0, 2}, atts[0].Answers)
		assert.True(t, atts[0].Passed)

		atts, err = repo.QueryAttempts(ctx, qz.ID, fx.teacher.ID)
		require.NoError(t, err)
		assert.Empty(t, atts)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, repo.DeleteQuiz(ctx, qz.ID))
		_, err := repo.GetQuiz(ctx, qz.ID)
		assert.Equal(t, quiz.ErrNotFound, err)

		atts, err := repo.QueryAttempts(ctx, qz.ID, "")
		require.NoError(t, err)
		assert.Empty(t, atts)
	})
}
