package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/dashboard"
)

const countsQuery = `
SELECT
	(SELECT COUNT(*) FROM "user") AS users_total,
	(SELECT COUNT(*) FROM "user" WHERE is_active) AS users_active,
	(SELECT COUNT(*) FROM "user" u WHERE EXISTS (SELECT 1 FROM UNNEST(u.roles) r WHERE r LIKE 'admin:%')) AS users_admins,
	(SELECT COUNT(*) FROM "user" u WHERE EXISTS (SELECT 1 FROM UNNEST(u.roles) r WHERE r LIKE 'teacher:%')) AS users_teachers,
	(SELECT COUNT(*) FROM "user" u WHERE EXISTS (SELECT 1 FROM UNNEST(u.roles) r WHERE r LIKE 'student:%')) AS users_students,
	(SELECT COUNT(*) FROM course) AS courses_total,
	(SELECT COUNT(*) FROM course WHERE is_published) AS courses_published,
	(SELECT COUNT(*) FROM enrollment) AS enrollments_total,
	(SELECT COUNT(*) FROM enrollment WHERE status = 'pending') AS enrollments_pending,
	(SELECT COUNT(*) FROM enrollment WHERE status = 'active') AS enrollments_active,
	(SELECT COUNT(*) FROM enrollment WHERE status = 'completed') AS enrollments_completed,
	(SELECT COUNT(*) FROM enrollment WHERE status = 'dropped') AS enrollments_dropped`

type statsRepository struct {
	db *sqlx.DB
}

var _ dashboard.StatsRepository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *sqlx.DB) *statsRepository {
	return &statsRepository{db: db}
}

// countsRow flattens dashboard.Counts for sqlx scanning.
type countsRow struct {
	dashboard.UserCounts       `json:"-"`
	dashboard.CourseCounts     `json:"-"`
	dashboard.EnrollmentCounts `json:"-"`
}

func (repo statsRepository) Counts(ctx context.Context) (dashboard.Counts, error) {
	var row countsRow
	if err := repo.db.GetContext(ctx, &row, countsQuery); err != nil {
		return dashboard.Counts{}, errors.Wrap(err, "counting")
	}
	return dashboard.Counts{
		Users:       row.UserCounts,
		Courses:     row.CourseCounts,
		Enrollments: row.EnrollmentCounts,
	}, nil
}
