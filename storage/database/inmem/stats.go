package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-lms/core/dashboard"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/user"
)

type statsRepository struct {
	db *DB
}

var _ dashboard.StatsRepository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) Counts(_ context.Context) (dashboard.Counts, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var counts dashboard.Counts
	for _, usr := range repo.db.users {
		counts.Users.Total++
		if usr.IsActive {
			counts.Users.Active++
		}
		if usr.RoleStartsWith(user.RoleAdmin) {
			counts.Users.Admins++
		}
		if usr.RoleStartsWith(user.RoleTeacher) {
			counts.Users.Teachers++
		}
		if usr.RoleStartsWith(user.RoleStudent) {
			counts.Users.Students++
		}
	}
	for _, crs := range repo.db.courses {
		counts.Courses.Total++
		if crs.IsPublished {
			counts.Courses.Published++
		}
	}
	for _, enr := range repo.db.enrollments {
		counts.Enrollments.Total++
		switch enr.Status {
		case enrollment.StatusPending:
			counts.Enrollments.Pending++
		case enrollment.StatusActive:
			counts.Enrollments.Active++
		case enrollment.StatusCompleted:
			counts.Enrollments.Completed++
		case enrollment.StatusDropped:
			counts.Enrollments.Dropped++
		}
	}
	return counts, nil
}
