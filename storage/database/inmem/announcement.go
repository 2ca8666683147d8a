package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-lms/core/announcement"
)

type announcementRepository struct {
	db *DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ann.ID = newID()
	repo.db.announcements[ann.ID] = ann
	return ann, nil
}

func matchesAnnouncementFilter(ann announcement.Announcement, filter *announcement.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.CourseIDs != nil || filter.SchoolWide {
		inCourses := !ann.IsSchoolWide() && containsString(filter.CourseIDs, ann.CourseID)
		if !inCourses && !(filter.SchoolWide && ann.IsSchoolWide()) {
			return false
		}
	}
	if filter.AuthorID != "" && ann.AuthorID != filter.AuthorID {
		return false
	}
	return true
}

func (repo *announcementRepository) QueryAnnouncements(_ context.Context, filter *announcement.QueryFilter, limit int) ([]announcement.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	anns := make([]announcement.Announcement, 0)
	for _, ann := range repo.db.announcements {
		if matchesAnnouncementFilter(ann, filter) {
			anns = append(anns, ann)
		}
	}
	sort.SliceStable(anns, func(i, j int) bool {
		if anns[i].CreatedAt.Equal(anns[j].CreatedAt) {
			return anns[i].ID < anns[j].ID
		}
		return anns[i].CreatedAt.After(anns[j].CreatedAt)
	})
	if limit > 0 && len(anns) > limit {
		anns = anns[:limit]
	}
	return anns, nil
}

func (repo *announcementRepository) GetAnnouncement(_ context.Context, id string) (announcement.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ann, ok := repo.db.announcements[id]; ok {
		return ann, nil
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) DeleteAnnouncement(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.announcements[id]; !ok {
		return announcement.ErrNotFound
	}
	delete(repo.db.announcements, id)
	return nil
}
