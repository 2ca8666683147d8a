package announcement

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/enrollment"
)

var (
	// errors
	ErrNotFound = &core.NotFoundError{Resource: "announcement"}
)

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		// QueryAnnouncements returns the announcements matching filter, most recent first.
		// A nil filter matches all announcements.
		QueryAnnouncements(ctx context.Context, filter *QueryFilter, limit int) ([]Announcement, error)
		GetAnnouncement(ctx context.Context, id string) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string) error
	}

	Service struct {
		repo   Repository
		enrSvc *enrollment.Service
	}
)

func NewService(repo Repository, enrSvc *enrollment.Service) *Service {
	return &Service{repo: repo, enrSvc: enrSvc}
}

func (svc *Service) Create(ctx context.Context, authorID string, na NewAnnouncement) (Announcement, error) {
	ann := Announcement{
		CourseID:  na.CourseID,
		AuthorID:  authorID,
		Title:     na.Title,
		Body:      na.Body,
		CreatedAt: time.Now().UTC(),
	}
	ann, err := svc.repo.CreateAnnouncement(ctx, ann)
	return ann, errors.Wrap(err, "creating announcement")
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, limit int) ([]Announcement, error) {
	if filter != nil && filter.CourseIDs != nil && len(filter.CourseIDs) == 0 && !filter.SchoolWide {
		return []Announcement{}, nil
	}
	anns, err := svc.repo.QueryAnnouncements(ctx, filter, limit)
	return anns, errors.Wrap(err, "querying announcements")
}

// QueryForStudent returns the school-wide announcements plus those of the courses the student is enrolled in.
// If courseID is not empty, only the announcements of that course are returned.
func (svc *Service) QueryForStudent(ctx context.Context, studentID, courseID string, limit int) ([]Announcement, error) {
	courseIDs, err := svc.enrSvc.CourseIDs(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if courseID != "" {
		if !core.StringInSlice(courseID, courseIDs) {
			return []Announcement{}, nil
		}
		return svc.Query(ctx, &QueryFilter{CourseIDs: []string{courseID}}, limit)
	}
	return svc.Query(ctx, &QueryFilter{CourseIDs: courseIDs, SchoolWide: true}, limit)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Announcement, error) {
	return svc.repo.GetAnnouncement(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, ann Announcement) error {
	return errors.Wrap(svc.repo.DeleteAnnouncement(ctx, ann.ID), "deleting announcement")
}
