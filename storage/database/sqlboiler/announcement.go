package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/announcement"
)

type announcementRow struct {
	ID        string      `boil:"id"`
	CourseID  null.String `boil:"course_id"`
	AuthorID  null.String `boil:"author_id"`
	Title     string      `boil:"title"`
	Body      string      `boil:"body"`
	CreatedAt time.Time   `boil:"created_at"`
}

func (row announcementRow) unboil() announcement.Announcement {
	return announcement.Announcement{
		ID:        row.ID,
		CourseID:  row.CourseID.String,
		AuthorID:  row.AuthorID.String,
		Title:     row.Title,
		Body:      row.Body,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type announcementRepository struct {
	exec core.DBExecutor
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(exec core.DBExecutor) *announcementRepository {
	return &announcementRepository{exec: exec}
}

func (repo announcementRepository) CreateAnnouncement(ctx context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	ann.ID = uuid.New().String()
	ann.CreatedAt = ann.CreatedAt.UTC()
	_, err := execRaw(
		ctx, repo.exec,
		`INSERT INTO "announcement" (id, course_id, author_id, title, body, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		ann.ID, null.NewString(ann.CourseID, ann.CourseID != ""), null.NewString(ann.AuthorID, ann.AuthorID != ""),
		ann.Title, ann.Body, ann.CreatedAt,
	)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return ann, nil
}

func (repo announcementRepository) QueryAnnouncements(ctx context.Context, filter *announcement.QueryFilter, limit int) ([]announcement.Announcement, error) {
	var mods []qm.QueryMod
	if filter != nil {
		// (course_id IN courses) OR (course_id IS NULL)
		var scope []qm.QueryMod
		if filter.CourseIDs != nil {
			if ids := validUUIDs(filter.CourseIDs); len(ids) > 0 {
				scope = append(scope, qm.Or2(whereIn("course_id", ids)))
			}
		}
		if filter.SchoolWide {
			scope = append(scope, qm.Or2(qm.Where("course_id IS NULL")))
		}
		switch {
		case len(scope) > 0:
			mods = append(mods, qm.Expr(scope...))
		case filter.CourseIDs != nil:
			return []announcement.Announcement{}, nil
		}
		if filter.AuthorID != "" {
			if !isUUID(filter.AuthorID) {
				return []announcement.Announcement{}, nil
			}
			mods = append(mods, qm.Where("author_id = ?", filter.AuthorID))
		}
	}
	mods = append(mods, qm.OrderBy("created_at DESC"))
	if limit > 0 {
		mods = append(mods, qm.Limit(limit))
	}

	var rows []announcementRow
	if err := newQuery(tableAnnouncement, mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	anns := make([]announcement.Announcement, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, row.unboil())
	}
	return anns, nil
}

func (repo announcementRepository) GetAnnouncement(ctx context.Context, id string) (announcement.Announcement, error) {
	if !isUUID(id) {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	var row announcementRow
	if err := newQuery(tableAnnouncement, qm.Where("id = ?", id)).Bind(ctx, repo.exec, &row); err != nil {
		return announcement.Announcement{}, trapNoRowsErr(err, announcement.ErrNotFound, "finding announcement")
	}
	return row.unboil(), nil
}

func (repo announcementRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	if !isUUID(id) {
		return announcement.ErrNotFound
	}
	n, err := deleteAll(ctx, repo.exec, tableAnnouncement, qm.Where("id = ?", id))
	return checkAffected(n, err, announcement.ErrNotFound, "deleting announcement")
}
