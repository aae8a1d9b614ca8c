package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core/announcement"
)

type announcementRow struct {
	ID        string    `db:"id"`
	Date      string    `db:"date"`
	Title     string    `db:"title"`
	URL       string    `db:"url"`
	CreatedAt time.Time `db:"created_at"`
}

type announcementRepository struct {
	db *sqlx.DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sqlx.DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func (repo announcementRepository) CreateAnnouncement(ctx context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	row := announcementRow{ID: ann.ID, Date: ann.Date, Title: ann.Title, URL: ann.URL, CreatedAt: ann.CreatedAt.UTC()}
	q := `INSERT INTO announcement (id, date, title, url, created_at) VALUES (:id, :date, :title, :url, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return ann, nil
}

func (repo announcementRepository) QueryAnnouncements(ctx context.Context) ([]announcement.Announcement, error) {
	var rows []announcementRow
	q := `SELECT id, to_char(date, 'YYYY-MM-DD') AS date, title, url, created_at
		FROM announcement ORDER BY date DESC, created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	anns := make([]announcement.Announcement, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, announcement.Announcement{
			ID:        row.ID,
			Date:      row.Date,
			Title:     row.Title,
			URL:       row.URL,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return anns, nil
}

func (repo announcementRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return announcement.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM announcement WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return announcement.ErrNotFound
	}
	return nil
}
