package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/lumina/core/announcement"
)

type announcementRepository struct {
	db *announcementTable
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db.announcement}
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[ann.ID] = ann
	return ann, nil
}

func (repo *announcementRepository) QueryAnnouncements(context.Context) ([]announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	anns := make([]announcement.Announcement, 0, len(repo.db.table))
	for _, ann := range repo.db.table {
		anns = append(anns, ann)
	}
	// DateLayout sorts lexically
	sort.Slice(anns, func(i, j int) bool {
		if anns[i].Date != anns[j].Date {
			return anns[i].Date > anns[j].Date
		}
		return anns[i].CreatedAt.After(anns[j].CreatedAt)
	})
	return anns, nil
}

func (repo *announcementRepository) DeleteAnnouncement(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return announcement.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
