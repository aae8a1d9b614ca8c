package announcement

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
)

var ErrNotFound = errors.New("announcement not found")

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		// QueryAnnouncements returns all announcements, newest first.
		QueryAnnouncements(ctx context.Context) ([]Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create publishes an announcement. `na` must be validated.
func (svc *Service) Create(ctx context.Context, na NewAnnouncement) (Announcement, error) {
	ann := Announcement{
		ID:        uuid.New().String(),
		Date:      na.Date,
		Title:     na.Title,
		URL:       na.URL,
		CreatedAt: core.Now(),
	}
	return svc.repo.CreateAnnouncement(ctx, ann)
}

func (svc *Service) Query(ctx context.Context) ([]Announcement, error) {
	anns, err := svc.repo.QueryAnnouncements(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []Announcement{}
	}
	return anns, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteAnnouncement(ctx, id)
}
