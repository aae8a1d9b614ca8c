package announcement_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/announcement"
	inmemdb "github.com/trezcool/lumina/storage/database/inmem"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := announcement.NewService(inmemdb.NewAnnouncementRepository(inmemdb.New()))

	anns, err := svc.Query(ctx)
	require.NoError(t, err)
	assert.NotNil(t, anns)
	assert.Empty(t, anns)

	older, err := svc.Create(ctx, announcement.NewAnnouncement{Date: "2023-10-28", Title: "older", URL: "https://example.com/1"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, announcement.NewAnnouncement{Date: "2023-11-01", Title: "newer", URL: "https://example.com/2"})
	require.NoError(t, err)

	anns, err = svc.Query(ctx)
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, "newer", anns[0].Title)

	require.NoError(t, svc.Delete(ctx, older.ID))
	assert.Equal(t, announcement.ErrNotFound, svc.Delete(ctx, older.ID))
}

func TestNewAnnouncement_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	tests := []struct {
		name    string
		na      announcement.NewAnnouncement
		wantErr bool
	}{
		{name: "valid", na: announcement.NewAnnouncement{Date: " 2023-11-01 ", Title: "t", URL: "https://example.com"}},
		{name: "bad date", na: announcement.NewAnnouncement{Date: "2023/11/01", Title: "t", URL: "https://example.com"}, wantErr: true},
		{name: "missing url", na: announcement.NewAnnouncement{Date: "2023-11-01", Title: "t"}, wantErr: true},
		{name: "missing title", na: announcement.NewAnnouncement{Date: "2023-11-01", URL: "https://example.com"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.na.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
