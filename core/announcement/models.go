package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lumina/core"
)

const DateLayout = "2006-01-02"

type Announcement struct {
	ID        string    `json:"id" yaml:"id"`
	Date      string    `json:"date" yaml:"date"` // DateLayout
	Title     string    `json:"title" yaml:"title"`
	URL       string    `json:"url" yaml:"url"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

type NewAnnouncement struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Title string `json:"title" validate:"required,max=200"`
	URL   string `json:"url" validate:"required,url"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Date = core.CleanString(na.Date)
	na.Title = core.CleanString(na.Title)
	na.URL = core.CleanString(na.URL)
	return validate.Struct(na)
}
