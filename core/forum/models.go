package forum

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lumina/core"
)

// DefaultTags are applied to posts created without tags.
var DefaultTags = []string{"お知らせ", "重要"}

type Reply struct {
	ID         string    `json:"id" yaml:"id"`
	AuthorID   string    `json:"author_id" yaml:"author_id"`
	AuthorName string    `json:"author_name" yaml:"author_name"`
	Content    string    `json:"content" yaml:"content"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

type Post struct {
	ID         string    `json:"id" yaml:"id"`
	AuthorID   string    `json:"author_id" yaml:"author_id"`
	AuthorName string    `json:"author_name" yaml:"author_name"`
	Title      string    `json:"title" yaml:"title"`
	Content    string    `json:"content" yaml:"content"`
	Tags       []string  `json:"tags" yaml:"tags"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Replies    []Reply   `json:"replies" yaml:"replies"`
}

func (p Post) Clone() Post {
	cp := p
	cp.Tags = append([]string{}, p.Tags...)
	cp.Replies = append([]Reply{}, p.Replies...)
	return cp
}

// Matches reports whether the search term is found (case-insensitive) in the title, content or tags.
func (p Post) Matches(search string) bool {
	if search == "" {
		return true
	}
	if core.ContainsFold(p.Title, search) || core.ContainsFold(p.Content, search) {
		return true
	}
	for _, tag := range p.Tags {
		if core.ContainsFold(tag, search) {
			return true
		}
	}
	return false
}

type NewPost struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags" validate:"max=10,dive,notblank,max=30"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Content = core.CleanString(np.Content)
	tags := make([]string, 0, len(np.Tags))
	seen := make(map[string]struct{}, len(np.Tags))
	for _, tag := range np.Tags {
		tag = strings.TrimPrefix(core.CleanString(tag), "#")
		if _, dup := seen[tag]; dup || tag == "" {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	np.Tags = tags
	return validate.Struct(np)
}

type NewReply struct {
	Content string `json:"content" validate:"required,notblank"`
}

func (nr *NewReply) Validate(validate *validator.Validate) error {
	nr.Content = core.CleanString(nr.Content)
	return validate.Struct(nr)
}

type QueryFilter struct {
	Search string `query:"search"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if qf.Limit > 100 {
		qf.Limit = 100
	}
}

// PostsPage is one page of posts, newest first, with the total number of matching posts.
type PostsPage struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
}
