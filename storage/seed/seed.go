// Package seed loads the demo catalog (courses, announcements, forum posts) shipped in fs/assets/seed.
package seed

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/announcement"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/forum"
)

// DefaultPath of the catalog inside appfs.FS.
const DefaultPath = "assets/seed/catalog.yaml"

type (
	Reply struct {
		AuthorName string        `yaml:"author_name"`
		Content    string        `yaml:"content"`
		PostedAgo  time.Duration `yaml:"posted_ago"`
	}

	Post struct {
		AuthorName string        `yaml:"author_name"`
		Title      string        `yaml:"title"`
		Content    string        `yaml:"content"`
		Tags       []string      `yaml:"tags"`
		PostedAgo  time.Duration `yaml:"posted_ago"`
		Replies    []Reply       `yaml:"replies"`
	}

	Catalog struct {
		Courses       []course.Course                `yaml:"courses"`
		Announcements []announcement.NewAnnouncement `yaml:"announcements"`
		Posts         []Post                         `yaml:"posts"`
	}

	// Result counts what Apply wrote.
	Result struct {
		Courses       int
		Announcements int
		Posts         int
	}
)

func Parse(data []byte) (Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, errors.Wrap(err, "parsing seed catalog")
	}
	return cat, nil
}

func Load(fsys fs.FS, path string) (Catalog, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Catalog{}, errors.Wrap(err, "reading seed catalog")
	}
	return Parse(data)
}

// Seeder writes a Catalog through the domain layer.
type Seeder struct {
	courses       *course.Catalog
	announcements *announcement.Service
	posts         forum.Repository
	logger        core.Logger
}

func NewSeeder(courses *course.Catalog, announcements *announcement.Service, posts forum.Repository, logger core.Logger) *Seeder {
	return &Seeder{courses: courses, announcements: announcements, posts: posts, logger: logger}
}

// Apply upserts the courses by ID. Announcements and posts are only created when
// none with the same title exists, so Apply can be run repeatedly.
func (s *Seeder) Apply(ctx context.Context, cat Catalog) (Result, error) {
	var res Result

	for _, crs := range cat.Courses {
		if _, err := s.courses.Save(ctx, crs); err != nil {
			return res, errors.Wrapf(err, "saving course %q", crs.ID)
		}
		res.Courses++
	}

	existing, err := s.announcements.Query(ctx)
	if err != nil {
		return res, err
	}
	titles := make(map[string]struct{}, len(existing))
	for _, ann := range existing {
		titles[ann.Title] = struct{}{}
	}
	for _, na := range cat.Announcements {
		if _, ok := titles[na.Title]; ok {
			continue
		}
		if _, err = s.announcements.Create(ctx, na); err != nil {
			return res, errors.Wrapf(err, "creating announcement %q", na.Title)
		}
		res.Announcements++
	}

	now := core.Now()
	for _, p := range cat.Posts {
		found, err := s.hasPost(ctx, p.Title)
		if err != nil {
			return res, err
		}
		if found {
			continue
		}
		if _, err = s.posts.CreatePost(ctx, p.toPost(now)); err != nil {
			return res, errors.Wrapf(err, "creating post %q", p.Title)
		}
		res.Posts++
	}

	s.logger.Info(fmt.Sprintf("seeded %d courses, %d announcements, %d posts", res.Courses, res.Announcements, res.Posts))
	return res, nil
}

func (s *Seeder) hasPost(ctx context.Context, title string) (bool, error) {
	page := core.NewPage(1, 100)
	for {
		posts, total, err := s.posts.QueryPosts(ctx, title, page)
		if err != nil {
			return false, errors.Wrap(err, "querying posts")
		}
		for _, post := range posts {
			if post.Title == title {
				return true, nil
			}
		}
		if page.Offset()+len(posts) >= total || len(posts) == 0 {
			return false, nil
		}
		page = core.NewPage(page.Number+1, page.Limit)
	}
}

func (p Post) toPost(now time.Time) forum.Post {
	tags := p.Tags
	if len(tags) == 0 {
		tags = forum.DefaultTags
	}
	post := forum.Post{
		ID:         uuid.New().String(),
		AuthorName: p.AuthorName,
		Title:      p.Title,
		Content:    p.Content,
		Tags:       append([]string{}, tags...),
		CreatedAt:  now.Add(-p.PostedAgo),
		Replies:    make([]forum.Reply, 0, len(p.Replies)),
	}
	for _, r := range p.Replies {
		post.Replies = append(post.Replies, forum.Reply{
			ID:         uuid.New().String(),
			AuthorName: r.AuthorName,
			Content:    r.Content,
			CreatedAt:  now.Add(-r.PostedAgo),
		})
	}
	return post
}
