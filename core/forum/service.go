package forum

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("post not found")
	ErrReplyNotFound = errors.New("reply not found")
	ErrForbidden     = errors.New("only admins can do this")
)

type (
	Repository interface {
		CreatePost(ctx context.Context, post Post) (Post, error)
		GetPost(ctx context.Context, id string) (Post, error)
		// QueryPosts returns the page of posts matching `search` (see Post.Matches), newest first,
		// and the total number of matching posts.
		QueryPosts(ctx context.Context, search string, page core.Page) ([]Post, int, error)
		AddReply(ctx context.Context, postID string, reply Reply) (Post, error)
		DeletePost(ctx context.Context, id string) error
		DeleteReply(ctx context.Context, postID, replyID string) error
	}

	// Service runs the moderated discussion board: admins post, everyone replies.
	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) (PostsPage, error) {
	filter.Clean()
	posts, total, err := svc.repo.QueryPosts(ctx, filter.Search, core.NewPage(filter.Page, filter.Limit))
	if err != nil {
		return PostsPage{}, errors.Wrap(err, "querying posts")
	}
	if posts == nil {
		posts = []Post{}
	}
	return PostsPage{Posts: posts, Total: total}, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Post, error) {
	return svc.repo.GetPost(ctx, id)
}

// CreatePost publishes a post. `np` must be validated.
func (svc *Service) CreatePost(ctx context.Context, author user.User, np NewPost) (Post, error) {
	if !author.IsAdmin() {
		return Post{}, ErrForbidden
	}
	tags := np.Tags
	if len(tags) == 0 {
		tags = append([]string{}, DefaultTags...)
	}
	post := Post{
		ID:         uuid.New().String(),
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Title:      np.Title,
		Content:    np.Content,
		Tags:       tags,
		CreatedAt:  core.Now(),
		Replies:    []Reply{},
	}
	return svc.repo.CreatePost(ctx, post)
}

// AddReply appends a reply to the post. `nr` must be validated.
func (svc *Service) AddReply(ctx context.Context, author user.User, postID string, nr NewReply) (Post, error) {
	reply := Reply{
		ID:         uuid.New().String(),
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Content:    nr.Content,
		CreatedAt:  core.Now(),
	}
	return svc.repo.AddReply(ctx, postID, reply)
}

func (svc *Service) DeletePost(ctx context.Context, actor user.User, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := svc.repo.DeletePost(ctx, id); err != nil {
		return err
	}
	svc.logger.Info(fmt.Sprintf("forum post %q deleted by %s", id, actor.Email))
	return nil
}

// DeleteReply removes a reply. Admins may remove any reply, users only their own.
func (svc *Service) DeleteReply(ctx context.Context, actor user.User, postID, replyID string) error {
	post, err := svc.repo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	var found *Reply
	for i := range post.Replies {
		if post.Replies[i].ID == replyID {
			found = &post.Replies[i]
			break
		}
	}
	if found == nil {
		return ErrReplyNotFound
	}
	if !actor.IsAdmin() && found.AuthorID != actor.ID {
		return ErrForbidden
	}
	return svc.repo.DeleteReply(ctx, postID, replyID)
}
