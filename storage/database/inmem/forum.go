package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/forum"
)

type forumRepository struct {
	db *postTable
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *DB) *forumRepository {
	return &forumRepository{db: db.post}
}

func (repo *forumRepository) CreatePost(_ context.Context, post forum.Post) (forum.Post, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[post.ID] = post.Clone()
	return post, nil
}

func (repo *forumRepository) GetPost(_ context.Context, id string) (forum.Post, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	post, ok := repo.db.table[id]
	if !ok {
		return forum.Post{}, forum.ErrNotFound
	}
	return post.Clone(), nil
}

func (repo *forumRepository) QueryPosts(_ context.Context, search string, page core.Page) ([]forum.Post, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	posts := make([]forum.Post, 0, len(repo.db.table))
	for _, post := range repo.db.table {
		if post.Matches(search) {
			posts = append(posts, post)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	start, end := page.Bounds(len(posts))
	res := make([]forum.Post, 0, end-start)
	for _, post := range posts[start:end] {
		res = append(res, post.Clone())
	}
	return res, len(posts), nil
}

func (repo *forumRepository) AddReply(_ context.Context, postID string, reply forum.Reply) (forum.Post, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	post, ok := repo.db.table[postID]
	if !ok {
		return forum.Post{}, forum.ErrNotFound
	}
	post = post.Clone()
	post.Replies = append(post.Replies, reply)
	repo.db.table[postID] = post
	return post.Clone(), nil
}

func (repo *forumRepository) DeletePost(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return forum.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *forumRepository) DeleteReply(_ context.Context, postID, replyID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	post, ok := repo.db.table[postID]
	if !ok {
		return forum.ErrNotFound
	}
	post = post.Clone()
	for i, reply := range post.Replies {
		if reply.ID == replyID {
			post.Replies = append(post.Replies[:i], post.Replies[i+1:]...)
			repo.db.table[postID] = post
			return nil
		}
	}
	return forum.ErrReplyNotFound
}
