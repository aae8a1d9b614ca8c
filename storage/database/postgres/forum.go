package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/forum"
)

type (
	postRow struct {
		ID         string         `db:"id"`
		AuthorID   null.String    `db:"author_id"`
		AuthorName string         `db:"author_name"`
		Title      string         `db:"title"`
		Content    string         `db:"content"`
		Tags       pq.StringArray `db:"tags"`
		CreatedAt  time.Time      `db:"created_at"`
	}

	replyRow struct {
		ID         string      `db:"id"`
		PostID     string      `db:"post_id"`
		AuthorID   null.String `db:"author_id"`
		AuthorName string      `db:"author_name"`
		Content    string      `db:"content"`
		CreatedAt  time.Time   `db:"created_at"`
	}
)

const (
	postColumns  = `id, author_id, author_name, title, content, tags, created_at`
	replyColumns = `id, post_id, author_id, author_name, content, created_at`

	// mirrors forum.Post.Matches
	postSearchClause = `($1 = '' OR title ILIKE '%' || $1 || '%' OR content ILIKE '%' || $1 || '%'
		OR EXISTS (SELECT 1 FROM UNNEST(tags) tag WHERE tag ILIKE '%' || $1 || '%'))`
)

type forumRepository struct {
	db *sqlx.DB
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *sqlx.DB) *forumRepository {
	return &forumRepository{db: db}
}

func (repo forumRepository) fromRows(row postRow, replies []replyRow) forum.Post {
	post := forum.Post{
		ID:         row.ID,
		AuthorID:   row.AuthorID.String,
		AuthorName: row.AuthorName,
		Title:      row.Title,
		Content:    row.Content,
		Tags:       append([]string{}, row.Tags...),
		CreatedAt:  row.CreatedAt.UTC(),
		Replies:    make([]forum.Reply, 0, len(replies)),
	}
	for _, r := range replies {
		post.Replies = append(post.Replies, forum.Reply{
			ID:         r.ID,
			AuthorID:   r.AuthorID.String,
			AuthorName: r.AuthorName,
			Content:    r.Content,
			CreatedAt:  r.CreatedAt.UTC(),
		})
	}
	return post
}

func (repo forumRepository) CreatePost(ctx context.Context, post forum.Post) (forum.Post, error) {
	row := postRow{
		ID:         post.ID,
		AuthorID:   null.NewString(post.AuthorID, post.AuthorID != ""),
		AuthorName: post.AuthorName,
		Title:      post.Title,
		Content:    post.Content,
		Tags:       append(pq.StringArray{}, post.Tags...),
		CreatedAt:  post.CreatedAt.UTC(),
	}
	q := `INSERT INTO forum_post (` + postColumns + `) VALUES (:id, :author_id, :author_name, :title, :content, :tags, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return forum.Post{}, errors.Wrap(err, "inserting post")
	}
	return post, nil
}

func (repo forumRepository) GetPost(ctx context.Context, id string) (forum.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return forum.Post{}, forum.ErrNotFound
	}
	var row postRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+postColumns+` FROM forum_post WHERE id = $1`, id); err != nil {
		return forum.Post{}, trapNoRowsErr(err, forum.ErrNotFound, "getting post")
	}
	var replies []replyRow
	q := `SELECT ` + replyColumns + ` FROM forum_reply WHERE post_id = $1 ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &replies, q, id); err != nil {
		return forum.Post{}, errors.Wrap(err, "querying replies")
	}
	return repo.fromRows(row, replies), nil
}

func (repo forumRepository) QueryPosts(ctx context.Context, search string, page core.Page) ([]forum.Post, int, error) {
	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM forum_post WHERE `+postSearchClause, search); err != nil {
		return nil, 0, errors.Wrap(err, "counting posts")
	}

	var rows []postRow
	q := `SELECT ` + postColumns + ` FROM forum_post WHERE ` + postSearchClause + `
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	if err := repo.db.SelectContext(ctx, &rows, q, search, page.Limit, page.Offset()); err != nil {
		return nil, 0, errors.Wrap(err, "querying posts")
	}
	if len(rows) == 0 {
		return []forum.Post{}, total, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var replies []replyRow
	q = `SELECT ` + replyColumns + ` FROM forum_reply WHERE post_id::text = ANY($1) ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &replies, q, pq.StringArray(ids)); err != nil {
		return nil, 0, errors.Wrap(err, "querying replies")
	}
	byPost := make(map[string][]replyRow, len(rows))
	for _, r := range replies {
		byPost[r.PostID] = append(byPost[r.PostID], r)
	}

	posts := make([]forum.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, repo.fromRows(row, byPost[row.ID]))
	}
	return posts, total, nil
}

func (repo forumRepository) AddReply(ctx context.Context, postID string, reply forum.Reply) (forum.Post, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return forum.Post{}, forum.ErrNotFound
	}
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var id string
		if err := tx.GetContext(ctx, &id, `SELECT id FROM forum_post WHERE id = $1 FOR UPDATE`, postID); err != nil {
			return trapNoRowsErr(err, forum.ErrNotFound, "locking post")
		}
		row := replyRow{
			ID:         reply.ID,
			PostID:     postID,
			AuthorID:   null.NewString(reply.AuthorID, reply.AuthorID != ""),
			AuthorName: reply.AuthorName,
			Content:    reply.Content,
			CreatedAt:  reply.CreatedAt.UTC(),
		}
		q := `INSERT INTO forum_reply (` + replyColumns + `) VALUES (:id, :post_id, :author_id, :author_name, :content, :created_at)`
		_, err := tx.NamedExecContext(ctx, q, row)
		return errors.Wrap(err, "inserting reply")
	})
	if err != nil {
		return forum.Post{}, err
	}
	return repo.GetPost(ctx, postID)
}

func (repo forumRepository) DeletePost(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return forum.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM forum_post WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting post")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return forum.ErrNotFound
	}
	return nil
}

func (repo forumRepository) DeleteReply(ctx context.Context, postID, replyID string) error {
	if _, err := uuid.Parse(replyID); err != nil {
		return forum.ErrReplyNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM forum_reply WHERE post_id = $1 AND id = $2`, postID, replyID)
	if err != nil {
		return errors.Wrap(err, "deleting reply")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return forum.ErrReplyNotFound
	}
	return nil
}
