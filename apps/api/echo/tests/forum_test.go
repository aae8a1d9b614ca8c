package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/forum"
	"github.com/trezcool/lumina/core/user"
)

func Test_forumApi(t *testing.T) {
	env := courseEnv{testEnv: setup(t)}
	env.admin = env.createUser(t, "管理薬剤師B", "admin@test.jp", user.RoleAdmin, user.JobPharmacist, true)
	env.student = env.createUser(t, "新人事務C", "clerk@test.jp", user.RoleStudent, user.JobMedicalClerk, true)
	other := env.createUser(t, "Jiro", "jiro@test.jp", user.RoleStudent, user.JobOther, true)
	env.adminToken = getToken(t, env.app, env.admin)
	env.studentToken = getToken(t, env.app, env.student)
	otherToken := getToken(t, env.app, other)

	now := time.Date(2023, 11, 1, 9, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = time.Now }()

	code, body := env.do(t, http.MethodPost, "/v1/forum/posts", env.studentToken, forum.NewPost{Title: "Hi", Content: "Hello"})
	require.Equal(t, http.StatusForbidden, code, string(body))

	code, body = env.do(t, http.MethodPost, "/v1/forum/posts", env.adminToken, forum.NewPost{
		Title:   "自家製剤加算の予製について",
		Content: "予製剤として作り置きしている場合の算定可否について",
		Tags:    []string{"#自家製剤加算", "質問", "質問"},
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	post := decode[forum.Post](t, body)
	assert.Equal(t, []string{"自家製剤加算", "質問"}, post.Tags)
	assert.Equal(t, env.admin.Name, post.AuthorName)

	now = now.Add(time.Minute)
	code, body = env.do(t, http.MethodPost, "/v1/forum/posts", env.adminToken, forum.NewPost{Title: "Untagged", Content: "Body"})
	require.Equal(t, http.StatusCreated, code, string(body))
	assert.Equal(t, forum.DefaultTags, decode[forum.Post](t, body).Tags)

	t.Run("query", func(t *testing.T) {
		code, body := env.do(t, http.MethodGet, "/v1/forum/posts?search=%E8%B3%AA%E5%95%8F", env.studentToken, nil) // 質問
		require.Equal(t, http.StatusOK, code, string(body))
		page := decode[forum.PostsPage](t, body)
		assert.Equal(t, 1, page.Total)
		require.Len(t, page.Posts, 1)
		assert.Equal(t, post.ID, page.Posts[0].ID)

		code, body = env.do(t, http.MethodGet, "/v1/forum/posts?limit=1&page=2", env.studentToken, nil)
		require.Equal(t, http.StatusOK, code, string(body))
		page = decode[forum.PostsPage](t, body)
		assert.Equal(t, 2, page.Total)
		require.Len(t, page.Posts, 1)
		assert.Equal(t, post.ID, page.Posts[0].ID, "newest first")
	})

	var replyID string
	t.Run("reply", func(t *testing.T) {
		code, body := env.do(t, http.MethodPost, "/v1/forum/posts/"+post.ID+"/replies", env.studentToken, forum.NewReply{Content: "  都道府県によって解釈が異なります  "})
		require.Equal(t, http.StatusCreated, code, string(body))
		updated := decode[forum.Post](t, body)
		require.Len(t, updated.Replies, 1)
		assert.Equal(t, "都道府県によって解釈が異なります", updated.Replies[0].Content)
		assert.Equal(t, env.student.ID, updated.Replies[0].AuthorID)
		replyID = updated.Replies[0].ID

		code, _ = env.do(t, http.MethodPost, "/v1/forum/posts/"+post.ID+"/replies", env.studentToken, forum.NewReply{Content: " "})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	runHTTPTests(t, env.testEnv, []httpTest{
		{
			name: "reply of someone else", method: http.MethodDelete, path: "/v1/forum/posts/" + post.ID + "/replies/" + replyID,
			token: otherToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: forum.ErrForbidden.Error()}),
		},
		{
			name: "own reply", method: http.MethodDelete, path: "/v1/forum/posts/" + post.ID + "/replies/" + replyID,
			token: env.studentToken, wantCode: http.StatusNoContent,
		},
		{
			name: "post as student", method: http.MethodDelete, path: "/v1/forum/posts/" + post.ID,
			token: env.studentToken, wantCode: http.StatusForbidden,
		},
		{name: "post as admin", method: http.MethodDelete, path: "/v1/forum/posts/" + post.ID, token: env.adminToken, wantCode: http.StatusNoContent},
		{
			name: "deleted post", path: "/v1/forum/posts/" + post.ID, token: env.studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: forum.ErrNotFound.Error()}),
		},
	})
}
