package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lumina/core/announcement"
	"github.com/trezcool/lumina/core/user"
)

func Test_announcementApi(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@test.jp", user.RoleAdmin, user.JobOther, true)
	student := env.createUser(t, "Hanako", "hanako@test.jp", user.RoleStudent, user.JobOther, true)
	adminToken := getToken(t, env.app, admin)

	older := announcement.NewAnnouncement{Date: "2023-10-28", Title: "有料Note「在宅医療完全攻略」の更新情報", URL: "https://www.notion.so/product/zaitaku-update"}
	newer := announcement.NewAnnouncement{Date: "2023-11-01", Title: "発売記念キャンペーン", URL: "https://www.notion.so/product/startline-campaign"}

	runHTTPTests(t, env, []httpTest{
		{name: "empty", path: "/v1/announcements", wantCode: http.StatusOK, wantData: marchallList(t)},
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/announcements", body: marchallObj(t, older),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required", method: http.MethodPost, path: "/v1/announcements", token: getToken(t, env.app, student),
			body: marchallObj(t, older), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid", method: http.MethodPost, path: "/v1/announcements", token: adminToken,
			body:     marchallObj(t, announcement.NewAnnouncement{Date: "2023.11.01", Title: "x", URL: "#"}),
			wantCode: http.StatusBadRequest,
		},
		{name: "older", method: http.MethodPost, path: "/v1/announcements", token: adminToken, body: marchallObj(t, older), wantCode: http.StatusCreated},
		{name: "newer", method: http.MethodPost, path: "/v1/announcements", token: adminToken, body: marchallObj(t, newer), wantCode: http.StatusCreated},
	})

	req, rec := newRequest(http.MethodGet, "/v1/announcements")
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	var anns []announcement.Announcement
	unmarshal(t, rec, &anns)
	require.Len(t, anns, 2)
	assert.Equal(t, newer.Title, anns[0].Title)
	assert.Equal(t, older.Date, anns[1].Date)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/announcements/"+anns[0].ID, adminToken)
	env.serve(req, rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/announcements/"+anns[0].ID, adminToken)
	env.serve(req, rec)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
