package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/lumina/apps/api/echo"
	"github.com/trezcool/lumina/core/user"
)

func Test_userApi_signup(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Taken", "taken@test.jp", user.RoleStudent, user.JobOther, true)

	signup := func(name, email string, job user.JobTitle, pwd string) []byte {
		return marchallObj(t, user.NewUser{Name: name, Email: email, JobTitle: job, Password: pwd, PasswordConfirm: pwd})
	}

	t.Run("medical clerk", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/signup", signup("Hanako", "Hanako@Test.jp", user.JobMedicalClerk, strongPwd))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res LoginResponse
		unmarshal(t, rec, &res)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "hanako@test.jp", res.User.Email)
		assert.Equal(t, user.RoleStudent, res.User.Role)
		assert.True(t, res.User.IsVerified)
		assert.NotEmpty(t, res.User.AvatarURL)
	})

	t.Run("pharmacist starts unverified", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/signup", signup("Ken", "ken@test.jp", user.JobPharmacist, strongPwd))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res LoginResponse
		unmarshal(t, rec, &res)
		assert.False(t, res.User.IsVerified)
	})

	tests := []httpTest{
		{
			name: "email taken", method: http.MethodPost, path: "/v1/users/signup",
			body:     signup("Other", "taken@test.jp", user.JobDoctor, strongPwd),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "weak password", method: http.MethodPost, path: "/v1/users/signup",
			body:     signup("Weak", "weak@test.jp", user.JobDoctor, "12345678"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "invalid job title", method: http.MethodPost, path: "/v1/users/signup",
			body:     signup("Job", "job@test.jp", "astronaut", strongPwd),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"job_title": "invalid job title"}),
		},
	}
	runHTTPTests(t, env, tests)
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Hanako", "hanako@test.jp", user.RoleStudent, user.JobOther, true)

	body := func(email, pwd string) []byte { return marchallObj(t, LoginRequest{Email: email, Password: pwd}) }

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body(" HANAKO@test.jp ", strongPwd))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res LoginResponse
		unmarshal(t, rec, &res)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, usr.ID, res.User.ID)
		assert.False(t, res.User.LastLogin.IsZero())
	})

	tests := []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body: body(usr.Email, "nope"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/users/login",
			body: body("ghost@test.jp", strongPwd), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login",
			body: body("", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
	}
	runHTTPTests(t, env, tests)
}

func Test_userApi_me(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Hanako", "hanako@test.jp", user.RoleStudent, user.JobOther, true)
	gone := env.createUser(t, "Gone", "gone@test.jp", user.RoleStudent, user.JobOther, true)
	goneToken := getToken(t, env.app, gone)
	require.NoError(t, env.usrRepo.DeleteUsers(context.Background(), gone.ID))

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "deleted user", path: "/v1/users/me", token: goneToken,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{name: "current user", path: "/v1/users/me", token: getToken(t, env.app, usr), wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
	}
	runHTTPTests(t, env, tests)
}

func Test_userApi_updateProfile(t *testing.T) {
	env := setup(t)
	pharma := env.createUser(t, "Ken", "ken@test.jp", user.RoleAdvanced, user.JobPharmacist, true)
	token := getToken(t, env.app, pharma)

	update := func(up user.UpdateProfile) user.User {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/me", token, marchallObj(t, up))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var usr user.User
		unmarshal(t, rec, &usr)
		return usr
	}

	usr := update(user.UpdateProfile{Name: "Ken Sato"})
	assert.Equal(t, "Ken Sato", usr.Name)
	assert.True(t, usr.IsVerified, "a name change keeps the verification")

	usr = update(user.UpdateProfile{LicenseImageURL: "https://files.test.jp/license.png"})
	assert.False(t, usr.IsVerified, "a new license must be verified again")

	usr = update(user.UpdateProfile{JobTitle: user.JobMedicalClerk})
	assert.True(t, usr.IsVerified)
	assert.Equal(t, user.RoleAdvanced, usr.Role)
}

func Test_userApi_admin(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@test.jp", user.RoleAdmin, user.JobOther, true)
	student := env.createUser(t, "Hanako", "hanako@test.jp", user.RoleStudent, user.JobMedicalClerk, true)
	pharma := env.createUser(t, "Ken", "ken@test.jp", user.RoleStudent, user.JobPharmacist, false)
	adminToken := getToken(t, env.app, admin)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, env.app, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, admin, student, pharma)},
		{
			name: "pending verification", path: "/v1/users?pending_verification=true", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, pharma),
		},
		{name: "search", path: "/v1/users?search=HANA", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, student)},
		{name: "ordering", path: "/v1/users?ordering=-name", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, pharma, student, admin)},
		{
			name: "roles", path: "/v1/users/roles", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, RolesResponse{Roles: user.Roles, JobTitles: user.JobTitles}),
		},
		{
			name: "cannot change own role", method: http.MethodPut, path: "/v1/users/" + admin.ID + "/role", token: adminToken,
			body: marchallObj(t, user.SetRole{Role: user.RoleStudent}), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid role", method: http.MethodPut, path: "/v1/users/" + student.ID + "/role", token: adminToken,
			body: marchallObj(t, user.SetRole{Role: "ROOT"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "delete unknown", method: http.MethodDelete, path: "/v1/users/unknown", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()}),
		},
	}
	runHTTPTests(t, env, tests)

	t.Run("verify", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/"+pharma.ID+"/verify", adminToken)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var usr user.User
		unmarshal(t, rec, &usr)
		assert.True(t, usr.IsVerified)

		sent := env.mail.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, pharma.Email, sent[0].To[0].Address)
		assert.Equal(t, "license_verified", sent[0].TemplateName)
	})

	t.Run("set role", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID+"/role", adminToken, marchallObj(t, user.SetRole{Role: user.RoleAdvanced}))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var usr user.User
		unmarshal(t, rec, &usr)
		assert.Equal(t, user.RoleAdvanced, usr.Role)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+student.ID, adminToken)
		env.serve(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		_, err := env.usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
		assert.Equal(t, user.ErrNotFound, err)
	})
}
