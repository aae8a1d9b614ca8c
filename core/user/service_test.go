package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/user"
	appfs "github.com/trezcool/lumina/fs"
	emailsvc "github.com/trezcool/lumina/services/email"
	inmemdb "github.com/trezcool/lumina/storage/database/inmem"
	testutil "github.com/trezcool/lumina/tests"
)

const strongPwd = "Nq7#vuL9!pz"

type fixture struct {
	svc      *user.Service
	repo     user.Repository
	mail     *emailsvc.ConsoleServiceMock
	validate *validator.Validate
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conf := core.NewTestConfig()
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(appfs.FS, conf, logger)
	user.LoadCommonPasswords(appfs.FS, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	repo := inmemdb.NewUserRepository(inmemdb.New())
	mail := emailsvc.NewConsoleServiceMock(conf, logger)
	return fixture{svc: user.NewService(repo, mail, logger), repo: repo, mail: mail, validate: validate}
}

func TestService_Signup(t *testing.T) {
	tests := []struct {
		name         string
		job          user.JobTitle
		wantVerified bool
	}{
		{name: "medical clerk", job: user.JobMedicalClerk, wantVerified: true},
		{name: "doctor", job: user.JobDoctor, wantVerified: true},
		{name: "pharmacist", job: user.JobPharmacist, wantVerified: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			nu := user.NewUser{
				Name:            "Hanako",
				Email:           " Hanako@Example.com ",
				JobTitle:        tt.job,
				Password:        strongPwd,
				PasswordConfirm: strongPwd,
			}
			require.NoError(t, nu.Validate(fx.validate, fx.svc))

			usr, err := fx.svc.Signup(context.Background(), nu)
			require.NoError(t, err)
			assert.Equal(t, "hanako@example.com", usr.Email)
			assert.Equal(t, user.RoleStudent, usr.Role)
			assert.Equal(t, tt.wantVerified, usr.IsVerified)
			assert.NotEmpty(t, usr.AvatarURL)
		})
	}
}

func TestNewUser_Validate_emailTaken(t *testing.T) {
	fx := newFixture(t)
	testutil.CreateUser(t, fx.repo, "Taro", "taro@example.com", strongPwd, user.RoleStudent, user.JobOther, true)

	nu := user.NewUser{Name: "Other", Email: "TARO@example.com", JobTitle: user.JobOther, Password: strongPwd, PasswordConfirm: strongPwd}
	err := nu.Validate(fx.validate, fx.svc)
	assert.True(t, core.IsValidationError(err), "Validate() error = %v", err)
}

func TestService_Authenticate(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, fx.repo, "Taro", "taro@example.com", strongPwd, user.RoleStudent, user.JobOther, true)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "valid", email: "Taro@Example.com", pwd: strongPwd},
		{name: "wrong password", email: "taro@example.com", pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "unknown email", email: "jiro@example.com", pwd: strongPwd, wantErr: user.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := fx.svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, usr.LastLogin.IsZero())
		})
	}
}

func TestService_Verify(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	pharma := testutil.CreateUser(t, fx.repo, "Yuki", "yuki@example.com", strongPwd, user.RoleStudent, user.JobPharmacist, false)

	usr, err := fx.svc.Verify(ctx, pharma.ID)
	require.NoError(t, err)
	assert.True(t, usr.IsVerified)

	sent := fx.mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "yuki@example.com", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Yuki")

	// already verified: no second email
	_, err = fx.svc.Verify(ctx, pharma.ID)
	require.NoError(t, err)
	assert.Len(t, fx.mail.SentMessages(), 1)

	_, err = fx.svc.Verify(ctx, "ghost")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_UpdateProfile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, fx.repo, "Ken", "ken@example.com", strongPwd, user.RoleStudent, user.JobMedicalClerk, true)

	up := user.UpdateProfile{JobTitle: user.JobPharmacist, LicenseImageURL: "https://example.com/license.png"}
	require.NoError(t, up.Validate(usr, fx.validate))
	usr, err := fx.svc.UpdateProfile(ctx, usr, up)
	require.NoError(t, err)
	assert.Equal(t, "Ken", usr.Name)
	assert.False(t, usr.IsVerified, "switching to a regulated job needs verification")

	pending, err := fx.svc.PendingVerification(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, usr.ID, pending[0].ID)

	up = user.UpdateProfile{JobTitle: user.JobOther}
	require.NoError(t, up.Validate(usr, fx.validate))
	usr, err = fx.svc.UpdateProfile(ctx, usr, up)
	require.NoError(t, err)
	assert.True(t, usr.IsVerified)
}

func TestService_Query(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	testutil.CreateUser(t, fx.repo, "Aiko", "aiko@example.com", "", user.RoleAdmin, user.JobOther, true, now.Add(-2*time.Hour))
	testutil.CreateUser(t, fx.repo, "Bunta", "bunta@example.com", "", user.RoleStudent, user.JobPharmacist, false, now.Add(-time.Hour))
	testutil.CreateUser(t, fx.repo, "Chika", "chika@example.com", "", user.RoleAdvanced, user.JobDoctor, true, now)

	tests := []struct {
		name     string
		filter   *user.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all, default ordering", want: []string{"Aiko", "Bunta", "Chika"}},
		{name: "name desc", ordering: []core.DBOrdering{{Field: "name"}}, want: []string{"Chika", "Bunta", "Aiko"}},
		{name: "unknown ordering ignored", ordering: []core.DBOrdering{{Field: "password"}}, want: []string{"Aiko", "Bunta", "Chika"}},
		{name: "search", filter: &user.QueryFilter{Search: "CHI"}, want: []string{"Chika"}},
		{name: "role", filter: &user.QueryFilter{Role: user.RoleAdmin}, want: []string{"Aiko"}},
		{name: "pending verification", filter: &user.QueryFilter{PendingVerification: true}, want: []string{"Bunta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := fx.svc.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			names := make([]string, 0, len(users))
			for _, usr := range users {
				names = append(names, usr.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
