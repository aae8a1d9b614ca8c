package user

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository interface {
		EmailExists(ctx context.Context, email string, excludedIDs ...string) (bool, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields; see QueryFilter.Match.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsers(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) checkEmailUniqueness(email string, excludedIDs ...string) error {
	exists, err := svc.repo.EmailExists(context.Background(), email, excludedIDs...)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

// Signup creates a STUDENT account. Regulated jobs start unverified.
func (svc *Service) Signup(ctx context.Context, nu NewUser) (User, error) {
	now := core.Now()
	usr := User{
		Name:            nu.Name,
		Email:           nu.Email,
		Role:            RoleStudent,
		JobTitle:        nu.JobTitle,
		IsVerified:      !nu.JobTitle.IsRegulated(),
		LicenseImageURL: nu.LicenseImageURL,
		AvatarURL:       AvatarURL(nu.Name),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return svc.SetLastLogin(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// PendingVerification lists the regulated users waiting for license verification, oldest first.
func (svc *Service) PendingVerification(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(
		ctx,
		&QueryFilter{PendingVerification: true},
		[]core.DBOrdering{{Field: "created_at", Ascending: true}},
	)
}

func (svc *Service) Admins(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx, &QueryFilter{Role: RoleAdmin}, nil)
}

// recomputeVerification decides the verification flag after a profile change:
// non-regulated users are always verified; a regulated user stays verified only
// if they were already a verified regulated user and did not replace their license.
func recomputeVerification(orig User, job JobTitle, licenseURL string) bool {
	if !job.IsRegulated() {
		return true
	}
	verified := orig.IsRegulated() && orig.IsVerified
	if licenseURL != orig.LicenseImageURL {
		verified = false
	}
	return verified
}

// UpdateProfile applies a self-service profile change. `up` must be validated.
func (svc *Service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	usr.IsVerified = recomputeVerification(usr, up.JobTitle, up.LicenseImageURL)
	usr.Name = up.Name
	usr.JobTitle = up.JobTitle
	usr.LicenseImageURL = up.LicenseImageURL
	usr.AvatarURL = up.AvatarURL
	usr.UpdatedAt = core.Now()
	if up.Password != "" {
		if err := usr.SetPassword(up.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// Verify marks the user's license as verified and notifies them.
func (svc *Service) Verify(ctx context.Context, id string) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.IsVerified {
		return usr, nil
	}
	usr.IsVerified = true
	usr.UpdatedAt = core.Now()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}
	svc.sendVerifiedMail(usr)
	return usr, nil
}

func (svc *Service) SetRole(ctx context.Context, id string, role Role) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsers(ctx, ids...)
}

func (svc *Service) sendVerifiedMail(usr User) {
	if !usr.IsRegulated() {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your license has been verified",
		TemplateName: "license_verified",
		TemplateData: usr,
	})
}
