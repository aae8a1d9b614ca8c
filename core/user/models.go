package user

import (
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/lumina/core"
)

// Role is one of the three static authorization tiers.
type Role string

const (
	RoleStudent  Role = "STUDENT" // open tier
	RoleAdvanced Role = "ADVANCED"
	RoleAdmin    Role = "ADMIN"
)

var Roles = []Role{RoleStudent, RoleAdvanced, RoleAdmin}

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleAdvanced, RoleAdmin:
		return true
	}
	return false
}

// JobTitle is the user's professional category.
type JobTitle string

const (
	JobDoctor          JobTitle = "doctor"
	JobPharmacist      JobTitle = "pharmacist" // regulated: requires license verification
	JobMedicalClerk    JobTitle = "medical_clerk"
	JobDispensingClerk JobTitle = "dispensing_clerk"
	JobOther           JobTitle = "other"
)

var JobTitles = []JobTitle{JobDoctor, JobPharmacist, JobMedicalClerk, JobDispensingClerk, JobOther}

func (j JobTitle) IsValid() bool {
	switch j {
	case JobDoctor, JobPharmacist, JobMedicalClerk, JobDispensingClerk, JobOther:
		return true
	}
	return false
}

// IsRegulated reports whether the job requires an admin-verified credential.
func (j JobTitle) IsRegulated() bool {
	return j == JobPharmacist
}

type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	JobTitle        JobTitle  `json:"job_title"`
	IsVerified      bool      `json:"is_verified"`
	LicenseImageURL string    `json:"license_image_url,omitempty"`
	AvatarURL       string    `json:"avatar_url"`
	PasswordHash    []byte    `json:"-"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
	LastLogin       time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u User) IsRegulated() bool { return u.JobTitle.IsRegulated() }

// Verified is always true for non-regulated users.
func (u User) Verified() bool {
	return !u.IsRegulated() || u.IsVerified
}

// PendingVerification reports whether the user is waiting for an admin to check their license.
func (u User) PendingVerification() bool {
	return u.IsRegulated() && !u.IsVerified
}

func AvatarURL(seed string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(seed)
}

// NewUser contains information needed to sign up.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	JobTitle        JobTitle `json:"job_title" validate:"required,jobtitle"`
	LicenseImageURL string   `json:"license_image_url" validate:"omitempty,url"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.LicenseImageURL = core.CleanString(nu.LicenseImageURL)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkEmailUniqueness(nu.Email)
}

// UpdateProfile defines what information a user may change on their own account.
// Empty fields keep their current value.
type UpdateProfile struct {
	Name            string   `json:"name"`
	JobTitle        JobTitle `json:"job_title" validate:"omitempty,jobtitle"`
	LicenseImageURL string   `json:"license_image_url" validate:"omitempty,url"`
	AvatarURL       string   `json:"avatar_url" validate:"omitempty,url"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	email string // for password similarity checks
}

func (up *UpdateProfile) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = origUsr.Name
	}
	if up.JobTitle == "" {
		up.JobTitle = origUsr.JobTitle
	}
	if lic := core.CleanString(up.LicenseImageURL); lic != "" {
		up.LicenseImageURL = lic
	} else {
		up.LicenseImageURL = origUsr.LicenseImageURL
	}
	if avatar := core.CleanString(up.AvatarURL); avatar != "" {
		up.AvatarURL = avatar
	} else {
		up.AvatarURL = origUsr.AvatarURL
	}
	up.email = origUsr.Email
	return validate.Struct(up)
}

// SetRole is the admin payload to change a user's role.
type SetRole struct {
	Role Role `json:"role" validate:"required,role"`
}

func (sr SetRole) Validate(validate *validator.Validate) error { return validate.Struct(sr) }

type QueryFilter struct {
	Search              string `query:"search"`
	Role                Role   `query:"role"`
	PendingVerification bool   `query:"pending_verification"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && !qf.PendingVerification
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Match applies the filter to a single user (AND on set fields).
// Search is a case-insensitive match on one of Name or Email.
func (qf *QueryFilter) Match(usr User) bool {
	if qf == nil {
		return true
	}
	if qf.Search != "" && !core.ContainsFold(usr.Name, qf.Search) && !core.ContainsFold(usr.Email, qf.Search) {
		return false
	}
	if qf.Role != "" && usr.Role != qf.Role {
		return false
	}
	if qf.PendingVerification && !usr.PendingVerification() {
		return false
	}
	return true
}

// GetFilter selects a single user. The first non-empty field wins.
type GetFilter struct {
	ID    string
	Email string
}
