package pgrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/user"
)

const userColumns = `id, name, email, role, job_title, is_verified, license_image_url, avatar_url,
	password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID              string      `db:"id"`
	Name            string      `db:"name"`
	Email           string      `db:"email"`
	Role            string      `db:"role"`
	JobTitle        string      `db:"job_title"`
	IsVerified      bool        `db:"is_verified"`
	LicenseImageURL null.String `db:"license_image_url"`
	AvatarURL       null.String `db:"avatar_url"`
	PasswordHash    null.Bytes  `db:"password_hash"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
	LastLogin       null.Time   `db:"last_login"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:              usr.ID,
		Name:            usr.Name,
		Email:           usr.Email,
		Role:            string(usr.Role),
		JobTitle:        string(usr.JobTitle),
		IsVerified:      usr.IsVerified,
		LicenseImageURL: null.NewString(usr.LicenseImageURL, usr.LicenseImageURL != ""),
		AvatarURL:       null.NewString(usr.AvatarURL, usr.AvatarURL != ""),
		PasswordHash:    null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		CreatedAt:       usr.CreatedAt.UTC(),
		UpdatedAt:       usr.UpdatedAt.UTC(),
		LastLogin:       null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:              row.ID,
		Name:            row.Name,
		Email:           row.Email,
		Role:            user.Role(row.Role),
		JobTitle:        user.JobTitle(row.JobTitle),
		IsVerified:      row.IsVerified,
		LicenseImageURL: row.LicenseImageURL.String,
		AvatarURL:       row.AvatarURL.String,
		PasswordHash:    row.PasswordHash.Bytes,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
		LastLogin:       row.LastLogin.Time.UTC(),
	}
}

func (repo userRepository) EmailExists(ctx context.Context, email string, excludedIDs ...string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1 AND NOT (id::text = ANY($2)))`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, email, pq.StringArray(append([]string{}, excludedIDs...))); err != nil {
		return false, errors.Wrap(err, "checking email uniqueness")
	}
	return exists, nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	q := `INSERT INTO "user" (` + userColumns + `) VALUES (:id, :name, :email, :role, :job_title, :is_verified,
		:license_image_url, :avatar_url, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.toRow(usr)); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		row userRow
		err error
	)
	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM "user" WHERE id = $1`, filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM "user" WHERE email = $1`, filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return repo.fromRow(row), nil
}

var userOrderColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"created_at": "created_at",
	"last_login": "last_login",
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where = append(where, "(name ILIKE ? OR email ILIKE ?)")
			args = append(args, val, val)
		}
		if filter.Role != "" {
			where = append(where, "role = ?")
			args = append(args, string(filter.Role))
		}
		// pharmacist is the only regulated job title
		if filter.PendingVerification {
			where = append(where, "job_title = ? AND NOT is_verified")
			args = append(args, string(user.JobPharmacist))
		}
	}

	q := `SELECT ` + userColumns + ` FROM "user"`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	ordering = core.FilterOrderings(ordering, userOrderColumns)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	orderList = append(orderList, "id ASC")
	q += " ORDER BY " + strings.Join(orderList, ", ")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user" SET name = :name, email = :email, role = :role, job_title = :job_title,
		is_verified = :is_verified, license_image_url = :license_image_url, avatar_url = :avatar_url,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.toRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUsers(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id::text IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
