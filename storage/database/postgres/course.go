package pgrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/user"
)

const courseColumns = `id, title, description, thumbnail_url, modules, required_role, access_code,
	is_note_exclusive, created_at, updated_at`

type courseRow struct {
	ID              string         `db:"id"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	ThumbnailURL    null.String    `db:"thumbnail_url"`
	Modules         types.JSONText `db:"modules"`
	RequiredRole    string         `db:"required_role"`
	AccessCode      null.String    `db:"access_code"`
	IsNoteExclusive bool           `db:"is_note_exclusive"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) toRow(crs course.Course) (courseRow, error) {
	mods := crs.Modules
	if mods == nil {
		mods = []course.Module{}
	}
	modules, err := json.Marshal(mods)
	if err != nil {
		return courseRow{}, errors.Wrap(err, "encoding modules")
	}
	return courseRow{
		ID:              crs.ID,
		Title:           crs.Title,
		Description:     crs.Description,
		ThumbnailURL:    null.NewString(crs.ThumbnailURL, crs.ThumbnailURL != ""),
		Modules:         modules,
		RequiredRole:    string(crs.RequiredRole),
		AccessCode:      null.NewString(crs.AccessCode, crs.AccessCode != ""),
		IsNoteExclusive: crs.IsNoteExclusive,
		CreatedAt:       crs.CreatedAt.UTC(),
		UpdatedAt:       crs.UpdatedAt.UTC(),
	}, nil
}

func (repo courseRepository) fromRow(row courseRow) (course.Course, error) {
	crs := course.Course{
		ID:              row.ID,
		Title:           row.Title,
		Description:     row.Description,
		ThumbnailURL:    row.ThumbnailURL.String,
		Modules:         []course.Module{},
		RequiredRole:    user.Role(row.RequiredRole),
		AccessCode:      row.AccessCode.String,
		IsNoteExclusive: row.IsNoteExclusive,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if err := row.Modules.Unmarshal(&crs.Modules); err != nil {
		return course.Course{}, errors.Wrapf(err, "decoding modules of course %q", row.ID)
	}
	return crs, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	row, err := repo.toRow(crs)
	if err != nil {
		return course.Course{}, err
	}
	q := `INSERT INTO course (` + courseColumns + `) VALUES (:id, :title, :description, :thumbnail_url,
		:modules, :required_role, :access_code, :is_note_exclusive, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+courseColumns+` FROM course ORDER BY position`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		crs, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+courseColumns+` FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return repo.fromRow(row)
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	row, err := repo.toRow(crs)
	if err != nil {
		return course.Course{}, err
	}
	q := `UPDATE course SET title = :title, description = :description, thumbnail_url = :thumbnail_url,
		modules = :modules, required_role = :required_role, access_code = :access_code,
		is_note_exclusive = :is_note_exclusive, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}
