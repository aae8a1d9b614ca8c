package pgrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core/progress"
)

const progressColumns = `user_id, course_id, completed_module_ids, current_module_id, is_unlocked, memos, updated_at`

type progressRow struct {
	UserID             string         `db:"user_id"`
	CourseID           string         `db:"course_id"`
	CompletedModuleIDs pq.StringArray `db:"completed_module_ids"`
	CurrentModuleID    string         `db:"current_module_id"`
	IsUnlocked         bool           `db:"is_unlocked"`
	Memos              types.JSONText `db:"memos"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo progressRepository) toRow(prog progress.CourseProgress) (progressRow, error) {
	memos := prog.Memos
	if memos == nil {
		memos = map[string]string{}
	}
	raw, err := json.Marshal(memos)
	if err != nil {
		return progressRow{}, errors.Wrap(err, "encoding memos")
	}
	return progressRow{
		UserID:             prog.UserID,
		CourseID:           prog.CourseID,
		CompletedModuleIDs: append(pq.StringArray{}, prog.CompletedModuleIDs...),
		CurrentModuleID:    prog.CurrentModuleID,
		IsUnlocked:         prog.IsUnlocked,
		Memos:              raw,
		UpdatedAt:          prog.UpdatedAt.UTC(),
	}, nil
}

func (repo progressRepository) fromRow(row progressRow) (progress.CourseProgress, error) {
	prog := progress.CourseProgress{
		UserID:             row.UserID,
		CourseID:           row.CourseID,
		CompletedModuleIDs: append([]string{}, row.CompletedModuleIDs...),
		CurrentModuleID:    row.CurrentModuleID,
		IsUnlocked:         row.IsUnlocked,
		Memos:              map[string]string{},
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
	if err := row.Memos.Unmarshal(&prog.Memos); err != nil {
		return progress.CourseProgress{}, errors.Wrap(err, "decoding memos")
	}
	return prog, nil
}

func (repo progressRepository) GetProgress(ctx context.Context, userID, courseID string) (progress.CourseProgress, error) {
	var row progressRow
	q := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = $1 AND course_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, userID, courseID); err != nil {
		return progress.CourseProgress{}, trapNoRowsErr(err, progress.ErrNotFound, "getting progress")
	}
	return repo.fromRow(row)
}

func (repo progressRepository) QueryUserProgress(ctx context.Context, userID string) (progress.UserProgress, error) {
	var rows []progressRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+progressColumns+` FROM progress WHERE user_id = $1`, userID); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	res := make(progress.UserProgress, len(rows))
	for _, row := range rows {
		prog, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		res[prog.CourseID] = prog
	}
	return res, nil
}

// SaveProgress upserts the whole record in a single statement.
func (repo progressRepository) SaveProgress(ctx context.Context, prog progress.CourseProgress) (progress.CourseProgress, error) {
	row, err := repo.toRow(prog)
	if err != nil {
		return progress.CourseProgress{}, err
	}
	q := `INSERT INTO progress (` + progressColumns + `)
		VALUES (:user_id, :course_id, :completed_module_ids, :current_module_id, :is_unlocked, :memos, :updated_at)
		ON CONFLICT (user_id, course_id) DO UPDATE SET
			completed_module_ids = EXCLUDED.completed_module_ids,
			current_module_id = EXCLUDED.current_module_id,
			is_unlocked = EXCLUDED.is_unlocked,
			memos = EXCLUDED.memos,
			updated_at = EXCLUDED.updated_at`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return progress.CourseProgress{}, errors.Wrap(err, "saving progress")
	}
	return prog, nil
}
