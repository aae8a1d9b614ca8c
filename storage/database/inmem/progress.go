package inmemdb

import (
	"context"

	"github.com/trezcool/lumina/core/progress"
)

type progressRepository struct {
	db *progressTable
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db.progress}
}

func (repo *progressRepository) GetProgress(_ context.Context, userID, courseID string) (progress.CourseProgress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	prog, ok := repo.db.table[progressKey{userID, courseID}]
	if !ok {
		return progress.CourseProgress{}, progress.ErrNotFound
	}
	return prog.Clone(), nil
}

func (repo *progressRepository) QueryUserProgress(_ context.Context, userID string) (progress.UserProgress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make(progress.UserProgress)
	for key, prog := range repo.db.table {
		if key.userID == userID {
			res[key.courseID] = prog.Clone()
		}
	}
	return res, nil
}

func (repo *progressRepository) SaveProgress(_ context.Context, prog progress.CourseProgress) (progress.CourseProgress, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[progressKey{prog.UserID, prog.CourseID}] = prog.Clone()
	return prog, nil
}
