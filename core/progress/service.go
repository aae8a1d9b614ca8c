package progress

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/course"
)

var (
	// errors
	ErrNotFound          = errors.New("progress not found")
	ErrNoAccessCode      = errors.New("this course does not require an access code")
	ErrInvalidAccessCode = errors.New("the access code is incorrect")
	ErrTooManyAttempts   = errors.New("too many unlock attempts, try again later")
)

type (
	Repository interface {
		GetProgress(ctx context.Context, userID, courseID string) (CourseProgress, error)
		QueryUserProgress(ctx context.Context, userID string) (UserProgress, error)
		// SaveProgress creates or fully replaces the user's progress for the course.
		SaveProgress(ctx context.Context, prog CourseProgress) (CourseProgress, error)
	}

	// AttemptLimiter throttles failed unlock attempts per key.
	AttemptLimiter interface {
		// Allow reports whether another attempt may be made for the key.
		Allow(ctx context.Context, key string) (bool, error)
		// Fail records a failed attempt for the key.
		Fail(ctx context.Context, key string) error
		// Reset forgets the failed attempts of the key.
		Reset(ctx context.Context, key string) error
	}

	Service struct {
		repo    Repository
		limiter AttemptLimiter
		logger  core.Logger
	}
)

// NewService returns a progress Service. A nil limiter disables unlock throttling.
func NewService(repo Repository, limiter AttemptLimiter, logger core.Logger) *Service {
	return &Service{repo: repo, limiter: limiter, logger: logger}
}

// Find returns the user's progress for the course, or nil if none was recorded yet.
func (svc *Service) Find(ctx context.Context, userID, courseID string) (*CourseProgress, error) {
	prog, err := svc.repo.GetProgress(ctx, userID, courseID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "getting progress")
	}
	return &prog, nil
}

func (svc *Service) QueryUser(ctx context.Context, userID string) (UserProgress, error) {
	return svc.repo.QueryUserProgress(ctx, userID)
}

func unlockKey(userID, courseID string) string {
	return "unlock:" + courseID + ":" + userID
}

// Unlock checks `code` (exact, case-sensitive) against the course access code.
// On match the user's progress for the course is reset: nothing completed, current = first module, unlocked.
func (svc *Service) Unlock(ctx context.Context, userID string, crs course.Course, code string) (CourseProgress, error) {
	if !crs.IsCodeGated() {
		return CourseProgress{}, core.NewValidationError(ErrNoAccessCode)
	}

	key := unlockKey(userID, crs.ID)
	if svc.limiter != nil {
		allowed, err := svc.limiter.Allow(ctx, key)
		if err != nil {
			// fail open: a limiter outage must not lock everyone out
			svc.logger.Error(fmt.Sprintf("checking unlock attempts: %v", err), errors.Wrap(err, key))
		} else if !allowed {
			return CourseProgress{}, ErrTooManyAttempts
		}
	}

	if code != crs.AccessCode {
		if svc.limiter != nil {
			if err := svc.limiter.Fail(ctx, key); err != nil {
				svc.logger.Error(fmt.Sprintf("recording unlock attempt: %v", err), errors.Wrap(err, key))
			}
		}
		return CourseProgress{}, core.NewValidationError(
			ErrInvalidAccessCode,
			core.FieldError{Field: "code", Error: ErrInvalidAccessCode.Error()},
		)
	}

	var current string
	if first, ok := crs.FirstModule(); ok {
		current = first.ID
	}
	prog := newCourseProgress(userID, crs.ID, current)
	prog.IsUnlocked = true
	prog.UpdatedAt = core.Now()

	prog, err := svc.repo.SaveProgress(ctx, prog)
	if err != nil {
		return CourseProgress{}, errors.Wrap(err, "saving progress")
	}
	if svc.limiter != nil {
		if err = svc.limiter.Reset(ctx, key); err != nil {
			svc.logger.Warn(fmt.Sprintf("resetting unlock attempts: %v", err), errors.Wrap(err, key))
		}
	}
	return prog, nil
}

// orDefault returns the stored progress or a fresh record pointing at `current`.
func (svc *Service) orDefault(ctx context.Context, userID, courseID, current string) (CourseProgress, error) {
	prog, err := svc.repo.GetProgress(ctx, userID, courseID)
	switch errors.Cause(err) {
	case nil:
		if prog.Memos == nil {
			prog.Memos = map[string]string{}
		}
		if prog.CompletedModuleIDs == nil {
			prog.CompletedModuleIDs = []string{}
		}
		return prog, nil
	case ErrNotFound:
		return newCourseProgress(userID, courseID, current), nil
	default:
		return CourseProgress{}, errors.Wrap(err, "getting progress")
	}
}

// CompleteModule adds the module to the completed set and, in the same write,
// moves the current pointer to the module with Order+1 (left unchanged if there is none).
func (svc *Service) CompleteModule(ctx context.Context, userID string, crs course.Course, mod course.Module) (CourseProgress, error) {
	prog, err := svc.orDefault(ctx, userID, crs.ID, mod.ID)
	if err != nil {
		return CourseProgress{}, err
	}
	prog.MarkCompleted(mod.ID)
	if next, ok := crs.NextModule(mod); ok {
		prog.CurrentModuleID = next.ID
	}
	prog.UpdatedAt = core.Now()

	if prog, err = svc.repo.SaveProgress(ctx, prog); err != nil {
		return CourseProgress{}, errors.Wrap(err, "saving progress")
	}
	return prog, nil
}

// SaveMemo stores the user's note for a module of the course.
// Progress is created on the fly (pointing at the first module) if none exists.
func (svc *Service) SaveMemo(ctx context.Context, userID string, crs course.Course, moduleID, text string) (CourseProgress, error) {
	if _, ok := crs.Module(moduleID); !ok {
		return CourseProgress{}, course.ErrModuleNotFound
	}

	var current string
	if first, ok := crs.FirstModule(); ok {
		current = first.ID
	}
	prog, err := svc.orDefault(ctx, userID, crs.ID, current)
	if err != nil {
		return CourseProgress{}, err
	}
	prog.Memos[moduleID] = text
	prog.UpdatedAt = core.Now()

	if prog, err = svc.repo.SaveProgress(ctx, prog); err != nil {
		return CourseProgress{}, errors.Wrap(err, "saving progress")
	}
	return prog, nil
}
