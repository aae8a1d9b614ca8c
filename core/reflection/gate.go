package reflection

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/access"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/progress"
	"github.com/trezcool/lumina/core/user"
)

// RetryFeedback is shown when the submission could not be judged or recorded.
const RetryFeedback = "エラーが発生しました。もう一度お試しください。"

var (
	// errors
	ErrSubmissionInFlight = errors.New("a reflection for this course is already being checked")
	ErrModuleCompleted    = errors.New("this module is already completed")
	ErrModuleLocked       = errors.New("this module is locked")
	ErrCourseLocked       = errors.New("this course is not available")
)

// State of a module-viewing session.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePassed   // terminal
	StateRejected // behaves as idle: resubmission is allowed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSubmitting:
		return "SUBMITTING"
	case StatePassed:
		return "PASSED"
	case StateRejected:
		return "REJECTED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Verdict struct {
	Passed   bool   `json:"passed"`
	Feedback string `json:"feedback"`
}

func retryVerdict() Verdict {
	return Verdict{Passed: false, Feedback: RetryFeedback}
}

type (
	// Judge scores a free-text reflection against a module.
	Judge interface {
		Evaluate(ctx context.Context, title, description, text string) (Verdict, error)
	}

	// ProgressStore is the part of the progress service the gate writes through.
	ProgressStore interface {
		Find(ctx context.Context, userID, courseID string) (*progress.CourseProgress, error)
		CompleteModule(ctx context.Context, userID string, crs course.Course, mod course.Module) (progress.CourseProgress, error)
	}

	sessionKey struct {
		userID   string
		courseID string
		moduleID string
	}

	flightKey struct {
		userID   string
		courseID string
	}

	// Gate turns a passing judged reflection into module completion.
	Gate struct {
		judge  Judge
		store  ProgressStore
		logger core.Logger

		mu       sync.Mutex
		inFlight map[flightKey]struct{}
		states   map[sessionKey]State
	}
)

func NewGate(judge Judge, store ProgressStore, logger core.Logger) *Gate {
	return &Gate{
		judge:    judge,
		store:    store,
		logger:   logger,
		inFlight: make(map[flightKey]struct{}),
		states:   make(map[sessionKey]State),
	}
}

// State returns the session state of the user for the module.
func (g *Gate) State(userID, courseID, moduleID string) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.states[sessionKey{userID, courseID, moduleID}]
}

func (g *Gate) begin(fk flightKey, sk sessionKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[fk]; busy {
		return ErrSubmissionInFlight
	}
	g.inFlight[fk] = struct{}{}
	g.states[sk] = StateSubmitting
	return nil
}

func (g *Gate) end(fk flightKey, sk sessionKey, state State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, fk)
	g.states[sk] = state
}

// Submit has the reflection judged and, if it passes, completes the module and
// advances the current pointer in a single progress write.
// Judge or persistence failures never surface as errors: they yield a retry verdict and leave progress untouched.
// Errors are only returned for rejected calls (in-flight submission, completed or locked module).
func (g *Gate) Submit(ctx context.Context, usr user.User, crs course.Course, mod course.Module, text string) (Verdict, error) {
	fk := flightKey{usr.ID, crs.ID}
	sk := sessionKey{usr.ID, crs.ID, mod.ID}
	if err := g.begin(fk, sk); err != nil {
		return Verdict{}, err
	}
	state := StateIdle
	defer func() { g.end(fk, sk, state) }()

	prog, err := g.store.Find(ctx, usr.ID, crs.ID)
	if err != nil {
		g.logger.Error(fmt.Sprintf("reflection: loading progress: %v", err), errors.Wrap(err, "finding progress"), usr)
		return retryVerdict(), nil
	}

	if !access.CanAccessCourse(&usr, crs) || !access.IsCourseUnlocked(&usr, crs, prog) {
		return Verdict{}, ErrCourseLocked
	}
	if access.IsModuleCompleted(prog, mod) {
		state = StatePassed
		return Verdict{}, ErrModuleCompleted
	}
	if access.IsModuleLocked(prog, mod) {
		return Verdict{}, ErrModuleLocked
	}

	verdict, err := g.judge.Evaluate(ctx, mod.Title, mod.Description, text)
	if err != nil {
		g.logger.Error(fmt.Sprintf("reflection: judge failed: %v", err), errors.Wrap(err, "evaluating reflection"), usr)
		return retryVerdict(), nil
	}
	if !verdict.Passed {
		state = StateRejected
		return verdict, nil
	}

	// once started, the completion write is not cancelled with the request
	if _, err = g.store.CompleteModule(context.WithoutCancel(ctx), usr.ID, crs, mod); err != nil {
		g.logger.Error(fmt.Sprintf("reflection: saving progress: %v", err), errors.Wrap(err, "completing module"), usr)
		return retryVerdict(), nil
	}
	state = StatePassed
	return verdict, nil
}
