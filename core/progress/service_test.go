package progress_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/progress"
	"github.com/trezcool/lumina/core/user"
	inmemdb "github.com/trezcool/lumina/storage/database/inmem"
	testutil "github.com/trezcool/lumina/tests"
)

var (
	openCourse  = testutil.NewCourse("c1", user.RoleStudent, "", "Intro", "Practice", "Wrap-up")
	gatedCourse = testutil.NewCourse("c2", user.RoleStudent, "zaitaku2024", "Intro", "Practice")
)

type limiterMock struct {
	mu       sync.Mutex
	max      int
	failures map[string]int
	err      error
}

func newLimiterMock(max int) *limiterMock {
	return &limiterMock{max: max, failures: make(map[string]int)}
}

func (l *limiterMock) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	return l.failures[key] < l.max, nil
}

func (l *limiterMock) Fail(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[key]++
	return l.err
}

func (l *limiterMock) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
	return l.err
}

func newService(limiter progress.AttemptLimiter) *progress.Service {
	return progress.NewService(inmemdb.NewProgressRepository(inmemdb.New()), limiter, testutil.NewLogger())
}

func TestService_Find(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	prog, err := svc.Find(ctx, "u1", openCourse.ID)
	assert.NoError(t, err)
	assert.Nil(t, prog)

	_, err = svc.CompleteModule(ctx, "u1", openCourse, openCourse.Modules[0])
	require.NoError(t, err)

	prog, err = svc.Find(ctx, "u1", openCourse.ID)
	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.Equal(t, []string{"c1-m1"}, prog.CompletedModuleIDs)
}

func TestService_Unlock(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		crs     course.Course
		code    string
		wantErr error
	}{
		{name: "correct code", crs: gatedCourse, code: "zaitaku2024"},
		{name: "wrong code", crs: gatedCourse, code: "nope", wantErr: progress.ErrInvalidAccessCode},
		{name: "case-sensitive", crs: gatedCourse, code: "ZAITAKU2024", wantErr: progress.ErrInvalidAccessCode},
		{name: "not trimmed", crs: gatedCourse, code: " zaitaku2024 ", wantErr: progress.ErrInvalidAccessCode},
		{name: "course without code", crs: openCourse, code: "anything", wantErr: progress.ErrNoAccessCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(nil)
			prog, err := svc.Unlock(ctx, "u1", tt.crs, tt.code)
			if tt.wantErr != nil {
				var verr *core.ValidationError
				if assert.True(t, errors.As(err, &verr), "Unlock() error = %v, want a ValidationError", err) {
					assert.Equal(t, tt.wantErr, verr.Err)
				}
				stored, _ := svc.Find(ctx, "u1", tt.crs.ID)
				assert.Nil(t, stored)
				return
			}
			require.NoError(t, err)
			assert.True(t, prog.IsUnlocked)
			assert.Empty(t, prog.CompletedModuleIDs)
			assert.Equal(t, "c2-m1", prog.CurrentModuleID)
		})
	}
}

func TestService_Unlock_resetsProgress(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	_, err := svc.Unlock(ctx, "u1", gatedCourse, "zaitaku2024")
	require.NoError(t, err)
	_, err = svc.CompleteModule(ctx, "u1", gatedCourse, gatedCourse.Modules[0])
	require.NoError(t, err)
	_, err = svc.SaveMemo(ctx, "u1", gatedCourse, "c2-m1", "note")
	require.NoError(t, err)

	prog, err := svc.Unlock(ctx, "u1", gatedCourse, "zaitaku2024")
	require.NoError(t, err)
	assert.Empty(t, prog.CompletedModuleIDs)
	assert.Empty(t, prog.Memos)
	assert.Equal(t, "c2-m1", prog.CurrentModuleID)
}

func TestService_Unlock_throttled(t *testing.T) {
	ctx := context.Background()
	limiter := newLimiterMock(2)
	svc := newService(limiter)

	for i := 0; i < 2; i++ {
		_, err := svc.Unlock(ctx, "u1", gatedCourse, "bad")
		assert.True(t, core.IsValidationError(err))
	}
	_, err := svc.Unlock(ctx, "u1", gatedCourse, "zaitaku2024")
	assert.Equal(t, progress.ErrTooManyAttempts, err)

	// other users are not affected
	_, err = svc.Unlock(ctx, "u2", gatedCourse, "zaitaku2024")
	assert.NoError(t, err)
	assert.Len(t, limiter.failures, 1)
}

func TestService_Unlock_limiterOutage(t *testing.T) {
	limiter := newLimiterMock(1)
	limiter.err = errors.New("connection refused")
	svc := newService(limiter)

	prog, err := svc.Unlock(context.Background(), "u1", gatedCourse, "zaitaku2024")
	require.NoError(t, err)
	assert.True(t, prog.IsUnlocked)
}

func TestService_CompleteModule(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	mods := openCourse.Modules

	prog, err := svc.CompleteModule(ctx, "u1", openCourse, mods[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"c1-m1"}, prog.CompletedModuleIDs)
	assert.Equal(t, "c1-m2", prog.CurrentModuleID)

	// repeat is a no-op on the set
	prog, err = svc.CompleteModule(ctx, "u1", openCourse, mods[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"c1-m1"}, prog.CompletedModuleIDs)

	prog, err = svc.CompleteModule(ctx, "u1", openCourse, mods[1])
	require.NoError(t, err)
	prog, err = svc.CompleteModule(ctx, "u1", openCourse, mods[2])
	require.NoError(t, err)
	assert.Equal(t, []string{"c1-m1", "c1-m2", "c1-m3"}, prog.CompletedModuleIDs)
	// last module: pointer unchanged
	assert.Equal(t, "c1-m3", prog.CurrentModuleID)
}

func TestService_CompleteModule_gapInOrders(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	crs := openCourse.Clone()
	crs.Modules = []course.Module{crs.Modules[0], crs.Modules[2]} // orders 1 and 3

	prog, err := svc.CompleteModule(ctx, "u1", crs, crs.Modules[0])
	require.NoError(t, err)
	assert.Equal(t, "c1-m1", prog.CurrentModuleID)
}

func TestService_SaveMemo(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	prog, err := svc.SaveMemo(ctx, "u1", openCourse, "c1-m3", "my note")
	require.NoError(t, err)
	assert.Equal(t, "my note", prog.Memo("c1-m3"))
	assert.Equal(t, "c1-m1", prog.CurrentModuleID)
	assert.False(t, prog.IsUnlocked)
	assert.Empty(t, prog.CompletedModuleIDs)

	prog, err = svc.SaveMemo(ctx, "u1", openCourse, "c1-m3", "")
	require.NoError(t, err)
	assert.Equal(t, "", prog.Memo("c1-m3"))

	_, err = svc.SaveMemo(ctx, "u1", openCourse, "ghost", "x")
	assert.Equal(t, course.ErrModuleNotFound, err)
}

func TestService_QueryUser(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	_, err := svc.CompleteModule(ctx, "u1", openCourse, openCourse.Modules[0])
	require.NoError(t, err)
	_, err = svc.Unlock(ctx, "u1", gatedCourse, "zaitaku2024")
	require.NoError(t, err)
	_, err = svc.Unlock(ctx, "u2", gatedCourse, "zaitaku2024")
	require.NoError(t, err)

	all, err := svc.QueryUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.True(t, all[gatedCourse.ID].IsUnlocked)
	assert.Equal(t, "c1-m2", all[openCourse.ID].CurrentModuleID)
}
