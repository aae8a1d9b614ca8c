package dig_container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/lumina/apps/api/echo"
	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/assistant"
	"github.com/trezcool/lumina/core/progress"
	"github.com/trezcool/lumina/core/reflection"
	"github.com/trezcool/lumina/services/judge"
	"github.com/trezcool/lumina/services/ratelimit"
	"github.com/trezcool/lumina/services/scheduler"
)

func TestNew_memoryStorage(t *testing.T) {
	c := New(core.NewTestConfig)

	err := c.Invoke(func(
		server *echoapi.Server,
		sched *scheduler.Scheduler,
		limiter progress.AttemptLimiter,
		jdg reflection.Judge,
		asst *assistant.Assistant,
	) {
		assert.NotNil(t, server)
		assert.NotNil(t, sched)
		assert.NotNil(t, asst)
		assert.IsType(t, &ratelimit.MemoryLimiter{}, limiter, "no redis configured")
		assert.IsType(t, &judge.Rules{}, jdg, "no gemini key configured")
	})
	require.NoError(t, err)
}
