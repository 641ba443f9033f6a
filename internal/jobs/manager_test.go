package jobs

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneclicksub/creatorctl/internal/config"
	"github.com/oneclicksub/creatorctl/internal/platform"
)

type fakeJobContext struct {
	jm *JobManager
}

func (c *fakeJobContext) DB() *sql.DB              { return nil }
func (c *fakeJobContext) Config() *config.Config   { return &config.Config{} }
func (c *fakeJobContext) Client() *platform.Client { return nil }
func (c *fakeJobContext) JobManager() *JobManager  { return c.jm }

func statusOf(jm *JobManager, name string) *JobStatus {
	for _, s := range jm.GetStatus() {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func TestRunJobSuccess(t *testing.T) {
	jm := NewManager()
	ctx := &fakeJobContext{jm: jm}

	ran := make(chan struct{})
	jm.Register("test-job", func(ctx JobContext) {
		close(ran)
	})

	require.NoError(t, jm.RunJob("test-job", ctx))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}

	assert.Eventually(t, func() bool {
		return statusOf(jm, "test-job").Status == "success"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunJobUnknown(t *testing.T) {
	jm := NewManager()
	err := jm.RunJob("no-such-job", &fakeJobContext{jm: jm})
	assert.Error(t, err)
}

func TestRunJobSingleFlight(t *testing.T) {
	jm := NewManager()
	ctx := &fakeJobContext{jm: jm}

	release := make(chan struct{})
	jm.Register("slow-job", func(ctx JobContext) {
		<-release
	})

	require.NoError(t, jm.RunJob("slow-job", ctx))

	// While the first run holds the manager, a second submission is
	// rejected rather than queued.
	err := jm.RunJob("slow-job", ctx)
	assert.Error(t, err)

	close(release)
	assert.Eventually(t, func() bool {
		return statusOf(jm, "slow-job").Status == "success"
	}, 2*time.Second, 10*time.Millisecond)

	// Once the first run finishes the manager accepts work again.
	release = make(chan struct{})
	close(release)
	assert.NoError(t, jm.RunJob("slow-job", ctx))
}

func TestRunJobRecoversPanic(t *testing.T) {
	jm := NewManager()
	ctx := &fakeJobContext{jm: jm}

	jm.Register("panicky", func(ctx JobContext) {
		panic("boom")
	})

	require.NoError(t, jm.RunJob("panicky", ctx))

	assert.Eventually(t, func() bool {
		s := statusOf(jm, "panicky")
		return s.Status == "failed" && s.Message != ""
	}, 2*time.Second, 10*time.Millisecond)

	// The panic must not leave the manager wedged.
	assert.Eventually(t, func() bool {
		return jm.RunJob("panicky", ctx) == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFailMarksStatus(t *testing.T) {
	jm := NewManager()
	jm.Register("failing", func(ctx JobContext) {})

	jm.Fail("failing", "upstream unreachable")

	s := statusOf(jm, "failing")
	require.NotNil(t, s)
	assert.Equal(t, "failed", s.Status)
	assert.Equal(t, "upstream unreachable", s.Message)
}
