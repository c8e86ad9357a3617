package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRegistryReplacesTask(t *testing.T) {
	clock := newFakeClock()
	registry := NewTaskRegistry[int]("test", clock)

	var fired []string
	registry.Schedule(1, "a", time.Minute, func() { fired = append(fired, "a") })
	registry.Schedule(1, "b", 2*time.Minute, func() { fired = append(fired, "b") })
	assert.Equal(t, 1, registry.Len())

	token, ok := registry.Token(1)
	require.True(t, ok)
	assert.Equal(t, "b", token)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, []string{"b"}, fired)
}

func TestTaskRegistryFinishChecksToken(t *testing.T) {
	clock := newFakeClock()
	registry := NewTaskRegistry[int]("test", clock)

	registry.Schedule(1, "a", time.Minute, func() {})
	assert.False(t, registry.Finish(1, "stale"))
	assert.Equal(t, 1, registry.Len())
	assert.True(t, registry.Finish(1, "a"))
	assert.Equal(t, 0, registry.Len())
	assert.False(t, registry.Finish(1, "a"))
}

func TestTaskRegistryCancel(t *testing.T) {
	clock := newFakeClock()
	registry := NewTaskRegistry[int]("test", clock)

	fired := false
	registry.Schedule(1, "a", time.Minute, func() { fired = true })
	assert.True(t, registry.Cancel(1))
	assert.False(t, registry.Cancel(1))

	clock.Advance(time.Hour)
	assert.False(t, fired)
	assert.Equal(t, 0, clock.Active())
}

func TestTaskRegistryStopAll(t *testing.T) {
	clock := newFakeClock()
	registry := NewTaskRegistry[int]("test", clock)

	count := 0
	for i := 0; i < 5; i++ {
		registry.Schedule(i, NewToken(), time.Minute, func() { count++ })
	}
	registry.StopAll()
	clock.Advance(time.Hour)
	assert.Zero(t, count)
	assert.Zero(t, registry.Len())
}

func TestTaskRegistryRecoversPanics(t *testing.T) {
	clock := newFakeClock()
	registry := NewTaskRegistry[int]("test", clock)

	registry.Schedule(1, "a", time.Second, func() { panic("boom") })
	assert.NotPanics(t, func() { clock.Advance(time.Minute) })
}

func TestSystemClockRunsTimers(t *testing.T) {
	registry := NewTaskRegistry[int]("test", SystemClock{})
	done := make(chan struct{})
	registry.Schedule(1, "a", 10*time.Millisecond, func() {
		registry.Finish(1, "a")
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	assert.Zero(t, registry.Len())
}

func TestNewTokenIsUnique(t *testing.T) {
	assert.NotEqual(t, NewToken(), NewToken())
}
