package moderation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"tg-moderation/internal/crash"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Timer is a scheduled callback.
type Timer interface {
	// Stop prevents the callback from running and reports whether it did.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the wall clock backed by the runtime timers.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewToken returns a fresh cancellation token.
func NewToken() string {
	return uuid.NewString()
}

type task struct {
	mu      sync.Mutex
	token   string
	timer   Timer
	stopped bool
}

func (t *task) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// TaskRegistry tracks at most one scheduled task per key. Scheduling a key
// again stops the previous task. A task removes itself by calling Finish with
// its token, so a superseded task cannot remove its successor.
type TaskRegistry[K comparable] struct {
	name      string
	scheduler Scheduler
	tasks     *xsync.MapOf[K, *task]
}

// NewTaskRegistry creates a registry whose callbacks run through scheduler.
func NewTaskRegistry[K comparable](name string, scheduler Scheduler) *TaskRegistry[K] {
	return &TaskRegistry[K]{
		name:      name,
		scheduler: scheduler,
		tasks:     xsync.NewMapOf[K, *task](),
	}
}

// Schedule arms fn to run after d under token, replacing any task for key.
func (r *TaskRegistry[K]) Schedule(key K, token string, d time.Duration, fn func()) {
	t := &task{token: token}
	if old, loaded := r.tasks.LoadAndStore(key, t); loaded {
		old.stop()
	}

	if d < 0 {
		d = 0
	}
	timer := r.scheduler.AfterFunc(d, crash.Safe(r.name, fn))

	t.mu.Lock()
	if t.stopped {
		timer.Stop()
	} else {
		t.timer = timer
	}
	t.mu.Unlock()
}

// Cancel stops the task for key and reports whether one was registered.
func (r *TaskRegistry[K]) Cancel(key K) bool {
	t, ok := r.tasks.LoadAndDelete(key)
	if ok {
		t.stop()
	}
	return ok
}

// Finish removes the entry for key if it still belongs to token. It reports
// whether the token was current.
func (r *TaskRegistry[K]) Finish(key K, token string) bool {
	current := false
	r.tasks.Compute(key, func(old *task, loaded bool) (*task, bool) {
		if !loaded {
			return old, true
		}
		if old.token != token {
			return old, false
		}
		current = true
		return old, true
	})
	return current
}

// Token returns the token of the task scheduled for key.
func (r *TaskRegistry[K]) Token(key K) (string, bool) {
	t, ok := r.tasks.Load(key)
	if !ok {
		return "", false
	}
	return t.token, true
}

// Len returns the number of scheduled tasks.
func (r *TaskRegistry[K]) Len() int {
	return r.tasks.Size()
}

// StopAll cancels every task. Persisted state is left for the next start.
func (r *TaskRegistry[K]) StopAll() {
	r.tasks.Range(func(key K, t *task) bool {
		r.tasks.Delete(key)
		t.stop()
		return true
	})
}
