package handler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"tg-moderation/internal/crash"
	"tg-moderation/internal/logger"
)

const (
	maxConcurrentHandlers = 100
	handlerTimeout        = 60 * time.Second
	statsInterval         = 10 * time.Minute
)

// processing statistics
var (
	totalMessagesProcessed int64
	totalCommands          int64
	totalChatMemberUpdates int64
	totalCallbackQueries   int64
	totalErrors            int64
	totalTimeouts          int64
	startTime              = time.Now()

	handlerSemaphore = make(chan struct{}, maxConcurrentHandlers)
	activeHandlers   int64
	inflight         sync.WaitGroup
)

func incrementCounter(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// track wraps an update handler: it bounds concurrency, applies a timeout,
// counts the update and recovers panics. Errors are logged here and not
// passed back to telego.
func track(name string, counter *int64, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		incrementCounter(counter)

		select {
		case handlerSemaphore <- struct{}{}:
		case <-ctx.Done():
			incrementCounter(&totalTimeouts)
			return nil
		}
		inflight.Add(1)
		atomic.AddInt64(&activeHandlers, 1)
		defer func() {
			atomic.AddInt64(&activeHandlers, -1)
			inflight.Done()
			<-handlerSemaphore
		}()
		defer crash.RecoverWithStack("handler-" + name)

		ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			incrementCounter(&totalErrors)
			if ctx.Err() == context.DeadlineExceeded {
				incrementCounter(&totalTimeouts)
			}
			logger.Errorf("Error in %s handler: %v", name, err)
		}
		return nil
	}
}

// GetActiveHandlersCount returns the number of updates being handled.
func GetActiveHandlersCount() int {
	return int(atomic.LoadInt64(&activeHandlers))
}

// WaitForHandlers waits until in-flight handlers finish or the timeout
// passes. It reports whether all of them finished.
func WaitForHandlers(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		logger.Warningf("Timed out waiting for %d active handlers", GetActiveHandlersCount())
		return false
	}
}

// ProcessingStats is a snapshot of the handler counters.
type ProcessingStats struct {
	Uptime            time.Duration
	Messages          int64
	Commands          int64
	ChatMemberUpdates int64
	CallbackQueries   int64
	Errors            int64
	Timeouts          int64
	ActiveHandlers    int
	Goroutines        int
	HeapAllocMB       uint64
}

// GetProcessingStats returns the current counters.
func GetProcessingStats() ProcessingStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return ProcessingStats{
		Uptime:            time.Since(startTime),
		Messages:          atomic.LoadInt64(&totalMessagesProcessed),
		Commands:          atomic.LoadInt64(&totalCommands),
		ChatMemberUpdates: atomic.LoadInt64(&totalChatMemberUpdates),
		CallbackQueries:   atomic.LoadInt64(&totalCallbackQueries),
		Errors:            atomic.LoadInt64(&totalErrors),
		Timeouts:          atomic.LoadInt64(&totalTimeouts),
		ActiveHandlers:    GetActiveHandlersCount(),
		Goroutines:        runtime.NumGoroutine(),
		HeapAllocMB:       bToMb(m.HeapAlloc),
	}
}

// LogProcessingStats logs the counters periodically until ctx is done.
func LogProcessingStats(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		stats := GetProcessingStats()
		logger.Infof("Processing stats: messages=%d commands=%d member_updates=%d callbacks=%d errors=%d timeouts=%d active=%d goroutines=%d heap=%dMB",
			stats.Messages, stats.Commands, stats.ChatMemberUpdates, stats.CallbackQueries,
			stats.Errors, stats.Timeouts, stats.ActiveHandlers, stats.Goroutines, stats.HeapAllocMB)

		if stats.ActiveHandlers > maxConcurrentHandlers*8/10 {
			logger.Warningf("High number of active handlers: %d", stats.ActiveHandlers)
		}
		if stats.Messages > 0 && float64(stats.Errors)/float64(stats.Messages) > 0.1 {
			logger.Warningf("High error rate: %.2f%% (%d errors out of %d messages)",
				float64(stats.Errors)/float64(stats.Messages)*100, stats.Errors, stats.Messages)
		}
	}
}

// StartStatusMonitoring starts the periodic stats logger.
func StartStatusMonitoring(ctx context.Context) {
	crash.SafeGoroutine("status-monitor", func() { LogProcessingStats(ctx) })
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

// GetDetailedStatus renders the counters for the /diag command.
func GetDetailedStatus() string {
	s := GetProcessingStats()
	return fmt.Sprintf("Uptime: %s\nMessages: %d\nCommands: %d\nMember updates: %d\nCallbacks: %d\nErrors: %d\nTimeouts: %d\nActive handlers: %d/%d\nGoroutines: %d\nHeap: %d MB",
		s.Uptime.Truncate(time.Second),
		s.Messages,
		s.Commands,
		s.ChatMemberUpdates,
		s.CallbackQueries,
		s.Errors,
		s.Timeouts,
		s.ActiveHandlers,
		maxConcurrentHandlers,
		s.Goroutines,
		s.HeapAllocMB,
	)
}
