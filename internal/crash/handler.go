package crash

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"tg-moderation/internal/logger"
)

// RecoverWithStack recovers a panic in a handler or background task and logs
// the stack. The process keeps serving other events.
func RecoverWithStack(moduleName string) {
	if r := recover(); r != nil {
		stack := debug.Stack()

		logger.Errorf("PANIC in %s: %v", moduleName, r)
		logger.Errorf("Stack trace:\n%s", string(stack))

		// stderr too, container logs may not see the rotating file
		fmt.Fprintf(os.Stderr, "[PANIC] %s - %s: %v\n", time.Now().Format("2006-01-02 15:04:05"), moduleName, r)
	}
}

// RecoverWithStackAndExit is deferred in main: it logs and exits non-zero so
// the supervisor restarts the bot.
func RecoverWithStackAndExit(moduleName string) {
	if r := recover(); r != nil {
		stack := debug.Stack()

		logger.Errorf("FATAL PANIC in %s: %v", moduleName, r)
		logger.Errorf("Stack trace:\n%s", string(stack))

		fmt.Fprintf(os.Stderr, "[FATAL PANIC] %s - %s: %v\n", time.Now().Format("2006-01-02 15:04:05"), moduleName, r)
		fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", string(stack))

		logRuntimeInfo()
		logger.Sync()

		os.Exit(1)
	}
}

// SafeGoroutine starts fn in a goroutine with panic recovery.
func SafeGoroutine(name string, fn func()) {
	go func() {
		defer RecoverWithStack(fmt.Sprintf("goroutine-%s", name))
		fn()
	}()
}

// Safe wraps fn so that it recovers its own panics, for callbacks run by
// timers or libraries that start their own goroutines.
func Safe(name string, fn func()) func() {
	return func() {
		defer RecoverWithStack(name)
		fn()
	}
}

func logRuntimeInfo() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	logger.Errorf("Runtime: go=%s cpus=%d goroutines=%d heap_alloc=%dKB heap_inuse=%dKB num_gc=%d",
		runtime.Version(),
		runtime.NumCPU(),
		runtime.NumGoroutine(),
		m.HeapAlloc/1024,
		m.HeapInuse/1024,
		m.NumGC,
	)
}

// SetupCrashHandler turns memory faults into recoverable panics.
func SetupCrashHandler() {
	debug.SetPanicOnFault(true)
}
