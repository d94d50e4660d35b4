package workctl

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	globalMutex  sync.Mutex
	globalLogger = zerolog.Nop()
	// live non-daemon workers
	globalWorkers = make(map[*loop]struct{})
)

// Sets the logger used by workers created afterwards without WithLogger.
func SetLogger(l zerolog.Logger) {
	globalMutex.Lock()
	globalLogger = l
	globalMutex.Unlock()
}

func defaultLogger() zerolog.Logger {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	return globalLogger
}

func register(l *loop) {
	globalMutex.Lock()
	globalWorkers[l] = struct{}{}
	globalMutex.Unlock()
}

func unregister(l *loop) {
	globalMutex.Lock()
	delete(globalWorkers, l)
	globalMutex.Unlock()
}

func liveWorkers() []*loop {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	workers := make([]*loop, 0, len(globalWorkers))
	for l := range globalWorkers {
		workers = append(workers, l)
	}
	return workers
}

// Blocks until every running non-daemon worker has exited, or the context is
// cancelled. Errors that terminated those workers are joined into the result.
func Wait(ctx context.Context) error {
	var errs []error
	for _, l := range liveWorkers() {
		if err := l.Join(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stops every running non-daemon worker, then waits for them as Wait does.
// In-flight work units run to completion.
func Shutdown(ctx context.Context) error {
	for _, l := range liveWorkers() {
		_ = l.Stop()
	}
	return Wait(ctx)
}
