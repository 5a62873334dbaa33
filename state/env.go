// Package state carries the program-wide context a CLI command needs
// between its urfave/cli Before/Action/After hooks.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/h0rv/epub-stream-sub001/config"
)

type envKey struct{}

// LocalEnv keeps everything a command invocation needs in one place:
// loaded configuration, the prepared logger, and uptime bookkeeping. It
// carries no render-specific fields (no book handle, no engine) because
// those are request-scoped to a single paginate call, not program-wide.
type LocalEnv struct {
	Cfg *config.EngineConfig
	Log *zap.Logger

	start         time.Time
	restoreStdLog func()
}

func newLocalEnv() *LocalEnv {
	return &LocalEnv{start: time.Now()}
}

// ContextWithEnv returns a child context carrying a fresh LocalEnv.
func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

// EnvFromContext retrieves the LocalEnv placed by ContextWithEnv. It panics
// if called on a context that was never wrapped, since that is always a
// programming error in this command's own Before/Action chain.
func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	panic("localenv not found in context")
}

// Uptime reports how long this LocalEnv has existed.
func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// RedirectStdLog routes the standard library's log package through Log for
// the lifetime of the command, restored by RestoreStdLog.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

// RestoreStdLog flushes Log and undoes RedirectStdLog.
func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
