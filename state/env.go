// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chunkscan/config"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// ScanConfig returns copy of scan configuration, so command line overrides
// do not leak into configuration dump stored in debug report.
func (e *LocalEnv) ScanConfig() config.ScanConfig {
	if e.Cfg == nil {
		return config.ScanConfig{}
	}
	cfg := e.Cfg.Scan
	cfg.Patterns = append([]string(nil), e.Cfg.Scan.Patterns...)
	return cfg
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
