package ui

import (
	"context"
	"net/http"
	"time"

	"tableserve/internal"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewProfilerHandler mounts pprof and expvar under /debug
func NewProfilerHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/debug", middleware.Profiler())
	return r
}

// ServeProfiler runs the profiling side server until ctx is canceled
func ServeProfiler(ctx context.Context, addr string, timeout time.Duration, logger *internal.Logger) error {
	logger.Info("Performance profiling server starting on %s", addr)
	logger.Info("View profiles: go tool pprof -http=:8081 http://%s/debug/pprof/profile?seconds=30", addr)
	return serve(ctx, addr, NewProfilerHandler(), timeout)
}
