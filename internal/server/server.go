// Package server exposes the local operator API: liveness, account
// overview, and manual triggers for rotation and conversation sync.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/yicone/chatgpt-web-share/internal/proxy"
	"github.com/yicone/chatgpt-web-share/internal/rotation"
	"github.com/yicone/chatgpt-web-share/internal/stats"
)

// Deps carries everything the operator API reads or triggers.
type Deps struct {
	Runner    *rotation.Runner
	SyncNow   func(ctx context.Context)
	Stats     *stats.Store
	Handle    *proxy.Handle
	StartedAt time.Time

	// BaseCtx bounds background work triggered over the API to the daemon
	// lifetime, so a manual tick is cancelled on shutdown like a scheduled
	// one.
	BaseCtx context.Context
}

func (d Deps) baseContext() context.Context {
	if d.BaseCtx != nil {
		return d.BaseCtx
	}
	return context.Background()
}

// Router assembles the chi router for the operator API.
func Router(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestID)
	r.Use(CountRequests(deps.Stats))

	r.Get("/status", StatusHandler(deps))
	r.Get("/accounts", AccountsHandler(deps.Runner))
	r.Get("/stats", StatsHandler(deps.Stats))
	r.Post("/rotate", RotateHandler(deps))
	r.Post("/sync", SyncHandler(deps))

	return r
}
