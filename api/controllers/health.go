package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/rigbuilderhq/rigbuilder-backend/api/responses"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/config"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/logger"
)

// Pinger is implemented by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RigBuilder-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both backing stores answer a ping.
func HealthReady(cfg *config.Config, database, cache Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RigBuilder-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"db": "ok", "redis": "ok"}
		var failed bool
		if database != nil {
			if err := database.Ping(ctx); err != nil {
				checks["db"] = err.Error()
				failed = true
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				failed = true
			}
		}

		if failed {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "not ready").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
