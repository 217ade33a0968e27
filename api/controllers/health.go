package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/shuttle-dispatch/api/responses"
	"github.com/angelmondragon/shuttle-dispatch/pkg/config"
	"github.com/angelmondragon/shuttle-dispatch/pkg/db"
	pkgerrors "github.com/angelmondragon/shuttle-dispatch/pkg/errors"
	"github.com/angelmondragon/shuttle-dispatch/pkg/logger"
)

const readinessTimeout = 2 * time.Second

const envHeader = "X-Shuttle-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only while the database answers pings.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not configured"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := dbP.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database ping failed"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
