package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/pricewatch-backend/api/responses"
	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	"github.com/angelmondragon/pricewatch-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

const envHeader = "X-Pricewatch-Env"

// StoreProbe is the slice of the store the readiness check exercises.
type StoreProbe interface {
	Load(ctx context.Context) ([]tracker.TrackedProduct, error)
}

// HealthLive reports that the process is up.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady reports readiness by loading the tracked list once.
func HealthReady(cfg *config.Config, logg *logger.Logger, probe StoreProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(envHeader, cfg.App.Env)

		if probe == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store unavailable"))
			return
		}
		if _, err := probe.Load(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store unavailable"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
