package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/pricewatch-backend/api/responses"
	"github.com/angelmondragon/pricewatch-backend/internal/catalog"
	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

// UpdateService is the slice of the tracker the update handlers use.
type UpdateService interface {
	RunUpdate(ctx context.Context) (*tracker.RunSummary, error)
	Running() bool
	LastSummary() *tracker.RunSummary
}

// UpdateTrigger starts a price update run and waits for it to finish.
func UpdateTrigger(svc UpdateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		// Detached from the request so a dropped client does not abort
		// the run midway through the tracked list.
		summary, err := svc.RunUpdate(context.WithoutCancel(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

type updateStatusResponse struct {
	Running     bool                `json:"running"`
	LastSummary *tracker.RunSummary `json:"lastSummary,omitempty"`
	Events      []catalog.Event     `json:"events"`
}

// UpdateStatus reports whether a run is active, the last summary, and the
// recent resolution events.
func UpdateStatus(svc UpdateService, events *catalog.RingSink, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		resp := updateStatusResponse{
			Running:     svc.Running(),
			LastSummary: svc.LastSummary(),
			Events:      []catalog.Event{},
		}
		if events != nil {
			if recent := events.Events(); recent != nil {
				resp.Events = recent
			}
		}

		responses.WriteSuccess(w, resp)
	}
}
