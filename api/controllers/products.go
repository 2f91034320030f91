package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pricewatch-backend/api/responses"
	"github.com/angelmondragon/pricewatch-backend/api/validators"
	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

// ProductService is the slice of the tracker the product handlers use.
type ProductService interface {
	List(ctx context.Context) ([]tracker.TrackedProduct, error)
	Get(ctx context.Context, code string) (*tracker.TrackedProduct, error)
	History(ctx context.Context, code string) ([]tracker.PricePoint, error)
	Register(ctx context.Context, code string) (*tracker.TrackedProduct, error)
	Remove(ctx context.Context, code string) error
	Import(ctx context.Context, codes []string) (*tracker.ImportResult, error)
}

// ProductList returns every tracked product.
func ProductList(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		products, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if products == nil {
			products = []tracker.TrackedProduct{}
		}

		responses.WriteSuccess(w, products)
	}
}

// ProductGet returns one tracked product by code.
func ProductGet(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		product, err := svc.Get(ctx, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ProductRegister adds one product code to the tracked list.
func ProductRegister(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		var payload registerProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.Register(ctx, payload.Code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductRemove drops one product code from the tracked list.
func ProductRemove(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if err := svc.Remove(ctx, code); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}

// ProductImport registers a batch of codes in one call.
func ProductImport(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		var payload importProductsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Import(ctx, payload.Codes)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ProductHistory returns the recorded price points for one product. An
// optional limit query parameter keeps only the most recent points.
func ProductHistory(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 1000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		history, err := svc.History(ctx, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if limit > 0 && len(history) > limit {
			history = history[len(history)-limit:]
		}
		if history == nil {
			history = []tracker.PricePoint{}
		}

		responses.WriteSuccess(w, map[string]any{
			"code":    code,
			"history": history,
		})
	}
}

type registerProductRequest struct {
	Code string `json:"code" validate:"required"`
}

type importProductsRequest struct {
	Codes []string `json:"codes" validate:"required,min=1"`
}
