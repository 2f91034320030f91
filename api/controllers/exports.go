package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/pricewatch-backend/api/responses"
	"github.com/angelmondragon/pricewatch-backend/internal/catalog"
	"github.com/angelmondragon/pricewatch-backend/internal/report"
	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

// ExportSource lists the tracked products an export covers.
type ExportSource interface {
	List(ctx context.Context) ([]tracker.TrackedProduct, error)
}

// OfferResolver resolves tracked codes against the catalog for the offers
// export.
type OfferResolver interface {
	Resolve(ctx context.Context, codes []string) ([]catalog.Match, error)
}

// ExportTracked streams the tracked list as a spreadsheet.
func ExportTracked(svc ExportSource, logg *logger.Logger) http.HandlerFunc {
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

		workbook, err := report.Tracked(products)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filename := fmt.Sprintf("tracked-products-%s.xlsx", time.Now().Format("20060102-1504"))
		responses.WriteWorkbook(w, filename, workbook)
	}
}

// ExportOffers resolves every tracked code and streams the offer details as
// a spreadsheet. Resolution runs on the request context, so the caller can
// cancel a slow export.
func ExportOffers(svc ExportSource, resolver OfferResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || resolver == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		products, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		codes := make([]string, 0, len(products))
		for _, p := range products {
			codes = append(codes, p.Code)
		}

		matches, err := resolver.Resolve(ctx, codes)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		workbook, err := report.Offers(matches)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filename := fmt.Sprintf("offers-%s.xlsx", time.Now().Format("20060102-1504"))
		responses.WriteWorkbook(w, filename, workbook)
	}
}
