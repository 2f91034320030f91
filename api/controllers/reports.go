package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/pricewatch-backend/api/responses"
	"github.com/angelmondragon/pricewatch-backend/api/validators"
	"github.com/angelmondragon/pricewatch-backend/internal/catalog"
	"github.com/angelmondragon/pricewatch-backend/internal/report"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

// SectionScanner walks one catalog section and returns its offer matches.
type SectionScanner interface {
	Scan(ctx context.Context, target catalog.Target) ([]catalog.Match, error)
}

// ReportTargets returns the scannable catalog sections.
func ReportTargets(targets []catalog.Target) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := targets
		if list == nil {
			list = []catalog.Target{}
		}
		responses.WriteSuccess(w, list)
	}
}

// ReportSection scans one catalog section and streams the offers found
// there as a spreadsheet.
func ReportSection(scanner SectionScanner, targets []catalog.Target, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if scanner == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "section scanner unavailable"))
			return
		}

		var payload sectionReportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		target, ok := catalog.FindTarget(targets, payload.Target)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown section target"))
			return
		}

		matches, err := scanner.Scan(ctx, target)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		workbook, err := report.Offers(matches)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filename := fmt.Sprintf("section-offers-%s.xlsx", time.Now().Format("20060102-1504"))
		responses.WriteWorkbook(w, filename, workbook)
	}
}

type sectionReportRequest struct {
	Target string `json:"target" validate:"required"`
}
