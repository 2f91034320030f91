package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

var (
	errSectionSourceRequired  = errors.New("scanner section source is required")
	errScannerLoggerRequired  = errors.New("scanner logger is required")
	errTargetQueryMapRequired = pkgerrors.New(pkgerrors.CodeValidation, "scan target needs both query and map")
)

// SectionSource is the slice of the catalog client the scanner uses.
type SectionSource interface {
	SearchCatalog(ctx context.Context, vars SearchVariables) ([]Product, error)
}

type ScannerParams struct {
	Source SectionSource
	Logger *logger.Logger
	Sink   EventSink

	PageSize int
	// PageGap spaces out page requests; zero disables pacing.
	PageGap time.Duration
}

// Scanner walks one catalog section page by page and collects its products
// for the offers report. Scanned products never enter the tracked set.
type Scanner struct {
	source   SectionSource
	logger   *logger.Logger
	sink     EventSink
	pageSize int
	pacer    *pacer
}

func NewScanner(params ScannerParams) (*Scanner, error) {
	if params.Source == nil {
		return nil, errSectionSourceRequired
	}
	if params.Logger == nil {
		return nil, errScannerLoggerRequired
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Scanner{
		source:   params.Source,
		logger:   params.Logger,
		sink:     params.Sink,
		pageSize: pageSize,
		pacer:    newPacer(params.PageGap),
	}, nil
}

// Scan pages through the target's section until an empty page. A transport
// failure ends the scan for this target and returns what was collected so
// far; a canceled context is the only fatal outcome.
func (s *Scanner) Scan(ctx context.Context, target Target) ([]Match, error) {
	if target.Query == "" || target.Map == "" {
		return nil, errTargetQueryMapRequired
	}

	facets := buildFacets(target.Map, target.Query)
	logCtx := s.logger.WithFields(ctx, map[string]any{"target": target.Name, "query": target.Query})
	s.logger.Info(logCtx, "section scan started")

	var collected []Match
	for page := 0; ; page++ {
		if err := s.pacer.Wait(ctx); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "scan interrupted")
		}

		vars := SearchVariables{
			SKUsFilter:           "ALL_AVAILABLE",
			SimulationBehavior:   "default",
			InstallmentCriteria:  "MAX_WITHOUT_INTEREST",
			Map:                  target.Map,
			Query:                target.Query,
			OrderBy:              "OrderByScoreDESC",
			From:                 page * s.pageSize,
			To:                   (page+1)*s.pageSize - 1,
			SelectedFacets:       facets,
			FacetsBehavior:       "Static",
			CategoryTreeBehavior: "default",
			Variant:              "null-null",
		}

		products, err := s.source.SearchCatalog(ctx, vars)
		if err != nil {
			s.emit(Event{Level: LevelWarn, Name: "scan.page-failed",
				Message: fmt.Sprintf("page %d of %q failed, ending scan: %v", page+1, target.Name, err)})
			break
		}
		if len(products) == 0 {
			break
		}

		s.emit(Event{Level: LevelInfo, Name: "scan.page",
			Message: fmt.Sprintf("page %d of %q returned %d products", page+1, target.Name, len(products))})

		for i := range products {
			collected = append(collected, Match{
				Product: &products[i],
				Source:  SourceSection,
				Context: target.Name,
			})
		}
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"target":   target.Name,
		"products": len(collected),
	}), "section scan finished")
	return collected, nil
}

func (s *Scanner) emit(ev Event) {
	if s.sink == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.sink.Publish(ev)
}

// buildFacets pairs the map keys with the query path segments, stopping at
// the shorter of the two.
func buildFacets(mapParam, query string) []Facet {
	keys := strings.Split(mapParam, ",")
	values := strings.Split(query, "/")
	n := len(keys)
	if len(values) < n {
		n = len(values)
	}
	facets := make([]Facet, 0, n)
	for i := 0; i < n; i++ {
		facets = append(facets, Facet{Key: keys[i], Value: values[i]})
	}
	return facets
}
