package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
	"github.com/angelmondragon/pricewatch-backend/pkg/metrics"
)

// fullCodeLength marks codes that can ride the bulk term search. Everything
// else goes straight to individual search.
const fullCodeLength = 13

const defaultBatchSize = 48

var (
	errSourceRequired         = errors.New("resolver product source is required")
	errResolverLoggerRequired = errors.New("resolver logger is required")
)

// ProductSource is the slice of the catalog client the resolver uses.
type ProductSource interface {
	SearchTerms(ctx context.Context, terms string, page int) ([]Product, error)
	ProductDetail(ctx context.Context, id string) (*Product, error)
}

type ResolverParams struct {
	Source  ProductSource
	Logger  *logger.Logger
	Sink    EventSink
	Metrics *metrics.ResolutionMetrics

	BatchSize int
	// SearchGap and DetailGap space out upstream calls. Zero disables
	// pacing; production values come from config.
	SearchGap time.Duration
	DetailGap time.Duration
}

// Resolver maps tracked codes to catalog records through the bulk search,
// the per-code fallbacks, and the detail enrichment pass.
type Resolver struct {
	source      ProductSource
	logger      *logger.Logger
	sink        EventSink
	metrics     *metrics.ResolutionMetrics
	batchSize   int
	searchPacer *pacer
	detailPacer *pacer
}

func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Source == nil {
		return nil, errSourceRequired
	}
	if params.Logger == nil {
		return nil, errResolverLoggerRequired
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Resolver{
		source:      params.Source,
		logger:      params.Logger,
		sink:        params.Sink,
		metrics:     params.Metrics,
		batchSize:   batchSize,
		searchPacer: newPacer(params.SearchGap),
		detailPacer: newPacer(params.DetailGap),
	}, nil
}

// Resolve maps every input code to exactly one Match, in no guaranteed
// order. Per-code failures come back as unresolved matches; the error
// return is reserved for conditions that invalidate the whole run, such as
// a canceled context.
func (r *Resolver) Resolve(ctx context.Context, codes []string) ([]Match, error) {
	full, short := partitionCodes(codes)

	logCtx := r.logger.WithFields(ctx, map[string]any{
		"codes": len(codes),
		"full":  len(full),
		"short": len(short),
	})
	r.logger.Info(logCtx, "resolution started")

	matches := make([]Match, 0, len(codes))

	resolved, escalated, err := r.resolveBatches(ctx, full)
	if err != nil {
		return nil, err
	}
	matches = append(matches, resolved...)

	individual, err := r.resolveIndividually(ctx, append(escalated, short...))
	if err != nil {
		return nil, err
	}
	matches = append(matches, individual...)

	found := 0
	for _, m := range matches {
		if m.Resolved() {
			found++
		}
	}
	r.logger.Info(r.logger.WithFields(ctx, map[string]any{
		"resolved":   found,
		"unresolved": len(matches) - found,
	}), "resolution finished")

	return matches, nil
}

func partitionCodes(codes []string) (full, short []string) {
	for _, code := range codes {
		if len(code) == fullCodeLength {
			full = append(full, code)
		} else {
			short = append(short, code)
		}
	}
	return full, short
}

type bulkHit struct {
	product *Product
	source  MatchSource
}

func (r *Resolver) resolveBatches(ctx context.Context, codes []string) (resolved []Match, escalated []string, err error) {
	total := (len(codes) + r.batchSize - 1) / r.batchSize
	for start := 0; start < len(codes); start += r.batchSize {
		end := start + r.batchSize
		if end > len(codes) {
			end = len(codes)
		}
		batch := codes[start:end]

		if err := r.searchPacer.Wait(ctx); err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolution interrupted")
		}

		r.emit(Event{Level: LevelInfo, Name: "batch.search",
			Message: fmt.Sprintf("batch %d/%d with %d codes", start/r.batchSize+1, total, len(batch))})

		products, searchErr := r.source.SearchTerms(ctx, strings.Join(batch, ", "), 1)
		if searchErr != nil {
			// The whole batch is written off; no per-code fallback here.
			r.emit(Event{Level: LevelWarn, Name: "batch.failed",
				Message: fmt.Sprintf("bulk search failed, %d codes unresolved: %v", len(batch), searchErr)})
			for _, code := range batch {
				r.outcome(SourceUnresolved)
				resolved = append(resolved, Match{Code: code, Source: SourceUnresolved})
			}
			continue
		}

		hits := r.matchBatch(products, batch)
		for _, code := range batch {
			hit, ok := hits[code]
			if !ok || hit.product.ProductID == "" {
				r.emit(Event{Level: LevelInfo, Code: code, Name: "batch.miss",
					Message: "not matched in bulk response, escalating to individual search"})
				escalated = append(escalated, code)
				continue
			}
			match := Match{
				Code:    code,
				Product: hit.product,
				Source:  hit.source,
				Context: "ean-search:" + code,
			}
			match, err := r.enrich(ctx, match)
			if err != nil {
				return nil, nil, err
			}
			r.outcome(match.Source)
			resolved = append(resolved, match)
		}
	}
	return resolved, escalated, nil
}

// matchBatch maps batch codes to the products of one bulk response. A
// direct EAN hit always wins and may overwrite an earlier hit for the same
// code; the image-url fallback only applies to items with a blank EAN and
// never overwrites.
func (r *Resolver) matchBatch(products []Product, batch []string) map[string]bulkHit {
	inBatch := make(map[string]bool, len(batch))
	for _, code := range batch {
		inBatch[code] = true
	}

	hits := make(map[string]bulkHit, len(batch))
	for i := range products {
		product := &products[i]
		for _, item := range product.Items {
			if item.EAN != "" {
				if inBatch[item.EAN] {
					hits[item.EAN] = bulkHit{product: product, source: SourceDirectEAN}
				}
				continue
			}
			for _, img := range item.Images {
				for _, code := range batch {
					if !strings.Contains(img.ImageURL, code) {
						continue
					}
					if _, taken := hits[code]; taken {
						continue
					}
					hits[code] = bulkHit{product: product, source: SourceImageURL}
					r.emit(Event{Level: LevelInfo, Code: code, Name: "match.image-fallback",
						Message: "matched through image url"})
				}
			}
		}
	}
	return hits
}

func (r *Resolver) resolveIndividually(ctx context.Context, codes []string) ([]Match, error) {
	matches := make([]Match, 0, len(codes))
	for _, code := range codes {
		if err := r.searchPacer.Wait(ctx); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolution interrupted")
		}

		products, err := r.source.SearchTerms(ctx, code, 1)
		if err != nil {
			r.emit(Event{Level: LevelWarn, Code: code, Name: "search.failed",
				Message: fmt.Sprintf("individual search failed: %v", err)})
			r.outcome(SourceUnresolved)
			matches = append(matches, Match{Code: code, Source: SourceUnresolved})
			continue
		}

		product, source := matchIndividual(products, code)
		if product == nil {
			r.emit(Event{Level: LevelWarn, Code: code, Name: "match.missing",
				Message: "no catalog entry matched"})
			r.outcome(SourceUnresolved)
			matches = append(matches, Match{Code: code, Source: SourceUnresolved})
			continue
		}
		if source == SourceImageURL {
			r.emit(Event{Level: LevelInfo, Code: code, Name: "match.image-fallback",
				Message: "matched through image url"})
		}

		match := Match{
			Code:    code,
			Product: product,
			Source:  source,
			Context: "code-search:" + code,
		}
		match, err = r.enrich(ctx, match)
		if err != nil {
			return nil, err
		}
		r.outcome(match.Source)
		matches = append(matches, match)
	}
	return matches, nil
}

// matchIndividual scans an individual search response for the first product
// whose items carry the code as EAN, as the leading reference id, or inside
// an image url.
func matchIndividual(products []Product, code string) (*Product, MatchSource) {
	for i := range products {
		product := &products[i]
		for _, item := range product.Items {
			if item.EAN == code {
				return product, SourceDirectEAN
			}
			if len(item.ReferenceID) > 0 && item.ReferenceID[0].Value == code {
				return product, SourceReferenceID
			}
			for _, img := range item.Images {
				if strings.Contains(img.ImageURL, code) {
					return product, SourceImageURL
				}
			}
		}
	}
	return nil, SourceUnresolved
}

// enrich upgrades a matched summary to the full detail record. A missing
// catalog id or a failed lookup keeps the summary; a weak match is never
// dropped here.
func (r *Resolver) enrich(ctx context.Context, match Match) (Match, error) {
	if match.Product == nil || match.Product.ProductID == "" {
		return match, nil
	}
	if err := r.detailPacer.Wait(ctx); err != nil {
		return match, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolution interrupted")
	}
	detail, err := r.source.ProductDetail(ctx, match.Product.ProductID)
	if err != nil || detail == nil {
		r.emit(Event{Level: LevelWarn, Code: match.Code, Name: "detail.fallback",
			Message: "detail lookup failed, keeping summary data"})
		return match, nil
	}
	match.Product = detail
	return match, nil
}

func (r *Resolver) emit(ev Event) {
	if r.sink == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	r.sink.Publish(ev)
}

func (r *Resolver) outcome(source MatchSource) {
	r.metrics.IncOutcome(string(source))
}
