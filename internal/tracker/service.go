package tracker

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pricewatch-backend/internal/catalog"
	"github.com/angelmondragon/pricewatch-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
	"github.com/angelmondragon/pricewatch-backend/pkg/metrics"
)

const jobName = "price-update"

var (
	errStoreRequired         = errors.New("tracker store is required")
	errResolverRequired      = errors.New("tracker resolver is required")
	errTrackerLoggerRequired = errors.New("tracker logger is required")
	errRunInProgress         = pkgerrors.New(pkgerrors.CodeConflict, "an update run is already in progress")
	errProductAlreadyTracked = pkgerrors.New(pkgerrors.CodeConflict, "product is already tracked")
	errProductNotTracked     = pkgerrors.New(pkgerrors.CodeNotFound, "product is not tracked")
)

var codePattern = regexp.MustCompile(`^[0-9]{3,13}$`)

// ValidateCode accepts numeric codes between 3 and 13 digits.
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return pkgerrors.New(pkgerrors.CodeValidation, "code must be 3 to 13 digits")
	}
	return nil
}

// Store persists the tracked list as a whole document.
type Store interface {
	Load(ctx context.Context) ([]TrackedProduct, error)
	Save(ctx context.Context, products []TrackedProduct) error
}

// Resolver maps tracked codes to catalog matches.
type Resolver interface {
	Resolve(ctx context.Context, codes []string) ([]catalog.Match, error)
}

// Notifier is told about the updated list after a run; failures are logged
// and never fail the run.
type Notifier interface {
	NotifyVariations(ctx context.Context, products []TrackedProduct) error
}

// ChangedProduct is one riser or faller in a run summary.
type ChangedProduct struct {
	Code             string           `json:"code"`
	Name             string           `json:"name,omitempty"`
	CurrentPrice     *decimal.Decimal `json:"currentPrice,omitempty"`
	VariationPercent *decimal.Decimal `json:"variationPercent,omitempty"`
}

// RunSummary reports one update run.
type RunSummary struct {
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Total      int              `json:"total"`
	Tracking   int              `json:"tracking"`
	Failed     int              `json:"failed"`
	Risers     []ChangedProduct `json:"risers,omitempty"`
	Fallers    []ChangedProduct `json:"fallers,omitempty"`
}

// ImportResult counts a batch registration. Invalid carries the rejected
// inputs; the batch itself never fails.
type ImportResult struct {
	Added      int      `json:"added"`
	Duplicates int      `json:"duplicates"`
	Invalid    []string `json:"invalid,omitempty"`
}

type ServiceParams struct {
	Store    Store
	Resolver Resolver
	Notifier Notifier // optional
	Logger   *logger.Logger
	Metrics  *metrics.RunMetrics // optional

	HistoryLimit int
	Timezone     string
}

// Service owns the tracked list: registration, removal, and the update run
// that refreshes every product against the catalog.
type Service struct {
	store    Store
	resolver Resolver
	notifier Notifier
	logger   *logger.Logger
	metrics  *metrics.RunMetrics

	historyLimit int
	location     *time.Location

	running     atomic.Bool
	mu          sync.Mutex
	lastSummary *RunSummary

	now func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, errStoreRequired
	}
	if params.Resolver == nil {
		return nil, errResolverRequired
	}
	if params.Logger == nil {
		return nil, errTrackerLoggerRequired
	}

	location := time.Local
	if tz := strings.TrimSpace(params.Timezone); tz != "" {
		loaded, err := time.LoadLocation(tz)
		if err != nil {
			return nil, err
		}
		location = loaded
	}

	historyLimit := params.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	return &Service{
		store:        params.Store,
		resolver:     params.Resolver,
		notifier:     params.Notifier,
		logger:       params.Logger,
		metrics:      params.Metrics,
		historyLimit: historyLimit,
		location:     location,
		now:          time.Now,
	}, nil
}

// List returns the tracked products in registration order.
func (s *Service) List(ctx context.Context) ([]TrackedProduct, error) {
	return s.store.Load(ctx)
}

// Get returns one tracked product by code.
func (s *Service) Get(ctx context.Context, code string) (*TrackedProduct, error) {
	products, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].Code == code {
			return &products[i], nil
		}
	}
	return nil, errProductNotTracked
}

// History returns the recorded price points for one product, oldest first.
func (s *Service) History(ctx context.Context, code string) ([]PricePoint, error) {
	product, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return product.History, nil
}

// Register adds a code to the tracked list.
func (s *Service) Register(ctx context.Context, code string) (*TrackedProduct, error) {
	code = strings.TrimSpace(code)
	if err := ValidateCode(code); err != nil {
		return nil, err
	}

	products, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.Code == code {
			return nil, errProductAlreadyTracked
		}
	}

	product := NewTracked(code)
	products = append(products, product)
	if err := s.store.Save(ctx, products); err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithProductCode(ctx, code), "product registered")
	return &product, nil
}

// Remove drops a code from the tracked list, history included.
func (s *Service) Remove(ctx context.Context, code string) error {
	products, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	kept := products[:0]
	for _, p := range products {
		if p.Code != code {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(products) {
		return errProductNotTracked
	}

	if err := s.store.Save(ctx, kept); err != nil {
		return err
	}
	s.logger.Info(s.logger.WithProductCode(ctx, code), "product removed")
	return nil
}

// Import registers a batch of codes, counting additions and duplicates and
// collecting invalid inputs instead of failing.
func (s *Service) Import(ctx context.Context, codes []string) (*ImportResult, error) {
	products, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	tracked := make(map[string]bool, len(products))
	for _, p := range products {
		tracked[p.Code] = true
	}

	result := &ImportResult{}
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if ValidateCode(code) != nil {
			result.Invalid = append(result.Invalid, code)
			continue
		}
		if tracked[code] {
			result.Duplicates++
			continue
		}
		products = append(products, NewTracked(code))
		tracked[code] = true
		result.Added++
	}

	if result.Added > 0 {
		if err := s.store.Save(ctx, products); err != nil {
			return nil, err
		}
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"added":      result.Added,
		"duplicates": result.Duplicates,
		"invalid":    len(result.Invalid),
	}), "import finished")
	return result, nil
}

// Running reports whether an update run is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

// LastSummary returns the most recent completed run summary, if any.
func (s *Service) LastSummary() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSummary
}

// RunUpdate refreshes every tracked product against the catalog. Only one
// run may be active at a time; a second caller gets a conflict.
func (s *Service) RunUpdate(ctx context.Context) (*RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, errRunInProgress
	}
	defer s.running.Store(false)

	started := s.nowLocal()
	summary, err := s.runUpdate(ctx, started)
	s.metrics.ObserveDuration(jobName, s.now().Sub(started))
	if err != nil {
		s.metrics.IncFailure(jobName)
		return nil, err
	}
	s.metrics.IncSuccess(jobName)
	return summary, nil
}

func (s *Service) runUpdate(ctx context.Context, started time.Time) (*RunSummary, error) {
	products, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		s.logger.Info(ctx, "no tracked products, nothing to update")
		summary := &RunSummary{StartedAt: started, FinishedAt: s.nowLocal()}
		s.setLastSummary(summary)
		return summary, nil
	}

	codes := make([]string, 0, len(products))
	for _, p := range products {
		codes = append(codes, p.Code)
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{"products": len(products)}), "update run started")

	matches, err := s.resolver.Resolve(ctx, codes)
	if err != nil {
		// Run-fatal: stamp every product and keep previous prices intact.
		now := s.nowLocal()
		for i := range products {
			products[i].Status = StatusError
			products[i].LastCheckedAt = &now
		}
		if saveErr := s.store.Save(ctx, products); saveErr != nil {
			err = multierr.Append(err, saveErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update run failed")
	}

	byCode := make(map[string]catalog.Match, len(matches))
	for _, m := range matches {
		byCode[m.Code] = m
	}

	for i := range products {
		s.applyMatch(&products[i], byCode[products[i].Code])
	}

	if err := s.store.Save(ctx, products); err != nil {
		return nil, err
	}

	summary := s.summarize(products, started)
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"total":    summary.Total,
		"tracking": summary.Tracking,
		"risers":   len(summary.Risers),
		"fallers":  len(summary.Fallers),
		"failed":   summary.Failed,
	}), "update run finished")
	s.setLastSummary(summary)
	s.notify(ctx, products)
	return summary, nil
}

// applyMatch folds one resolution outcome into a product. Stale variation
// and history survive failed checks; only a priced observation moves them.
func (s *Service) applyMatch(p *TrackedProduct, match catalog.Match) {
	now := s.nowLocal()

	if !match.Resolved() {
		p.Status = StatusNotFound
		p.LastCheckedAt = &now
		return
	}

	quote := pricing.Extract(match)
	if quote.Name != "" {
		p.Name = quote.Name
	}
	if quote.Price == nil {
		p.Status = StatusError
		p.LastCheckedAt = &now
		return
	}

	previous := p.CurrentPrice
	p.PreviousPrice = previous
	p.CurrentPrice = quote.Price
	p.LastCheckedAt = &now
	p.Status = StatusTracking
	p.appendHistory(*quote.Price, now, s.historyLimit)
	p.VariationPercent = pricing.Variation(*quote.Price, previous)
}

func (s *Service) summarize(products []TrackedProduct, started time.Time) *RunSummary {
	summary := &RunSummary{
		StartedAt:  started,
		FinishedAt: s.nowLocal(),
		Total:      len(products),
	}
	for _, p := range products {
		switch p.Status {
		case StatusTracking:
			summary.Tracking++
		case StatusNotFound, StatusError:
			summary.Failed++
		}
		if p.VariationPercent == nil {
			continue
		}
		change := ChangedProduct{
			Code:             p.Code,
			Name:             p.Name,
			CurrentPrice:     p.CurrentPrice,
			VariationPercent: p.VariationPercent,
		}
		switch {
		case p.VariationPercent.IsPositive():
			summary.Risers = append(summary.Risers, change)
		case p.VariationPercent.IsNegative():
			summary.Fallers = append(summary.Fallers, change)
		}
	}
	return summary
}

func (s *Service) notify(ctx context.Context, products []TrackedProduct) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyVariations(ctx, products); err != nil {
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{"error": err.Error()}),
			"variation notification failed")
	}
}

func (s *Service) setLastSummary(summary *RunSummary) {
	s.mu.Lock()
	s.lastSummary = summary
	s.mu.Unlock()
}

func (s *Service) nowLocal() time.Time {
	return s.now().In(s.location)
}
