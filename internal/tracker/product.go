package tracker

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status reflects the most recent resolution outcome for a product.
type Status string

const (
	StatusPending  Status = "pending"
	StatusTracking Status = "tracking"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

// PricePoint is one observed price. Points are never edited once appended.
type PricePoint struct {
	CheckedAt time.Time       `json:"checkedAt"`
	Price     decimal.Decimal `json:"price"`
}

// TrackedProduct is one entry of the tracked list. Nullable fields stay nil
// until the first successful observation; VariationPercent stays nil until
// a second one exists, since undefined and zero mean different things.
type TrackedProduct struct {
	Code             string           `json:"code"`
	Name             string           `json:"name,omitempty"`
	CurrentPrice     *decimal.Decimal `json:"currentPrice,omitempty"`
	PreviousPrice    *decimal.Decimal `json:"previousPrice,omitempty"`
	VariationPercent *decimal.Decimal `json:"variationPercent,omitempty"`
	LastCheckedAt    *time.Time       `json:"lastCheckedAt,omitempty"`
	Status           Status           `json:"status"`
	History          []PricePoint     `json:"history,omitempty"`
}

// NewTracked is the registration shape: no name, no prices, no history.
func NewTracked(code string) TrackedProduct {
	return TrackedProduct{Code: code, Status: StatusPending}
}

const defaultHistoryLimit = 30

// appendHistory records a price point, dropping the oldest entries beyond
// the limit. Unchanged prices still append.
func (p *TrackedProduct) appendHistory(price decimal.Decimal, at time.Time, limit int) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	p.History = append(p.History, PricePoint{CheckedAt: at, Price: price})
	if len(p.History) > limit {
		p.History = p.History[len(p.History)-limit:]
	}
}
