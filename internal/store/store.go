// Package store persists the tracked product list. Two backends exist: a
// human-readable JSON document and a SQLite database. Both write the list
// as a whole, keeping registration order.
package store

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	"github.com/angelmondragon/pricewatch-backend/pkg/config"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

// Store is the persistence surface plus resource cleanup.
type Store interface {
	Load(ctx context.Context) ([]tracker.TrackedProduct, error)
	Save(ctx context.Context, products []tracker.TrackedProduct) error
	Close() error
}

// New builds the backend named by the configuration.
func New(ctx context.Context, cfg config.StoreConfig, logg *logger.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StoreDriverJSONFile:
		return NewJSONFile(cfg.Path, logg)
	case config.StoreDriverSQLite:
		return NewSQLite(ctx, cfg, logg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
