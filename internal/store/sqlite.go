package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	"github.com/angelmondragon/pricewatch-backend/pkg/config"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

// productRow is the relational shape of one tracked product. Prices are
// stored as decimal strings and the history as a JSON array so the schema
// stays flat.
type productRow struct {
	Code             string     `gorm:"column:code;primaryKey"`
	Position         int        `gorm:"column:position;not null"`
	Name             string     `gorm:"column:name"`
	CurrentPrice     *string    `gorm:"column:current_price"`
	PreviousPrice    *string    `gorm:"column:previous_price"`
	VariationPercent *string    `gorm:"column:variation_percent"`
	LastCheckedAt    *time.Time `gorm:"column:last_checked_at"`
	Status           string     `gorm:"column:status;not null"`
	History          string     `gorm:"column:history;type:text;not null;default:'[]'"`
}

func (productRow) TableName() string { return "tracked_products" }

// SQLite keeps the tracked list in a single table, replaced wholesale on
// every save inside one transaction.
type SQLite struct {
	conn   *gorm.DB
	logger *logger.Logger
}

func NewSQLite(ctx context.Context, cfg config.StoreConfig, logg *logger.Logger) (*SQLite, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlite store DSN is required")
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}

	if cfg.AutoMigrate {
		if err := conn.AutoMigrate(&productRow{}); err != nil {
			return nil, fmt.Errorf("migrating sqlite store: %w", err)
		}
	}

	if logg != nil {
		logg.Info(ctx, "sqlite store ready")
	}
	return &SQLite{conn: conn, logger: logg}, nil
}

// Load returns the tracked list in its saved order.
func (s *SQLite) Load(ctx context.Context) ([]tracker.TrackedProduct, error) {
	var rows []productRow
	if err := s.conn.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading tracked list: %w", err)
	}

	products := make([]tracker.TrackedProduct, 0, len(rows))
	for _, row := range rows {
		product, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %q: %w", row.Code, err)
		}
		products = append(products, product)
	}
	return products, nil
}

// Save replaces every row with the given list.
func (s *SQLite) Save(ctx context.Context, products []tracker.TrackedProduct) error {
	rows := make([]productRow, 0, len(products))
	for i, product := range products {
		row, err := toRow(product, i)
		if err != nil {
			return fmt.Errorf("product %q: %w", product.Code, err)
		}
		rows = append(rows, row)
	}

	return s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&productRow{}).Error; err != nil {
			return fmt.Errorf("clearing tracked list: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("writing tracked list: %w", err)
		}
		return nil
	})
}

func (s *SQLite) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(product tracker.TrackedProduct, position int) (productRow, error) {
	history, err := json.Marshal(product.History)
	if err != nil {
		return productRow{}, fmt.Errorf("encoding history: %w", err)
	}
	if product.History == nil {
		history = []byte("[]")
	}

	return productRow{
		Code:             product.Code,
		Position:         position,
		Name:             product.Name,
		CurrentPrice:     decimalString(product.CurrentPrice),
		PreviousPrice:    decimalString(product.PreviousPrice),
		VariationPercent: decimalString(product.VariationPercent),
		LastCheckedAt:    product.LastCheckedAt,
		Status:           string(product.Status),
		History:          string(history),
	}, nil
}

func fromRow(row productRow) (tracker.TrackedProduct, error) {
	product := tracker.TrackedProduct{
		Code:          row.Code,
		Name:          row.Name,
		LastCheckedAt: row.LastCheckedAt,
		Status:        tracker.Status(row.Status),
	}

	var err error
	if product.CurrentPrice, err = parseDecimal(row.CurrentPrice); err != nil {
		return product, fmt.Errorf("current price: %w", err)
	}
	if product.PreviousPrice, err = parseDecimal(row.PreviousPrice); err != nil {
		return product, fmt.Errorf("previous price: %w", err)
	}
	if product.VariationPercent, err = parseDecimal(row.VariationPercent); err != nil {
		return product, fmt.Errorf("variation: %w", err)
	}

	if row.History != "" && row.History != "[]" {
		if err := json.Unmarshal([]byte(row.History), &product.History); err != nil {
			return product, fmt.Errorf("decoding history: %w", err)
		}
	}
	return product, nil
}

func decimalString(value *decimal.Decimal) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}

func parseDecimal(value *string) (*decimal.Decimal, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(*value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
