package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is handed to envconfig for variables without an explicit tag.
const EnvPrefix = "pricewatch"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreDriverJSONFile = "jsonfile"
	StoreDriverSQLite   = "sqlite"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	Store    StoreConfig
	Catalog  CatalogConfig
	Resolver ResolverConfig
	Tracker  TrackerConfig
	Telegram TelegramConfig
	Reports  ReportsConfig
	Schedule ScheduleConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"PRICEWATCH_APP_ENV" default:"dev"`
	Port         string   `envconfig:"PRICEWATCH_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"PRICEWATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PRICEWATCH_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PRICEWATCH_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:8501"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PRICEWATCH_SERVICE_KIND" default:"api"`
}

// StoreConfig selects and configures the tracked-list persistence backend.
type StoreConfig struct {
	Driver      string `envconfig:"PRICEWATCH_STORE_DRIVER" default:"jsonfile"`
	Path        string `envconfig:"PRICEWATCH_STORE_PATH" default:"data/products.json"`
	DSN         string `envconfig:"PRICEWATCH_STORE_DSN" default:"data/pricewatch.db"`
	AutoMigrate bool   `envconfig:"PRICEWATCH_STORE_AUTO_MIGRATE" default:"true"`
}

func (s *StoreConfig) normalize() error {
	driver := strings.TrimSpace(strings.ToLower(s.Driver))
	if driver == "" {
		driver = StoreDriverJSONFile
	}
	switch driver {
	case StoreDriverJSONFile:
		if s.Path == "" {
			return fmt.Errorf("%s store requires PRICEWATCH_STORE_PATH", StoreDriverJSONFile)
		}
	case StoreDriverSQLite:
		if s.DSN == "" {
			return fmt.Errorf("%s store requires PRICEWATCH_STORE_DSN", StoreDriverSQLite)
		}
	default:
		return fmt.Errorf("store driver must be %q or %q", StoreDriverJSONFile, StoreDriverSQLite)
	}
	s.Driver = driver
	return nil
}

// CatalogConfig points the client at the retailer's public catalog surfaces.
// The defaults are the production endpoints; the key is the public storefront
// key the retailer ships in its own mobile client.
type CatalogConfig struct {
	BaseURL      string        `envconfig:"PRICEWATCH_CATALOG_BASE_URL" default:"https://www.paguemenos.com.br"`
	SearchURL    string        `envconfig:"PRICEWATCH_CATALOG_SEARCH_URL" default:"https://prod.apipmenos.com/buscacatalogo/api/searchurl"`
	APIKey       string        `envconfig:"PRICEWATCH_CATALOG_API_KEY" default:"Yt1tDH9WNx5pmTXrBPBFH8mHAMJ5Gbb3dbSdu12d"`
	SearchAPIKey string        `envconfig:"PRICEWATCH_CATALOG_SEARCH_API_KEY" default:"farmacia-paguemenos"`
	UserAgent    string        `envconfig:"PRICEWATCH_CATALOG_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36 Edg/141.0.0.0"`
	Timeout      time.Duration `envconfig:"PRICEWATCH_CATALOG_TIMEOUT" default:"30s"`
	PageSize     int           `envconfig:"PRICEWATCH_CATALOG_PAGE_SIZE" default:"50"`
	SalesChannel string        `envconfig:"PRICEWATCH_CATALOG_SALES_CHANNEL" default:"1"`
	Company      string        `envconfig:"PRICEWATCH_CATALOG_COMPANY" default:"1"`
}

// ResolverConfig tunes batching and the courtesy pauses between upstream
// calls. The pauses are part of the contract toward the retailer, not a
// performance knob; shrink them only for tests.
type ResolverConfig struct {
	BatchSize int           `envconfig:"PRICEWATCH_RESOLVER_BATCH_SIZE" default:"48"`
	SearchGap time.Duration `envconfig:"PRICEWATCH_RESOLVER_SEARCH_GAP" default:"1s"`
	DetailGap time.Duration `envconfig:"PRICEWATCH_RESOLVER_DETAIL_GAP" default:"100ms"`
}

type TrackerConfig struct {
	HistoryLimit int    `envconfig:"PRICEWATCH_TRACKER_HISTORY_LIMIT" default:"30"`
	Timezone     string `envconfig:"PRICEWATCH_TRACKER_TIMEZONE" default:"America/Sao_Paulo"`
}

// TelegramConfig enables the variation alerts. Leaving token or chat id
// empty disables notifications without failing startup.
type TelegramConfig struct {
	APIBaseURL       string        `envconfig:"PRICEWATCH_TELEGRAM_API_BASE_URL" default:"https://api.telegram.org"`
	BotToken         string        `envconfig:"PRICEWATCH_TELEGRAM_BOT_TOKEN"`
	ChatID           string        `envconfig:"PRICEWATCH_TELEGRAM_CHAT_ID"`
	ThresholdPercent float64       `envconfig:"PRICEWATCH_TELEGRAM_THRESHOLD_PERCENT" default:"5.0"`
	Timeout          time.Duration `envconfig:"PRICEWATCH_TELEGRAM_TIMEOUT" default:"10s"`
}

func (t TelegramConfig) Enabled() bool {
	return strings.TrimSpace(t.BotToken) != "" && strings.TrimSpace(t.ChatID) != ""
}

type ReportsConfig struct {
	TargetsDir string `envconfig:"PRICEWATCH_REPORTS_TARGETS_DIR" default:"targets"`
}

type ScheduleConfig struct {
	Interval time.Duration `envconfig:"PRICEWATCH_SCHEDULE_INTERVAL" default:"24h"`
	RunOnce  bool          `envconfig:"PRICEWATCH_SCHEDULE_RUN_ONCE" default:"false"`
}
