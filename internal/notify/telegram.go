// Package notify sends price variation alerts through the Telegram Bot API.
// Leaving the bot token or chat id unconfigured disables the notifier
// without failing startup.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	"github.com/angelmondragon/pricewatch-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

const (
	defaultBaseURL   = "https://api.telegram.org"
	defaultTimeout   = 10 * time.Second
	defaultThreshold = 5.0
	maxNameLength    = 40
)

var errNotifyLoggerRequired = errors.New("telegram logger is required")

// Telegram posts variation alerts to one chat. A disabled notifier accepts
// every call and does nothing.
type Telegram struct {
	cfg       config.TelegramConfig
	baseURL   string
	threshold decimal.Decimal
	client    *http.Client
	logger    *logger.Logger
}

func New(ctx context.Context, cfg config.TelegramConfig, logg *logger.Logger) (*Telegram, error) {
	if logg == nil {
		return nil, errNotifyLoggerRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	threshold := cfg.ThresholdPercent
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	t := &Telegram{
		cfg:       cfg,
		baseURL:   baseURL,
		threshold: decimal.NewFromFloat(threshold),
		client: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		logger: logg,
	}

	if t.Enabled() {
		logg.Info(ctx, "telegram notifier initialized")
	} else {
		logg.Info(ctx, "telegram notifier disabled, no credentials configured")
	}
	return t, nil
}

// Enabled reports whether credentials are configured.
func (t *Telegram) Enabled() bool {
	return t != nil && t.cfg.Enabled()
}

// NotifyVariations alerts on every product whose variation reached the
// threshold. Products without a variation are ignored.
func (t *Telegram) NotifyVariations(ctx context.Context, products []tracker.TrackedProduct) error {
	if !t.Enabled() {
		return nil
	}

	flagged := make([]tracker.TrackedProduct, 0, len(products))
	for _, p := range products {
		if p.VariationPercent == nil {
			continue
		}
		if p.VariationPercent.Abs().GreaterThanOrEqual(t.threshold) {
			flagged = append(flagged, p)
		}
	}
	if len(flagged) == 0 {
		t.logger.Debug(ctx, "no variation reached the alert threshold")
		return nil
	}

	if err := t.sendMessage(ctx, buildMessage(flagged)); err != nil {
		return err
	}
	t.logger.Info(t.logger.WithFields(ctx, map[string]any{"products": len(flagged)}),
		"variation alert sent")
	return nil
}

func buildMessage(products []tracker.TrackedProduct) string {
	lines := []string{"<b>🔔 Price variation alert</b>", ""}
	for _, p := range products {
		emoji := "📈"
		if p.VariationPercent.IsNegative() {
			emoji = "📉"
		}

		name := p.Name
		if name == "" {
			name = p.Code
		}
		if runes := []rune(name); len(runes) > maxNameLength {
			name = string(runes[:maxNameLength])
		}

		price := 0.0
		if p.CurrentPrice != nil {
			price = p.CurrentPrice.InexactFloat64()
		}

		lines = append(lines,
			fmt.Sprintf("%s <b>%s</b>", emoji, html.EscapeString(name)),
			fmt.Sprintf("   Price: R$ %.2f (%+.1f%%)", price, p.VariationPercent.InexactFloat64()),
			"")
	}
	return strings.Join(lines, "\n")
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    t.cfg.ChatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding telegram message")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building telegram request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// The request URL embeds the bot token; unwrap so it never
		// reaches the logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Err != nil {
			err = urlErr.Err
		}
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "sending telegram message")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return pkgerrors.New(pkgerrors.CodeTransport, "telegram rejected the message").
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	return nil
}
