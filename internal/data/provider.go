package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Provider hands the engine a price history per instrument, already
// filtered to the run's cutoff date
type Provider interface {
	DailyBars(ctx context.Context, symbol string, cutoff time.Time) (*PriceTable, error)
}

// ProviderConfig tunes the HTTP daily-bars client
type ProviderConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RPS            float64       `yaml:"rps"`
	Burst          int           `yaml:"burst"`
}

// DefaultProviderConfig returns free-tier friendly client settings
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		RequestTimeout: 10 * time.Second,
		RPS:            2.0,
		Burst:          4,
	}
}

// HTTPProvider fetches daily bars over HTTP, rate limited and wrapped in a
// circuit breaker so a degraded upstream trips fast instead of stalling
// the whole scan.
type HTTPProvider struct {
	cfg     ProviderConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewHTTPProvider creates a provider client for the configured endpoint
func NewHTTPProvider(cfg ProviderConfig, logger zerolog.Logger) *HTTPProvider {
	settings := gobreaker.Settings{
		Name:    "bars-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provider circuit breaker state change")
		},
	}

	return &HTTPProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// barsResponse is the provider wire format: a plain array of daily bars
type barsResponse struct {
	Symbol string `json:"symbol"`
	Bars   []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"bars"`
}

// DailyBars fetches and validates the daily history for a symbol,
// truncated to the cutoff date
func (p *HTTPProvider) DailyBars(ctx context.Context, symbol string, cutoff time.Time) (*PriceTable, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx, symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bars for %s: %w", symbol, err)
	}

	table := result.(*PriceTable)
	return table.Truncate(cutoff), nil
}

func (p *HTTPProvider) fetch(ctx context.Context, symbol string) (*PriceTable, error) {
	endpoint := fmt.Sprintf("%s/daily/%s", p.cfg.BaseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned %d for %s", resp.StatusCode, symbol)
	}

	var payload barsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode bars for %s: %w", symbol, err)
	}

	bars := make([]Bar, 0, len(payload.Bars))
	for _, b := range payload.Bars {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return nil, fmt.Errorf("bad bar date %q for %s: %w", b.Date, symbol, err)
		}
		bars = append(bars, Bar{
			Date: date, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		})
	}

	return NewPriceTable(symbol, bars)
}
