package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nardwin/platform/internal/domain"
)

// MinSettlementAmount is the smallest deposit the gateway accepts, in USDT.
const MinSettlementAmount = 0.01

// PriceQuote is one cached exchange rate observation.
type PriceQuote struct {
	RateToman    float64   `json:"rate_toman"`
	AskRateToman *float64  `json:"ask_rate_toman,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// NobitexOracle fetches the USDT spot price in toman from the Nobitex
// orderbook and caches it briefly to bound external call volume.
type NobitexOracle struct {
	apiURL string
	client *http.Client
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	cached *PriceQuote
}

// NewNobitexOracle creates a price oracle with an explicit request timeout.
func NewNobitexOracle(apiURL string, ttl, timeout time.Duration, logger *slog.Logger) *NobitexOracle {
	return &NobitexOracle{
		apiURL: apiURL,
		client: &http.Client{Timeout: timeout},
		ttl:    ttl,
		logger: logger,
	}
}

// Quote returns the current USDT/toman rate, served from cache when fresh.
func (o *NobitexOracle) Quote(ctx context.Context) (*PriceQuote, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cached != nil && time.Since(o.cached.FetchedAt) < o.ttl {
		return o.cached, nil
	}

	quote, err := o.fetch(ctx)
	if err != nil {
		return nil, domain.ErrQuoteUnavailable(err)
	}
	o.cached = quote
	return quote, nil
}

// Convert turns a toman amount into its USDT settlement amount, rounded to 6
// fractional digits. Amounts under the gateway minimum fail with BELOW_MINIMUM.
func (o *NobitexOracle) Convert(ctx context.Context, toman int64) (float64, *PriceQuote, error) {
	quote, err := o.Quote(ctx)
	if err != nil {
		return 0, nil, err
	}

	usdt := math.Round(float64(toman)/quote.RateToman*1e6) / 1e6
	if usdt < MinSettlementAmount {
		return 0, quote, domain.ErrBelowMinimum(
			fmt.Sprintf("amount must be worth at least %.2f USDT", MinSettlementAmount))
	}
	return usdt, quote, nil
}

// orderbookResponse is the subset of the Nobitex v3 orderbook we consume.
// Prices come back as strings, in rial.
type orderbookResponse struct {
	Status         string     `json:"status"`
	LastTradePrice string     `json:"lastTradePrice"`
	Asks           [][]string `json:"asks"`
}

func (o *NobitexOracle) fetch(ctx context.Context) (*PriceQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nobitex api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nobitex error (status %d)", resp.StatusCode)
	}

	var book orderbookResponse
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, fmt.Errorf("decode orderbook: %w", err)
	}
	if book.Status != "ok" || book.LastTradePrice == "" {
		return nil, fmt.Errorf("invalid orderbook response (status %q)", book.Status)
	}

	rial, err := strconv.ParseFloat(book.LastTradePrice, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last trade price %q: %w", book.LastTradePrice, err)
	}

	// Nobitex quotes in rial; the platform accounts in toman.
	quote := &PriceQuote{RateToman: rial / 10, FetchedAt: time.Now()}

	if len(book.Asks) > 0 && len(book.Asks[0]) > 0 {
		if askRial, err := strconv.ParseFloat(book.Asks[0][0], 64); err == nil {
			ask := askRial / 10
			quote.AskRateToman = &ask
		}
	}

	o.logger.Debug("usdt price fetched", "rate_toman", quote.RateToman)
	return quote, nil
}
