package category

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/simaogato/portfolio-ledger/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 3 * time.Second
	defaultRatePerSecond = 5
	defaultCacheTTL      = 24 * time.Hour
)

// ClientConfig configures the remote classification client
type ClientConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	CacheTTL      time.Duration
}

type classifyRequest struct {
	Tickers []string `json:"tickers"`
}

type classifyResponse struct {
	Categories map[string]string `json:"categories"`
}

// Client asks a remote classification service for ticker categories.
// Answers are cached and outgoing requests are rate limited.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	log        zerolog.Logger
}

// NewClient creates a new classification client
func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRatePerSecond
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		log:     log.With().Str("component", "category_client").Logger(),
	}
}

// Classify returns a category for every requested ticker the service knows.
// Cached answers are served without a request. When the request fails but some
// tickers were cached, the partial result is returned without error.
func (c *Client) Classify(ctx context.Context, tickers []string) (map[string]domain.AssetCategory, error) {
	results := make(map[string]domain.AssetCategory, len(tickers))

	uncached := make([]string, 0, len(tickers))
	for _, t := range tickers {
		key := strings.ToUpper(strings.TrimSpace(t))
		if cached, ok := c.cache.Get(key); ok {
			results[t] = cached.(domain.AssetCategory)
			continue
		}
		uncached = append(uncached, key)
	}

	if len(uncached) == 0 {
		c.log.Debug().Int("count", len(tickers)).Msg("All tickers found in cache")
		return results, nil
	}

	categories, err := c.doRequest(ctx, uncached)
	if err != nil {
		if len(results) > 0 {
			c.log.Warn().Err(err).Int("missing", len(uncached)).Msg("Classification request failed, returning cached subset")
			return results, nil
		}
		return nil, err
	}

	for _, t := range tickers {
		key := strings.ToUpper(strings.TrimSpace(t))
		raw, ok := categories[key]
		if !ok {
			continue
		}
		category := parseCategory(raw)
		results[t] = category
		c.cache.Set(key, category, cache.DefaultExpiration)
	}

	return results, nil
}

func (c *Client) doRequest(ctx context.Context, tickers []string) (map[string]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(classifyRequest{Tickers: tickers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Int("count", len(tickers)).Msg("Requesting ticker categories")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("classification service error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	out := make(map[string]string, len(decoded.Categories))
	for ticker, category := range decoded.Categories {
		out[strings.ToUpper(strings.TrimSpace(ticker))] = category
	}
	return out, nil
}

func parseCategory(raw string) domain.AssetCategory {
	switch domain.AssetCategory(strings.ToUpper(strings.TrimSpace(raw))) {
	case domain.AssetCategoryREIT, "FII":
		return domain.AssetCategoryREIT
	case domain.AssetCategoryETF:
		return domain.AssetCategoryETF
	case domain.AssetCategoryUnit:
		return domain.AssetCategoryUnit
	}
	return domain.AssetCategoryUnknown
}
