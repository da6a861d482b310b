// Package geocode resolves free-text city names into canonical places through the Open-Meteo
// geocoding search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/pkg/config"
)

const apiName = "open-meteo geocoding"

// Place is one search match.
type Place struct {
	Name      string  `json:"name"`
	Admin1    string  `json:"admin1"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// Label renders the place with its region and country for a button.
func (p Place) Label() string {
	parts := []string{p.Name}
	if p.Admin1 != "" && p.Admin1 != p.Name {
		parts = append(parts, p.Admin1)
	}
	if p.Country != "" {
		parts = append(parts, p.Country)
	}
	return strings.Join(parts, ", ")
}

// Searcher looks places up by name.
type Searcher interface {
	Search(ctx context.Context, name, lang string) ([]Place, error)
}

type searchResponse struct {
	Results []Place `json:"results"`
}

// Client queries the API with a response cache, retries and a circuit breaker.
type Client struct {
	baseURL string
	limit   int
	http    *http.Client
	cache   *gocache.Cache
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// NewClient builds a Client from configuration. httpClient may be nil.
func NewClient(cfg config.GeocodeConfig, httpClient *http.Client, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}

	return &Client{
		baseURL: cfg.BaseURL,
		limit:   cfg.Limit,
		http:    httpClient,
		cache:   gocache.New(cfg.CacheTTL, cfg.CacheTTL),
		breaker: apperrors.NewCircuitBreaker(apperrors.DefaultBreakerSettings()),
		log:     log,
	}
}

// Search returns up to the configured number of places named like name. An empty result is
// not an error.
func (c *Client) Search(ctx context.Context, name, lang string) ([]Place, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return nil, nil
	}

	cacheKey := lang + "|" + strings.ToLower(name)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]Place), nil
	}

	var places []Place
	err := apperrors.WithRetry(ctx, func() error {
		return c.breaker.Call(func() error {
			var err error
			places, err = c.fetch(ctx, name, lang)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrCircuitOpen) {
			return nil, apperrors.NewExternalAPIError(apiName, err)
		}
		return nil, err
	}

	c.cache.SetDefault(cacheKey, places)
	return places, nil
}

func (c *Client) fetch(ctx context.Context, name, lang string) ([]Place, error) {
	query := url.Values{}
	query.Set("name", name)
	query.Set("count", strconv.Itoa(c.limit))
	query.Set("format", "json")
	if lang != "" {
		query.Set("language", lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalAPIError(apiName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		appErr := apperrors.NewExternalAPIError(apiName, fmt.Errorf("unexpected status %d", resp.StatusCode))
		appErr.Retryable = resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return nil, appErr
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		appErr := apperrors.NewExternalAPIError(apiName, fmt.Errorf("decode response: %w", err))
		appErr.Retryable = false
		return nil, appErr
	}

	c.log.DebugContext(ctx, "geocode lookup", slog.String("name", name), slog.Int("results", len(decoded.Results)))
	return decoded.Results, nil
}
