// Package enrichment talks to the external attribute-enrichment service.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/precioscl/backend/internal/domain"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
	userAgent          = "precioscl-catalog/1.0"
)

// ClientConfig holds enrichment client settings
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Client handles communication with the enrichment service.
// It implements domain.Enricher.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	maxAttempts int
	backoffBase time.Duration
	debug       bool
	logger      zerolog.Logger
}

// enrichRequest is the payload sent for one product
type enrichRequest struct {
	ProductID string          `json:"product_id"`
	Retailer  domain.Retailer `json:"retailer"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand,omitempty"`
	Model     string          `json:"model,omitempty"`
	Category  string          `json:"category,omitempty"`
}

// NewClient creates a new enrichment client
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		logger:      logger.With().Str("component", "enrichment").Logger(),
	}
}

// SetDebug enables or disables request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Enrich asks the service for attributes, brand and model of a product.
// Server errors and 429 are retried with exponential backoff; other 4xx are not.
func (c *Client) Enrich(ctx context.Context, product *domain.NormalizedProduct) (*domain.Enrichment, error) {
	if product == nil || product.Name == "" {
		return nil, domain.ErrInvalidRequest
	}

	body, err := json.Marshal(enrichRequest{
		ProductID: product.ProductID,
		Retailer:  product.Retailer,
		Name:      product.Name,
		Brand:     product.Brand,
		Model:     product.Model,
		Category:  product.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := c.baseURL + "/v1/enrich"

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		status, respBody, err := c.doRequest(ctx, endpoint, body)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("request failed")
			lastErr = err
			if err := c.wait(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if c.debug {
			c.logger.Debug().
				Str("product_id", product.ProductID).
				Int("status", status).
				Int("attempt", attempt).
				Msg("enrichment response")
		}

		if status == http.StatusOK {
			var resp enrichResponse
			if err := json.Unmarshal(respBody, &resp); err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
			return mapToEnrichment(&resp), nil
		}

		lastErr = fmt.Errorf("%w: status %d", domain.ErrEnrichmentFailure, status)
		if !retryable(status) {
			return nil, lastErr
		}
		c.logger.Warn().Int("status", status).Int("attempt", attempt).Msg("retrying enrichment")
		if err := c.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// doRequest executes a POST with the JSON body and returns status and body
func (c *Client) doRequest(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrEnrichmentFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading body: %v", domain.ErrEnrichmentFailure, err)
	}
	return resp.StatusCode, respBody, nil
}

// wait sleeps for the backoff of the given attempt unless ctx ends first
func (c *Client) wait(ctx context.Context, attempt int) error {
	if attempt >= c.maxAttempts {
		return nil
	}
	timer := time.NewTimer(exponentialBackoffFrom(c.backoffBase, attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// exponentialBackoffFrom returns base, 2*base, 4*base, ... for attempts 1, 2, 3, ...
func exponentialBackoffFrom(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<(attempt-1))
}
