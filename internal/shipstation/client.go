// Package shipstation is the order-source client: a rate-limited, paginated
// HTTP fetcher plus the shipped-order ingestion built on top of it.
package shipstation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"shipenrich/internal/config"
)

// ErrExhaustedRetries is returned when the retry ceiling is hit without a
// successful response.
var ErrExhaustedRetries = errors.New("shipstation: rate limit exceeded after retries")

// UpstreamError is a non-retryable, non-success response from the API.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("shipstation: upstream returned HTTP %d", e.Status)
}

// Client talks to the ShipStation API with basic auth, a client-side rate
// limiter, and bounded retries on throttling responses.
type Client struct {
	baseURL       string
	authHeader    string
	httpClient    *http.Client
	limiter       *rate.Limiter
	retryCeiling  int
	rateLimitWait time.Duration
	pageSize      int
	logger        *zap.Logger
}

// NewClient builds a Client from configuration. The credential pair is
// folded into a static basic-auth header up front.
func NewClient(cfg config.ShipStationConfig, run config.RunConfig, logger *zap.Logger) *Client {
	token := base64.StdEncoding.EncodeToString([]byte(cfg.APIKey + ":" + cfg.APISecret))

	rps := run.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	ceiling := run.RetryCeiling
	if ceiling <= 0 {
		ceiling = 5
	}
	pageSize := run.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Client{
		baseURL:       cfg.BaseURL,
		authHeader:    "Basic " + token,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		retryCeiling:  ceiling,
		rateLimitWait: 30 * time.Second,
		pageSize:      pageSize,
		logger:        logger,
	}
}

// get performs one logical GET with up to retryCeiling attempts. A 429
// honors the server's Retry-After hint (falling back to rateLimitWait) and
// retries the identical request, so pagination state never advances on a
// throttled attempt. Any other non-2xx status fails immediately.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.retryCeiling; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", c.authHeader)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("request failed, retrying",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			if err := sleepCtx(ctx, time.Duration(attempt+1)*time.Second); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := c.retryAfter(resp)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("rate limited on %s", endpoint)
			c.logger.Warn("rate limited, honoring wait hint",
				zap.String("endpoint", endpoint),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt+1))
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		_ = resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &UpstreamError{Status: resp.StatusCode}
		}
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}
		return json.RawMessage(body), nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrExhaustedRetries, lastErr)
	}
	return nil, ErrExhaustedRetries
}

// retryAfter reads the server wait hint in seconds, defaulting to the fixed
// fallback when absent or unparseable.
func (c *Client) retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.rateLimitWait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
