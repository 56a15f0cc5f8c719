// Package provider calls the external text-to-image API.
package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/msomdec/picprompt/internal/domain"
)

const (
	DefaultEndpoint = "https://clipdrop-api.co/text-to-image/v1"
	DefaultTimeout  = 30 * time.Second

	maxImageBytes = 20 << 20 // 20MB
)

// errCallerGone marks a transport error caused by the caller cancelling its
// own context. It says nothing about provider health.
var errCallerGone = errors.New("caller context done")

// Config configures the provider client.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration

	// Breaker settings. Zero values fall back to 5 failures out of 10
	// calls and a 30 second open period.
	FailureThreshold uint
	FailureWindow    uint
	BreakerDelay     time.Duration
}

// Client generates images through a ClipDrop-compatible endpoint: a multipart
// POST with a "prompt" field answered by raw image bytes.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	timeout    time.Duration
	executor   failsafe.Executor[*http.Response]
}

// New creates a Client. The HTTP client may be nil.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FailureWindow == 0 {
		cfg.FailureWindow = 10
	}
	if cfg.FailureThreshold == 0 || cfg.FailureThreshold > cfg.FailureWindow {
		cfg.FailureThreshold = cfg.FailureWindow / 2
	}
	if cfg.BreakerDelay <= 0 {
		cfg.BreakerDelay = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThresholdRatio(cfg.FailureThreshold, cfg.FailureWindow).
		WithDelay(cfg.BreakerDelay).
		WithSuccessThreshold(1).
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, errCallerGone)
			}
			// Credential rejections are configuration errors, not outages.
			return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		}).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("image provider circuit breaker state change",
				"from", stateName(e.OldState), "to", stateName(e.NewState))
		}).
		Build()

	return &Client{
		httpClient: httpClient,
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		executor:   failsafe.With[*http.Response](breaker),
	}
}

// Generate submits prompt and returns the image bytes.
// Errors match domain.ErrProviderAuth for 401/403 responses and
// domain.ErrProvider for everything else.
//
// Only transport errors, the client's own timeout, 429 and 5xx count against
// the circuit breaker. A caller that cancels or runs out of deadline first
// does not.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	caller := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, contentType, err := encodePrompt(prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrProvider, err)
	}

	resp, err := c.executor.Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("x-api-key", c.apiKey)
		resp, err := c.httpClient.Do(req)
		if err != nil && caller.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerGone, err)
		}
		return resp, err
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, fmt.Errorf("%w: circuit open", domain.ErrProvider)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.Error("image provider rejected credentials", "status", resp.StatusCode, "body", string(detail))
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderAuth, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrProvider, resp.StatusCode, detail)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrProvider, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrProvider)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrProvider, maxImageBytes)
	}
	return data, nil
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}

func encodePrompt(prompt string) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("prompt", prompt); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
