// Package httptts synthesises speech through a Qwen3-TTS-compatible
// HTTP service. One client is bound to one inference device endpoint;
// running several devices means one client per endpoint.
package httptts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/narrata-labs/narrata-cli/internal/audio/wav"
	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
)

// synthesizePath is the speech endpoint on the TTS service.
const synthesizePath = "/v1/synthesize"

// maxErrorBody bounds how much of an error response is kept for the
// error message.
const maxErrorBody = 512

// Ensure Client implements the interface.
var _ driven.Synthesizer = (*Client)(nil)

// Client calls a single TTS service endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *RateLimiter
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout. Synthesis of a full chunk
// can take a while on CPU inference, so the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithRateLimit caps the sustained request rate against the service.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		c.limiter = NewRateLimiter(RateLimitConfig{
			RequestsPerSecond: requestsPerSecond,
			BurstSize:         burst,
		})
	}
}

// NewClient creates a client for the TTS service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// synthesizeRequest is the JSON body of a synthesis call.
type synthesizeRequest struct {
	Text     string `json:"text"`
	Speaker  string `json:"speaker,omitempty"`
	Language string `json:"language,omitempty"`
	Instruct string `json:"instruct,omitempty"`
}

// Synthesize sends one chunk of text and decodes the WAV response.
func (c *Client) Synthesize(ctx context.Context, text string, voice domain.Voice) (domain.AudioSegment, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.AudioSegment{}, err
		}
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:     text,
		Speaker:  voice.Speaker,
		Language: voice.Language,
		Instruct: voice.Instruct,
	})
	if err != nil {
		return domain.AudioSegment{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesizePath, bytes.NewReader(body))
	if err != nil {
		return domain.AudioSegment{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.AudioSegment{}, fmt.Errorf("calling TTS service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if c.limiter != nil {
			c.limiter.RecordRateLimitError(retryAfter)
		}
		return domain.AudioSegment{}, fmt.Errorf("TTS service throttled the request")
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.AudioSegment{}, fmt.Errorf("TTS service returned %s: %s",
			resp.Status, strings.TrimSpace(string(snippet)))
	}

	samples, rate, err := wav.Decode(resp.Body)
	if err != nil {
		return domain.AudioSegment{}, fmt.Errorf("decoding response audio: %w", err)
	}
	return domain.AudioSegment{Samples: samples, SampleRate: rate}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
