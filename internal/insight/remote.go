package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "https://api.openai.com"
	defaultModel       = "gpt-4o-mini"
	defaultTimeout     = 30 * time.Second
	defaultTemperature = 0.7
	defaultBaseBackoff = 500 * time.Millisecond
	defaultMaxRetries  = 1
	maxResponseBytes   = 1 << 20
)

// ClientConfig configures the remote chat-completion client.
type ClientConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	// Timeout bounds each attempt, not the whole call.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt. Zero
	// means one retry; a negative value disables retries.
	MaxRetries int
	RateLimit  float64
	Burst      int
	Backoff    time.Duration
	HTTPClient *http.Client
}

// Completion is one remote call.
type Completion struct {
	APIKey  string
	Model   string
	Request Request
}

// Client calls an OpenAI-compatible /v1/chat/completions endpoint.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	timeout     time.Duration
	maxRetries  int
	backoff     time.Duration
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a client, filling zero fields with defaults.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		backoff:     cfg.Backoff,
		httpClient:  cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.temperature == 0 {
		c.temperature = defaultTemperature
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	switch {
	case c.maxRetries == 0:
		c.maxRetries = defaultMaxRetries
	case c.maxRetries < 0:
		c.maxRetries = 0
	}
	if c.backoff <= 0 {
		c.backoff = defaultBaseBackoff
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}

	limit, burst := rate.Limit(cfg.RateLimit), cfg.Burst
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(limit, burst)
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SystemPrompt is the coaching instruction sent ahead of the week's data.
func SystemPrompt(persona, tone string) string {
	return fmt.Sprintf("You are an AI productivity coach specializing in %s personalities. "+
		"Provide concise weekly analysis (max 5 bullet points each). Tone: %s.", persona, tone)
}

// Complete sends the week to the remote model and returns the first choice's
// content. Transport failures, 429 and 5xx are retried up to MaxRetries times.
// Every attempt waits on the rate limiter.
func (c *Client) Complete(ctx context.Context, comp Completion) (string, error) {
	if comp.APIKey == "" {
		return "", ErrCredentialMissing
	}

	payload, err := json.Marshal(comp.Request)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	model := comp.Model
	if model == "" {
		model = c.model
	}
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(comp.Request.Profile.Persona, comp.Request.Profile.Tone)},
			{Role: "user", Content: string(payload)},
		},
		Temperature: c.temperature,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limiter: %v", ErrTransport, err)
		}

		content, err := c.attempt(ctx, comp.APIKey, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) attempt(ctx context.Context, apiKey string, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("%w: reading body: %v", ErrTransport, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remoteErr := &RemoteError{StatusCode: resp.StatusCode}
		var errBody chatErrorBody
		if json.Unmarshal(data, &errBody) == nil {
			remoteErr.Message = errBody.Error.Message
		}
		if remoteErr.Retryable() {
			return "", &retryableError{err: remoteErr}
		}
		return "", remoteErr
	}

	return parseChatResponse(data)
}

// IsRemoteStatus reports whether err carries the given HTTP status.
func IsRemoteStatus(err error, status int) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.StatusCode == status
}
