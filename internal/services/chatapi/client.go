package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"curator/internal/llm"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	completionsPath       = "chat/completions"
)

// Config captures the runtime settings required to talk to an OpenAI-compatible endpoint.
type Config struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Referer        string
	Title          string
	TimeoutSeconds int
	// RetryAttempts bounds attempts for transient failures (timeouts, 408, 5xx,
	// empty content). Rate limits are never retried here.
	RetryAttempts int
}

// Client wraps the chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	notify         backoff.Notify
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithRetryNotify registers fn to observe each failed attempt and the delay
// before the next one.
func WithRetryNotify(fn func(error, time.Duration)) Option {
	return func(c *Client) {
		c.notify = fn
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	client := &Client{
		cfg:            cfg,
		httpClient:     &http.Client{Timeout: timeout},
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Request is the chat completion payload. Content of a message is either a
// string or a slice of ContentPart.
type Request struct {
	Model          string            `json:"model,omitempty"`
	Messages       []Message         `json:"messages"`
	Temperature    *float64          `json:"temperature,omitempty"`
	TopP           *float64          `json:"top_p,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ContentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ImageURL   *ImageURL   `json:"image_url,omitempty"`
	InputAudio *InputAudio `json:"input_audio,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type InputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// Completion is the decoded chat completion response.
type Completion struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message ResponseMessage `json:"message"`
		// Some gateways return the streaming schema (delta) even when
		// stream=false, so tolerate it as a fallback.
		Delta        ResponseMessage `json:"delta"`
		Text         string          `json:"text"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// ResponseMessage is a response message. Tool-call arguments count as content when
// the model answers through a function call.
type ResponseMessage struct {
	Content      string        `json:"content"`
	ToolCalls    []toolCall    `json:"tool_calls"`
	FunctionCall *functionCall `json:"function_call"`
	Refusal      string        `json:"refusal"`
}

type toolCall struct {
	Type     string       `json:"type"`
	ID       string       `json:"id"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type emptyContentError struct {
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("empty content (finish_reason=%q, refusal=%q, response_snippet=%s)", e.FinishReason, e.Refusal, e.Snippet)
}

// Complete sends req and returns the generated content with the decoded
// completion. Failures are returned as *llm.GenerationError.
func (c *Client) Complete(ctx context.Context, req Request) (string, *Completion, error) {
	if c.cfg.APIKey == "" {
		return "", nil, c.classify(req.Model, errors.New("api key required"))
	}
	type result struct {
		content    string
		completion *Completion
	}
	operation := func() (result, error) {
		completion, body, err := c.sendOnce(ctx, req)
		if err == nil {
			content, finishReason := extractCompletionPayload(completion)
			if content != "" {
				return result{content: content, completion: &completion}, nil
			}
			err = &emptyContentError{
				FinishReason: finishReason,
				Refusal:      extractCompletionRefusal(completion),
				Snippet:      llm.Snippet(string(body)),
			}
		}
		return result{}, c.retryable(ctx, err)
	}
	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.cfg.RetryAttempts)),
		backoff.WithNotify(c.notify),
	)
	if err != nil {
		return "", nil, c.classify(req.Model, err)
	}
	return res.content, res.completion, nil
}

func (c *Client) classify(model string, err error) error {
	genErr := &llm.GenerationError{Provider: c.cfg.Provider, Model: model, Kind: llm.KindFailed}
	var statusErr *httpStatusError
	switch {
	case errors.As(err, &statusErr):
		genErr.StatusCode = statusErr.StatusCode
		genErr.RetryAfter = statusErr.RetryAfter
		genErr.Message = errorMessage(statusErr.Body)
		if statusErr.StatusCode == http.StatusTooManyRequests {
			genErr.Kind = llm.KindRateLimited
		}
	default:
		genErr.Err = err
	}
	if genErr.Kind == llm.KindFailed && genErr.StatusCode == 0 && llm.IsRateLimited(err) {
		genErr.Kind = llm.KindRateLimited
	}
	return genErr
}

// errorMessage pulls error.message out of a JSON error body, falling back to
// the trimmed body.
func errorMessage(body string) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return llm.Snippet(body)
}

func (c *Client) sendOnce(ctx context.Context, payload Request) (Completion, []byte, error) {
	var completion Completion
	endpoint, err := url.JoinPath(c.cfg.BaseURL, completionsPath)
	if err != nil {
		return completion, nil, fmt.Errorf("build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, nil, fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return completion, body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, body, fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, body, nil
}

func extractCompletionPayload(completion Completion) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonBlank(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			return content, finishReason
		}
		if args := firstNonBlank(functionCallArguments(choice.Message.FunctionCall), functionCallArguments(choice.Delta.FunctionCall)); args != "" {
			return args, finishReason
		}
		if args := firstNonBlank(toolCallArguments(choice.Message.ToolCalls), toolCallArguments(choice.Delta.ToolCalls)); args != "" {
			return args, finishReason
		}
	}
	return "", finishReason
}

func extractCompletionRefusal(completion Completion) string {
	for _, choice := range completion.Choices {
		if refusal := firstNonBlank(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			return refusal
		}
	}
	return ""
}

func functionCallArguments(fc *functionCall) string {
	if fc == nil {
		return ""
	}
	return strings.TrimSpace(fc.Arguments)
}

func toolCallArguments(calls []toolCall) string {
	for _, call := range calls {
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			return args
		}
	}
	return ""
}

// firstNonBlank returns the first value with non-whitespace content, unmodified.
func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// retryable marks err for the retry loop. Timeouts, 408, 5xx and empty
// content are retried, honouring Retry-After; everything else is permanent.
// 429 is permanent too: the dispatch service owns rate limit fallback.
func (c *Client) retryable(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}
	var emptyErr *emptyContentError
	if errors.As(err, &emptyErr) {
		return err
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode != http.StatusRequestTimeout && statusErr.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		if statusErr.RetryAfter > 0 {
			return withRetryAfter(err, min(statusErr.RetryAfter, c.retryMaxDelay))
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return err
	}
	return backoff.Permanent(err)
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryBaseDelay
	b.MaxInterval = c.retryMaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return b
}

// withRetryAfter keeps err in the chain while telling the retry loop to wait
// delay before the next attempt.
func withRetryAfter(err error, delay time.Duration) error {
	return fmt.Errorf("%w (%w)", err, &backoff.RetryAfterError{Duration: delay})
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
