package gemini

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

	"curator/internal/config"
	"curator/internal/llm"
)

// Name is the registry name of the provider.
const Name = "gemini"

const (
	// DefaultBaseURL is the Generative Language API root.
	DefaultBaseURL      = "https://generativelanguage.googleapis.com"
	defaultHTTPTimeout  = 120 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 5 * time.Minute
	defaultRetryDelay   = time.Second
	defaultRetryMax     = 10 * time.Second
)

// Client is an llm.Provider over the Gemini REST API.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	generation   generationConfig
	attempts     int

	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	retryDelay   time.Duration
	retryMax     time.Duration
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

// WithFilePolling overrides how often and how long an uploaded file is polled
// while the backend processes it.
func WithFilePolling(interval, timeout time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if timeout > 0 {
			c.pollTimeout = timeout
		}
	}
}

// WithRetryBackoff sets the first and the largest delay between attempts at a
// transient failure.
func WithRetryBackoff(initial, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = initial
		c.retryMax = maxDelay
	}
}

// New builds the adapter from provider settings.
func New(cfg config.Provider, systemPrompt string, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	c := &Client{
		apiKey:       strings.TrimSpace(cfg.APIKey),
		baseURL:      baseURL,
		model:        strings.TrimSpace(cfg.Model),
		systemPrompt: strings.TrimSpace(systemPrompt),
		generation: generationConfig{
			Temperature:      cfg.Temperature,
			TopP:             cfg.TopP,
			TopK:             cfg.TopK,
			MaxOutputTokens:  cfg.MaxOutputTokens,
			ResponseMIMEType: cfg.ResponseMIMEType,
		},
		attempts:     attempts,
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
		retryDelay:   defaultRetryDelay,
		retryMax:     defaultRetryMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string         { return Name }
func (c *Client) DefaultModel() string { return c.model }

func (c *Client) IsRateLimited(err error) bool { return llm.IsRateLimited(err) }

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"fileData,omitempty"`
}

type fileData struct {
	MIMEType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	TopK             *int     `json:"topK,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

// GenerateResponse is the decoded generateContent payload carried in
// llm.Response.Raw.
type GenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Text concatenates the parts of the first candidate that has any.
func (r GenerateResponse) Text() string {
	for _, candidate := range r.Candidates {
		var sb strings.Builder
		for _, p := range candidate.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

func (c *Client) GenerateText(ctx context.Context, model string, prompt llm.Prompt) (llm.Response, error) {
	parts := make([]part, 0, len(prompt.Parts))
	for _, p := range prompt.Parts {
		if p.IsFile() {
			parts = append(parts, part{FileData: &fileData{MIMEType: p.MIMEType, FileURI: p.FileURI}})
			continue
		}
		parts = append(parts, part{Text: p.Text})
	}
	return c.generate(ctx, c.resolveModel(model), parts)
}

// GenerateWithMedia uploads mediaPath through the File API, waits for it to
// become active, and sends it ahead of the prompt text.
func (c *Client) GenerateWithMedia(ctx context.Context, model string, prompt llm.Prompt, mediaPath string) (llm.Response, error) {
	model = c.resolveModel(model)
	if c.apiKey == "" {
		return llm.Response{}, c.classify(model, errors.New("api key required"))
	}
	file, err := c.UploadFile(ctx, mediaPath)
	if err != nil {
		return llm.Response{}, c.classify(model, err)
	}
	parts := []part{{FileData: &fileData{MIMEType: file.MIMEType, FileURI: file.URI}}}
	for _, p := range prompt.Parts {
		if p.IsFile() {
			parts = append(parts, part{FileData: &fileData{MIMEType: p.MIMEType, FileURI: p.FileURI}})
			continue
		}
		parts = append(parts, part{Text: p.Text})
	}
	return c.generate(ctx, model, parts)
}

func (c *Client) generate(ctx context.Context, model string, parts []part) (llm.Response, error) {
	if c.apiKey == "" {
		return llm.Response{}, c.classify(model, errors.New("api key required"))
	}
	req := generateRequest{Contents: []content{{Role: "user", Parts: parts}}}
	if c.systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: c.systemPrompt}}}
	}
	if c.generation != (generationConfig{}) {
		generation := c.generation
		req.GenerationConfig = &generation
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(model))

	operation := func() (llm.Response, error) {
		var decoded GenerateResponse
		body, err := c.doJSON(ctx, http.MethodPost, endpoint, req, &decoded)
		if err == nil {
			if text := decoded.Text(); text != "" {
				resp := llm.NewResponse(text, decoded)
				resp.Model = model
				return resp, nil
			}
			err = emptyResponseError(decoded, body)
		}
		return llm.Response{}, c.retryable(ctx, err)
	}
	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.attempts)),
	)
	if err != nil {
		return llm.Response{}, c.classify(model, err)
	}
	return resp, nil
}

func (c *Client) resolveModel(model string) string {
	if model = strings.TrimSpace(model); model != "" {
		return model
	}
	return c.model
}

func emptyResponseError(decoded GenerateResponse, body []byte) error {
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("prompt blocked: %s", decoded.PromptFeedback.BlockReason)
	}
	finish := ""
	if len(decoded.Candidates) > 0 {
		finish = decoded.Candidates[0].FinishReason
	}
	return &emptyContentError{FinishReason: finish, Snippet: llm.Snippet(string(body))}
}

type emptyContentError struct {
	FinishReason string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("empty content (finish_reason=%q, response_snippet=%s)", e.FinishReason, e.Snippet)
}

type statusError struct {
	StatusCode int
	Status     string
	Message    string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// doJSON sends payload (if any) and decodes a successful response into out.
// The raw body is returned for diagnostics.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload, out any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.withKey(endpoint), reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return body, newStatusError(resp, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return body, fmt.Errorf("decode response: %w", err)
		}
	}
	return body, nil
}

func (c *Client) withKey(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "key=" + url.QueryEscape(c.apiKey)
}

func newStatusError(resp *http.Response, body []byte) *statusError {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	statusErr := &statusError{StatusCode: resp.StatusCode, Message: llm.Snippet(string(body))}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		statusErr.Message = payload.Error.Message
		statusErr.Status = payload.Error.Status
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && seconds > 0 {
		statusErr.RetryAfter = time.Duration(seconds) * time.Second
	}
	return statusErr
}

func (c *Client) classify(model string, err error) error {
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	genErr = &llm.GenerationError{Provider: Name, Model: model, Kind: llm.KindFailed}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		genErr.StatusCode = statusErr.StatusCode
		genErr.RetryAfter = statusErr.RetryAfter
		genErr.Message = statusErr.Message
		if statusErr.StatusCode == http.StatusTooManyRequests || statusErr.Status == "RESOURCE_EXHAUSTED" {
			genErr.Kind = llm.KindRateLimited
		}
		return genErr
	}
	genErr.Err = err
	if llm.IsRateLimited(err) {
		genErr.Kind = llm.KindRateLimited
	}
	return genErr
}

// retryable marks err for the retry loop. Timeouts, 408, 5xx and empty
// candidates are retried, honouring Retry-After; everything else, 429
// included, is permanent.
func (c *Client) retryable(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}
	var emptyErr *emptyContentError
	if errors.As(err, &emptyErr) {
		return err
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode != http.StatusRequestTimeout && statusErr.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		if statusErr.RetryAfter > 0 {
			return fmt.Errorf("%w (%w)", err, &backoff.RetryAfterError{Duration: min(statusErr.RetryAfter, c.retryMax)})
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
	b.InitialInterval = c.retryDelay
	b.MaxInterval = c.retryMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return b
}
