package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	langpkg "adtrim/internal/language"
	"adtrim/internal/transcript"
)

const (
	defaultEndpoint       = "https://api.openai.com/v1/audio/transcriptions"
	defaultModel          = "whisper-1"
	defaultHTTPTimeout    = 10 * time.Minute
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 2 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// Config captures the runtime settings for the hosted transcription API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	TimeoutSeconds int
}

// OpenAIClient uploads audio to an OpenAI-compatible transcription endpoint.
type OpenAIClient struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*OpenAIClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenAIClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *OpenAIClient) {
		c.retryMaxAttempts = attempts
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *OpenAIClient) {
		c.sleeper = sleeper
	}
}

// NewOpenAIClient constructs a transcription client.
func NewOpenAIClient(cfg Config, opts ...Option) *OpenAIClient {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &OpenAIClient{
		cfg: Config{
			APIKey:   strings.TrimSpace(cfg.APIKey),
			BaseURL:  strings.TrimSpace(cfg.BaseURL),
			Model:    strings.TrimSpace(cfg.Model),
			Language: langpkg.ToISO2(cfg.Language),
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultEndpoint
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("transcription request: http %d: %s", e.StatusCode, e.Body)
}

func (e *statusError) retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// Transcribe uploads path and returns its segment-level transcript.
func (c *OpenAIClient) Transcribe(ctx context.Context, path string) (*transcript.Transcript, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("transcription: api key required")
	}
	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transcription: read audio: %w", err)
	}

	attempts := max(c.retryMaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.sendOnce(ctx, filepath.Base(path), audio)
		if err == nil {
			return result, nil
		}
		lastErr = err
		var status *statusError
		if ctx.Err() != nil || !errors.As(err, &status) || !status.retryable() || attempt == attempts {
			break
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("transcription: %s: %w", filepath.Base(path), lastErr)
}

func (c *OpenAIClient) sendOnce(ctx context.Context, name string, audio []byte) (*transcript.Transcript, error) {
	body, contentType, err := c.buildForm(name, audio)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, body)
	if err != nil {
		return nil, fmt.Errorf("transcription request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	result, err := transcript.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	return result, nil
}

func (c *OpenAIClient) buildForm(name string, audio []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	if c.cfg.Language != "" {
		fields = append(fields, [2]string{"language", c.cfg.Language})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("transcription request: write field %s: %w", field[0], err)
		}
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("transcription request: create file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("transcription request: write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("transcription request: close form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func (c *OpenAIClient) backoff(attempt int) time.Duration {
	delay := c.retryBaseDelay
	for i := 1; i < attempt && delay < c.retryMaxDelay; i++ {
		delay *= 2
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		delay = c.retryMaxDelay
	}
	return delay
}

func (c *OpenAIClient) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// String describes the client for logs.
func (c *OpenAIClient) String() string {
	return "openai:" + c.cfg.Model + " timeout=" + strconv.Itoa(int(c.httpClient.Timeout.Seconds())) + "s"
}
