package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultModel = "gemini-2.5-flash"

var ErrEmptyResponse = errors.New("gemini returned no text")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API %s: %s", e.Status, e.Body)
}

type Options struct {
	APIKey      string
	BaseURL     string
	APIVersion  string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
	Logger      *slog.Logger

	// RateInterval spaces outgoing requests; zero disables limiting.
	RateInterval time.Duration
	RateBurst    int
}

type Client struct {
	apiKey      string
	baseURL     string
	apiVersion  string
	model       string
	temperature float64
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateInterval > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(opts.RateInterval), burst)
	}

	return &Client{
		apiKey:      opts.APIKey,
		baseURL:     baseURL,
		apiVersion:  apiVersion,
		model:       model,
		temperature: opts.Temperature,
		httpClient:  opts.HTTPClient,
		limiter:     limiter,
		logger:      logger,
	}
}

func (c *Client) Model() string { return c.model }

// Generate sends instruction as a single user turn and returns the trimmed
// text of the first candidate.
func (c *Client) Generate(ctx context.Context, instruction string) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", errors.New("instruction is empty")
	}

	req := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: instruction}}},
		},
	}
	if c.temperature > 0 {
		req.GenerationConfig = &generationConfig{Temperature: c.temperature}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	decoded, err := c.generateContent(ctx, req)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(extractText(decoded))
	if text == "" {
		if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, decoded.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *Client) generateContent(ctx context.Context, payload generateContentRequest) (generateContentResponse, error) {
	if c.httpClient == nil {
		return generateContentResponse{}, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	began := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("gemini response", "model", c.model, "status", httpResp.StatusCode, "dur_ms", time.Since(began).Milliseconds())

	if httpResp.StatusCode >= 400 {
		return generateContentResponse{}, &APIError{
			StatusCode: httpResp.StatusCode,
			Status:     httpResp.Status,
			Body:       strings.TrimSpace(string(rawBody)),
		}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return generateContentResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil
}

func extractText(resp generateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
