package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL
	opts.APIKey = "test-key"
	opts.HTTPClient = srv.Client()
	return New(opts)
}

func TestGenerateSendsInstruction(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateContentRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		w.Header().Set("content-type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"  a lone astronaut, "},{"text":"cinematic --ar 16:9\n"}]}}]}`)
	}, Options{})

	text, err := c.Generate(context.Background(), "Role: prompt engineer")
	require.NoError(t, err)

	assert.Equal(t, "a lone astronaut, cinematic --ar 16:9", text)
	assert.Equal(t, "/v1beta/models/"+DefaultModel+":generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
	assert.Equal(t, "Role: prompt engineer", gotReq.Contents[0].Parts[0].Text)
	assert.Nil(t, gotReq.GenerationConfig)
}

func TestGenerateUsesConfiguredModel(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}, Options{Model: "gemini-2.0-pro", APIVersion: "v1", Temperature: 0.4})

	_, err := c.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "/v1/models/gemini-2.0-pro:generateContent", gotPath)
	assert.Equal(t, "gemini-2.0-pro", c.Model())
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "api error",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"quota"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
				assert.Contains(t, apiErr.Body, "quota")
			},
		},
		{
			name:   "undecodable",
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "decode response")
			},
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyResponse)
			},
		},
		{
			name:   "blank text",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyResponse)
			},
		},
		{
			name:   "blocked",
			status: http.StatusOK,
			body:   `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyResponse)
				assert.ErrorContains(t, err, "SAFETY")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, Options{})

			_, err := c.Generate(context.Background(), "x")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGenerateRejectsEmptyInstruction(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, Options{})

	_, err := c.Generate(context.Background(), "  ")
	require.Error(t, err)
	assert.Zero(t, hits.Load())
}

func TestGenerateHonoursRateLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}, Options{RateInterval: time.Hour, RateBurst: 1})

	_, err := c.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Generate(ctx, "second")
	assert.ErrorContains(t, err, "rate limit")
}

func TestGenerateWithoutHTTPClient(t *testing.T) {
	c := New(Options{APIKey: "k"})
	_, err := c.Generate(context.Background(), "x")
	assert.ErrorContains(t, err, "http client is nil")
}
