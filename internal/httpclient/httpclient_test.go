package httpclient

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetsUserAgent(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.UserAgent())
		mu.Unlock()
	}))
	defer srv.Close()

	client := New(Options{Transport: srv.Client().Transport})

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("user-agent", "custom/2")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{DefaultUserAgent, "custom/2"}, got)
}

func TestNewDefaults(t *testing.T) {
	client := New(Options{})
	assert.Equal(t, 180*time.Second, client.Timeout)

	ua, ok := client.Transport.(*userAgentTransport)
	require.True(t, ok)
	assert.Equal(t, DefaultUserAgent, ua.userAgent)
	_, ok = ua.next.(*http.Transport)
	assert.True(t, ok)

	client = New(Options{Timeout: time.Second, UserAgent: " bot/3 "})
	assert.Equal(t, time.Second, client.Timeout)
	assert.Equal(t, "bot/3", client.Transport.(*userAgentTransport).userAgent)
}
