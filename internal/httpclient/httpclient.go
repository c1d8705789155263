package httpclient

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

const DefaultUserAgent = "pro-prompt-builder/1.0"

type Options struct {
	PreferIPv4 bool
	Timeout    time.Duration
	UserAgent  string

	// Transport replaces the dialing transport. Tests use it to reach an
	// httptest server.
	Transport http.RoundTripper
}

// New returns the client shared by the Telegram and Gemini clients.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	base := opts.Transport
	if base == nil {
		base = newTransport(opts.PreferIPv4)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{next: base, userAgent: userAgent},
	}
}

func newTransport(preferIPv4 bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if preferIPv4 {
				return dialer.DialContext(ctx, "tcp4", addr)
			}
			return dialer.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("user-agent") != "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("user-agent", t.userAgent)
	return t.next.RoundTrip(clone)
}
