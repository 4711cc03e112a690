package campaign

import (
	"net/http"
	"time"
)

// TransportConfig tunes the HTTP client shared by every session of a
// campaign.
type TransportConfig struct {
	// Timeout bounds each request (0 = none).
	Timeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int

	// MaxConnsPerHost limits connections per host (0 = unlimited).
	MaxConnsPerHost int

	IdleConnTimeout time.Duration
}

// DefaultTransportConfig pools enough idle connections for a thousand
// concurrent sessions against one host.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: 1000,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewHTTPClient builds the shared client. Sessions reuse its connection
// pool; each keeps its own bearer token.
func NewHTTPClient(cfg TransportConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.MaxIdleConns
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	transport.MaxConnsPerHost = cfg.MaxConnsPerHost
	transport.IdleConnTimeout = cfg.IdleConnTimeout

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}
