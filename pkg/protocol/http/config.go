package http

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"time"
)

var ErrNoCertificates = errors.New("no certificates found in PEM data")

// ClientConfig tunes the transport behind Client. Zero durations disable the matching timeout.
type ClientConfig struct {
	// ProxyURL routes every request through a fixed proxy. Nil falls back to the environment.
	ProxyURL *url.URL
	// TLSConfig replaces the transport's TLS settings when set.
	TLSConfig *tls.Config

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	MaxRedirects        int

	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	KeepAliveTimeout      time.Duration
	// RequestTimeout bounds a whole fetch including the body.
	RequestTimeout time.Duration

	DefaultHeaders map[string]string
}

// DefaultConfig returns the settings used for bulk downloads from a single host.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       10,
		IdleConnTimeout:       90 * time.Second,
		MaxRedirects:          10,
		DialTimeout:           30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		KeepAliveTimeout:      30 * time.Second,

		DefaultHeaders: map[string]string{
			"User-Agent": "bulkdl/1.0",
		},
	}
}

// SetProxy parses raw and routes requests through it. An empty string keeps the environment proxy.
func (c *ClientConfig) SetProxy(raw string) error {
	if raw == "" {
		c.ProxyURL = nil
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid proxy %q: scheme and host are required", raw)
	}

	c.ProxyURL = u
	return nil
}

// TrustPEM adds the certificates in pemCerts to the roots used to verify servers,
// on top of the system pool.
func (c *ClientConfig) TrustPEM(pemCerts []byte) error {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pemCerts) {
		return ErrNoCertificates
	}

	if c.TLSConfig == nil {
		c.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	c.TLSConfig.RootCAs = pool
	return nil
}
