package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

type HTTPClient struct {
	client    *http.Client
	transport *http.Transport
	config    ClientConfig
}

func NewClient(config *ClientConfig) *HTTPClient {
	if config == nil {
		config = DefaultConfig()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,

		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAliveTimeout,
		}).DialContext,
	}

	if config.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(config.ProxyURL)
	}

	if config.TLSConfig != nil {
		transport.TLSClientConfig = config.TLSConfig
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxRedirects {
				// Report the status of the redirect that was refused.
				status := 0
				if req.Response != nil {
					status = req.Response.StatusCode
				}
				return NewHTTPStatusError("redirect", req.URL.String(), status,
					fmt.Errorf("too many redirects (max: %d)", config.MaxRedirects))
			}
			return nil
		},
	}

	return &HTTPClient{
		client:    client,
		transport: transport,
		config:    *config,
	}
}

// Fetch performs a GET of urlStr and writes the body to destPath.
// The body is staged in a temporary file next to destPath and renamed into
// place only once it is complete, so a failed fetch never leaves destPath behind.
func (c *HTTPClient) Fetch(ctx context.Context, urlStr, destPath string) (int64, error) {
	if !c.Supports(urlStr) {
		return 0, &HTTPError{Type: ErrorTypeValidation, Operation: "GET", URL: urlStr, Err: ErrUnsupportedScheme}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return 0, &HTTPError{Type: ErrorTypeValidation, Operation: "GET", URL: urlStr, Err: err}
	}

	c.applyHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		var redirectErr *HTTPError
		if errors.As(err, &redirectErr) {
			return 0, redirectErr
		}
		return 0, NewHTTPNetworkError("GET", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, NewHTTPStatusError("GET", urlStr, resp.StatusCode,
			fmt.Errorf("GET request returned status %d", resp.StatusCode))
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return 0, NewHTTPIOError("create", urlStr, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return n, NewHTTPIOError("write", urlStr, err)
		}
		return n, NewHTTPNetworkError("read", urlStr, err)
	}

	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, NewHTTPNetworkError("read", urlStr,
			fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength))
	}

	if err := tmp.Chmod(0o644); err != nil {
		return n, NewHTTPIOError("chmod", urlStr, err)
	}
	if err := tmp.Close(); err != nil {
		return n, NewHTTPIOError("close", urlStr, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		committed = true
		return n, NewHTTPIOError("rename", urlStr, err)
	}
	committed = true

	return n, nil
}

func (c *HTTPClient) applyHeaders(req *http.Request) {
	for k, v := range c.config.DefaultHeaders {
		req.Header.Set(k, v)
	}
}

func (c *HTTPClient) Supports(urlStr string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}

func (c *HTTPClient) Cleanup() error {
	c.transport.CloseIdleConnections()
	return nil
}
