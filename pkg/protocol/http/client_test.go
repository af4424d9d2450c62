package http

import (
	"context"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dirEntries lists the names in dir, including staged temp files.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewClient(t *testing.T) {
	t.Run("creates client with nil config", func(t *testing.T) {
		client := NewClient(nil)
		assert.NotNil(t, client)
		assert.Equal(t, "bulkdl/1.0", client.config.DefaultHeaders["User-Agent"])
	})

	t.Run("creates client with custom config", func(t *testing.T) {
		config := &ClientConfig{
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     20,
			MaxRedirects:        5,
			DialTimeout:         5 * time.Second,
		}
		client := NewClient(config)
		assert.NotNil(t, client)
		assert.Equal(t, 20, client.transport.MaxConnsPerHost)
	})
}

func TestSupportsMethod(t *testing.T) {
	client := NewClient(nil)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{
			name: "supports http",
			url:  "http://example.com",
			want: true,
		},
		{
			name: "supports https",
			url:  "HTTPS://example.com",
			want: true,
		},
		{
			name: "doesn't support ftp",
			url:  "ftp://example.com",
			want: false,
		},
		{
			name: "doesn't support invalid url",
			url:  "not-a-url",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := client.Supports(tt.url)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetch(t *testing.T) {
	t.Run("writes body to destination", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/wiki/Foo_Bar/revision/latest", r.URL.EscapedPath())
			w.Write([]byte("png-bytes"))
		}))
		defer server.Close()

		dir := t.TempDir()
		dest := filepath.Join(dir, "Foo Bar")

		client := NewClient(nil)
		n, err := client.Fetch(context.Background(), server.URL+"/wiki/Foo_Bar/revision/latest", dest)

		require.NoError(t, err)
		assert.Equal(t, int64(len("png-bytes")), n)

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
		assert.Equal(t, []string{"Foo Bar"}, dirEntries(t, dir))

		info, err := os.Stat(dest)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	})

	t.Run("sends default headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			assert.Equal(t, "test-value", r.Header.Get("X-Test-Header"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		cfg := DefaultConfig()
		cfg.DefaultHeaders = map[string]string{
			"User-Agent":    "test-agent",
			"X-Test-Header": "test-value",
		}

		client := NewClient(cfg)
		_, err := client.Fetch(context.Background(), server.URL, filepath.Join(t.TempDir(), "out"))
		require.NoError(t, err)
	})

	t.Run("status error leaves no file", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		dir := t.TempDir()
		client := NewClient(nil)
		_, err := client.Fetch(context.Background(), server.URL, filepath.Join(dir, "missing.png"))

		require.Error(t, err)
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, ErrorTypeHTTP, httpErr.Type)
		assert.Equal(t, http.StatusNotFound, httpErr.Status)
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("truncated body leaves no file", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "100")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("only ten b"))
		}))
		defer server.Close()

		dir := t.TempDir()
		client := NewClient(nil)
		_, err := client.Fetch(context.Background(), server.URL, filepath.Join(dir, "partial.png"))

		require.Error(t, err)
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, ErrorTypeNetwork, httpErr.Type)
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("replaces an existing file", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("new"))
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(dest, []byte("old"), 0o644))

		client := NewClient(nil)
		_, err := client.Fetch(context.Background(), server.URL, dest)
		require.NoError(t, err)

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("missing destination directory", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("data"))
		}))
		defer server.Close()

		client := NewClient(nil)
		_, err := client.Fetch(context.Background(), server.URL, filepath.Join(t.TempDir(), "nope", "file"))

		require.Error(t, err)
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, ErrorTypeIO, httpErr.Type)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		client := NewClient(nil)
		_, err := client.Fetch(context.Background(), "ftp://example.com/file", filepath.Join(t.TempDir(), "file"))

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedScheme))
	})

	t.Run("context timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		client := NewClient(nil)
		_, err := client.Fetch(ctx, server.URL, filepath.Join(t.TempDir(), "slow"))

		require.Error(t, err)
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, ErrorTypeTimeout, httpErr.Type)
	})

	t.Run("handles network errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		client := NewClient(nil)
		_, err := client.Fetch(context.Background(), url, filepath.Join(t.TempDir(), "file"))

		require.Error(t, err)
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, ErrorTypeNetwork, httpErr.Type)
	})

	t.Run("too many redirects", func(t *testing.T) {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, server.URL+"/loop", http.StatusFound)
		}))
		defer server.Close()

		cfg := DefaultConfig()
		cfg.MaxRedirects = 2

		dest := filepath.Join(t.TempDir(), "file")
		client := NewClient(cfg)
		_, err := client.Fetch(context.Background(), server.URL, dest)
		require.Error(t, err)

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, ErrorTypeHTTP, httpErr.Type)
		assert.Equal(t, http.StatusFound, httpErr.Status)
		assert.Contains(t, err.Error(), "too many redirects")
		assert.NoFileExists(t, dest)
	})
}

func TestFetchTransportSettings(t *testing.T) {
	t.Run("routes requests through the configured proxy", func(t *testing.T) {
		seen := make(chan string, 1)
		proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen <- r.URL.String()
			w.Write([]byte("via-proxy"))
		}))
		defer proxy.Close()

		cfg := DefaultConfig()
		require.NoError(t, cfg.SetProxy(proxy.URL))

		dest := filepath.Join(t.TempDir(), "Foo")
		_, err := NewClient(cfg).Fetch(context.Background(), "http://icons.invalid/wiki/Foo/revision/latest", dest)
		require.NoError(t, err)

		assert.Equal(t, "http://icons.invalid/wiki/Foo/revision/latest", <-seen)
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "via-proxy", string(data))
	})

	t.Run("rejects an untrusted certificate", func(t *testing.T) {
		server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("secret"))
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "file")
		_, err := NewClient(nil).Fetch(context.Background(), server.URL, dest)

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, ErrorTypeNetwork, httpErr.Type)
		assert.NoFileExists(t, dest)
	})

	t.Run("trusts an added certificate", func(t *testing.T) {
		server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("secret"))
		}))
		defer server.Close()

		cfg := DefaultConfig()
		certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
		require.NoError(t, cfg.TrustPEM(certPEM))

		dest := filepath.Join(t.TempDir(), "file")
		n, err := NewClient(cfg).Fetch(context.Background(), server.URL, dest)
		require.NoError(t, err)
		assert.Equal(t, int64(len("secret")), n)
	})
}

func TestHTTPErrorMessages(t *testing.T) {
	base := errors.New("boom")

	assert.Contains(t, NewHTTPStatusError("GET", "http://x", 500, base).Error(), "status 500")
	assert.Contains(t, NewHTTPNetworkError("GET", "http://x", base).Error(), "network error")
	assert.Contains(t, NewHTTPNetworkError("GET", "http://x", context.DeadlineExceeded).Error(), "timeout")
	assert.Contains(t, NewHTTPIOError("write", "http://x", base).Error(), "i/o error")
	assert.True(t, errors.Is(NewHTTPIOError("write", "http://x", base), base))
}

func TestCleanup(t *testing.T) {
	t.Run("cleanup succeeds", func(t *testing.T) {
		client := NewClient(nil)
		err := client.Cleanup()
		assert.NoError(t, err)
	})
}
