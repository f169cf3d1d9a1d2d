package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/openspec-studio/internal/document"
)

// FetchSettings bounds remote imports.
type FetchSettings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// MaxBytes caps the accepted body size.
	MaxBytes int64
}

// DefaultFetchSettings returns recommended defaults.
func DefaultFetchSettings() FetchSettings {
	return FetchSettings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
		MaxBytes:    8 << 20,
	}
}

// ReadSource returns the bytes of a local file or an http/https URL verbatim.
func ReadSource(ctx context.Context, source string, settings FetchSettings) ([]byte, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &document.Error{Code: document.InputError, Message: "import: source is empty"}
	}
	u, uerr := url.Parse(source)
	if uerr == nil && u.Scheme != "" && u.Host != "" {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return nil, &document.Error{Code: document.InputError, Message: fmt.Sprintf("import: unsupported URL scheme %q (only http/https allowed)", scheme), Location: source}
		}
		raw, err := fetchWithRetry(ctx, source, settings)
		if err != nil {
			return nil, &document.Error{Code: document.NetworkError, Message: fmt.Sprintf("fetch %s: %v", source, err), Location: source, Cause: err}
		}
		return raw, nil
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, &document.Error{Code: document.InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: source, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &document.Error{Code: document.InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return raw, nil
}

func fetchWithRetry(ctx context.Context, rawURL string, settings FetchSettings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	limit := settings.MaxBytes
	if limit <= 0 {
		limit = DefaultFetchSettings().MaxBytes
	}
	for i := 0; i < attempts; i++ {
		body, retry, err := fetchOnce(ctx, client, rawURL, limit)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

// fetchOnce performs one GET and reports whether a failure is transient.
func fetchOnce(ctx context.Context, client *http.Client, rawURL string, limit int64) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, true, err
	}
	if int64(len(body)) > limit {
		return nil, false, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return body, false, nil
}
