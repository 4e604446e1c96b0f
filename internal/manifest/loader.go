// Package manifest fetches a catalog manifest from a URL or a local file
// and decodes it into a catalog.Manifest.
package manifest

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"podracer/internal/catalog"
	"podracer/internal/logging"
)

// DefaultTimeout bounds the manifest download. Catalogs can be large.
const DefaultTimeout = 2 * time.Minute

// FetchError is returned when the manifest URL answers with a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch manifest %s: %s", e.URL, e.Status)
}

// IsNotFound reports whether err is a FetchError with status 404.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}

// Loader reads manifests.
type Loader struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// Option configures the Loader during construction.
type Option func(*loaderConfig) error

type loaderConfig struct {
	httpClient *http.Client
	timeout    time.Duration
	insecure   bool
	userAgent  string
	logger     *slog.Logger
}

// New creates a Loader.
func New(opts ...Option) (*Loader, error) {
	cfg := &loaderConfig{timeout: DefaultTimeout, userAgent: "podracer/dev"}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	hc := cfg.httpClient
	if hc == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.insecure {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		hc = &http.Client{Transport: tr, Timeout: cfg.timeout}
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.New("manifest")
	}
	return &Loader{httpClient: hc, userAgent: cfg.userAgent, logger: logger}, nil
}

// WithHTTPClient overrides the HTTP client. Timeout and TLS options are
// ignored when it is set.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *loaderConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithTimeout bounds the whole download.
func WithTimeout(d time.Duration) Option {
	return func(cfg *loaderConfig) error {
		if d <= 0 {
			return fmt.Errorf("manifest: timeout must be positive, got %s", d)
		}
		cfg.timeout = d
		return nil
	}
}

// WithInsecureTLS disables certificate verification for the download.
func WithInsecureTLS(v bool) Option {
	return func(cfg *loaderConfig) error {
		cfg.insecure = v
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cfg *loaderConfig) error {
		cfg.userAgent = ua
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *loaderConfig) error {
		cfg.logger = l
		return nil
	}
}

// IsURL reports whether ref names an http(s) resource rather than a file.
func IsURL(ref string) bool {
	l := strings.ToLower(ref)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Load reads ref (URL or file path) and decodes the manifest. Documents
// that are not JSON or lack a dataset list fail with a
// *catalog.FatalInputError.
func (l *Loader) Load(ctx context.Context, ref string) (*catalog.Manifest, error) {
	var (
		data []byte
		err  error
	)
	if IsURL(ref) {
		data, err = l.fetch(ctx, ref)
	} else {
		data, err = os.ReadFile(ref)
		if err != nil {
			err = fmt.Errorf("read manifest: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}
	l.logger.DebugContext(ctx, "manifest read", "ref", ref, "bytes", len(data))
	return Decode(data)
}

// Decode parses raw manifest bytes.
func Decode(data []byte) (*catalog.Manifest, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &catalog.FatalInputError{Reason: "decode json: " + err.Error()}
	}
	return catalog.ParseManifest(raw)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", l.userAgent)

	l.logger.InfoContext(ctx, "fetching manifest", "url", url)
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: read body: %w", err)
	}
	return data, nil
}
