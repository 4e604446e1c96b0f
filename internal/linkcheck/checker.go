// Package linkcheck probes landing page and distribution URLs and
// classifies failures.
//
// Usage:
//
//	c, err := linkcheck.New(linkcheck.WithTimeout(15*time.Second))
//	out, err := c.Check(ctx, "https://example.gov/data.csv")
//	if err != nil { /* unclassified: abort */ }
//	if out.Failed() { fmt.Println(out.Description()) }
package linkcheck

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 15 * time.Second

// DefaultUserAgent is sent with every probe.
const DefaultUserAgent = "podracer/dev"

// Checker issues HEAD probes. It is safe for concurrent use.
type Checker struct {
	client    *http.Client
	pacer     Pacer
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
	metrics   *metrics
}

// Option configures the Checker during construction.
type Option func(*checkerConfig) error

type checkerConfig struct {
	client    *http.Client
	pacer     Pacer
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
	reg       prometheus.Registerer
}

// New creates a Checker with a 15s timeout and a 0.5s fixed delay unless
// overridden.
func New(opts ...Option) (*Checker, error) {
	cfg := &checkerConfig{
		pacer:     FixedDelay(DefaultDelay),
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	client := cfg.client
	if client == nil {
		client = &http.Client{CheckRedirect: noRedirect}
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m, err := newMetrics(cfg.reg)
	if err != nil {
		return nil, err
	}

	return &Checker{
		client:    client,
		pacer:     cfg.pacer,
		timeout:   cfg.timeout,
		userAgent: cfg.userAgent,
		logger:    logger,
		metrics:   m,
	}, nil
}

// noRedirect reports a 3xx as the probe result instead of following it.
func noRedirect(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

// WithHTTPClient overrides the default HTTP client. The default client does
// not follow redirects; c is used as given.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *checkerConfig) error {
		cfg.client = c
		return nil
	}
}

// WithTimeout sets the per-probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(cfg *checkerConfig) error {
		if d <= 0 {
			return errors.New("linkcheck: timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithPacer replaces the fixed pre-probe delay.
func WithPacer(p Pacer) Option {
	return func(cfg *checkerConfig) error {
		if p == nil {
			p = NoDelay()
		}
		cfg.pacer = p
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cfg *checkerConfig) error {
		cfg.userAgent = ua
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *checkerConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithRegisterer records probe metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(cfg *checkerConfig) error {
		cfg.reg = reg
		return nil
	}
}

// Check probes rawURL. Every remote condition is reported through the
// Outcome; the error is non-nil only for an *UnclassifiedError.
func (c *Checker) Check(ctx context.Context, rawURL string) (Outcome, error) {
	start := time.Now()
	out, err := c.check(ctx, rawURL)
	if err != nil {
		c.logger.WarnContext(ctx, "unclassified probe failure", "url", rawURL, "error", err)
		return out, err
	}
	c.metrics.observe(out.Kind, time.Since(start))
	c.logger.DebugContext(ctx, "probe", "url", rawURL, "outcome", out.Kind.String(), "status", out.StatusCode)
	return out, nil
}

func (c *Checker) check(ctx context.Context, rawURL string) (Outcome, error) {
	out := Outcome{URL: rawURL}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		out.Kind = InvalidURL
		out.Err = err
		return out, nil
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return out, &UnclassifiedError{URL: rawURL, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		out.Kind = InvalidURL
		out.Err = err
		return out, nil
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return c.classify(ctx, out, err)
	}
	resp.Body.Close()

	out.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		out.Kind = HTTPError
	}
	return out, nil
}

func (c *Checker) classify(ctx context.Context, out Outcome, err error) (Outcome, error) {
	if ctx.Err() != nil {
		return out, &UnclassifiedError{URL: out.URL, Err: ctx.Err()}
	}
	out.Err = err
	switch {
	case isTLS(err):
		out.Kind = SkippedTLS
	case isTimeout(err):
		out.Kind = Timeout
	case isConnection(err), isTransport(err):
		out.Kind = ConnectionFailure
	default:
		return out, &UnclassifiedError{URL: out.URL, Err: err}
	}
	return out, nil
}

func isTLS(err error) bool {
	var (
		verifyErr  *tls.CertificateVerificationError
		unknownCA  x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		alertErr   tls.AlertError
		headerErr  tls.RecordHeaderError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownCA) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &headerErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isTransport matches failures the HTTP client reports after the request
// was issued: malformed responses, redirect errors, broken framing.
func isTransport(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func isConnection(err error) bool {
	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	return errors.As(err, &opErr) ||
		errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
