// Package proxy provides the reverse proxy the error log supervises in the
// errorlog binary.
//
// Requests are distributed across the enabled targets using round-robin
// scheduling, with failover to the next target when one is unavailable.
// When a request runs under an error log Dispatcher, the URL its fault record
// would have is forwarded upstream in the X-Error-Log-Entry header, so a
// backend can link its own logs to the record.
//
// Example usage:
//
//	cfg := config.DefaultConfig()
//	p, err := proxy.New(cfg, logger.Default())
//	if err != nil {
//		log.Fatal(err)
//	}
//	http.Handle("/", p)
package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync/atomic"
	"time"

	"errorlog/internal/config"
	"errorlog/internal/errorlog"
	"errorlog/pkg/errors"
	"errorlog/pkg/logger"
)

// EntryHeader carries the error log entry URL of the proxied request.
const EntryHeader = "X-Error-Log-Entry"

// Proxy handles reverse proxying to backend targets with load balancing.
//
// All methods are safe for concurrent use. The atomic counter keeps
// round-robin distribution race-free.
type Proxy struct {
	// targets contains parsed URLs of all enabled backend services
	targets []*url.URL

	// names holds the configured name of each target
	names []string

	// current is an atomic counter used for round-robin target selection
	current int64

	// stats tracks request statistics per target
	stats []TargetStats

	transport http.RoundTripper
	logger    *logger.Logger
	version   string
}

// TargetStats holds request statistics for a single target
type TargetStats struct {
	// Name is the configured target name
	Name string `json:"name"`

	// Requests is the total number of requests sent to this target
	Requests int64 `json:"requests"`

	// Successes is the number of successful requests
	Successes int64 `json:"successes"`

	// Failures is the number of failed requests
	Failures int64 `json:"failures"`
}

// New creates a proxy for the enabled targets of cfg.
//
// Disabled targets are skipped. Invalid URLs fail construction rather than
// individual requests.
func New(cfg *config.Config, log *logger.Logger) (*Proxy, error) {
	var (
		targets []*url.URL
		names   []string
	)

	for _, target := range cfg.Targets {
		if !target.Enabled {
			continue
		}

		u, err := url.Parse(target.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid target URL %s: %w", target.URL, err)
		}

		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("unsupported URL scheme '%s': must be http or https", u.Scheme)
		}

		name := target.Name
		if name == "" {
			name = u.Host
		}

		targets = append(targets, u)
		names = append(names, name)
	}

	if len(targets) == 0 {
		return nil, errors.ConfigError("proxy", "no enabled targets configured")
	}

	if log == nil {
		log = logger.Discard()
	}

	stats := make([]TargetStats, len(targets))
	for i, name := range names {
		stats[i].Name = name
	}

	return &Proxy{
		targets:   targets,
		names:     names,
		stats:     stats,
		transport: newTransport(),
		logger:    log.With("component", "proxy"),
		version:   cfg.Version,
	}, nil
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		ForceAttemptHTTP2:     true,
	}
}

// ServeHTTP implements http.Handler and proxies to targets using round-robin
// with failover.
//
// When every target fails, the 502 response is flushed to the client and
// the proxy then panics with an UpstreamError fault describing the last
// failure, so a supervising error log records it.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.setForwardHeaders(r)

	body, err := bufferBody(r)
	if err != nil {
		p.logger.Warn("Failed to read request body", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	startIndex := atomic.AddInt64(&p.current, 1) - 1

	var lastErr error
	for attempt := 0; attempt < len(p.targets); attempt++ {
		targetIndex := int((startIndex + int64(attempt)) % int64(len(p.targets)))
		target := p.targets[targetIndex]

		if body != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		}

		p.logger.LogProxy(r.Method, r.URL.Path, target.Host, attempt+1, len(p.targets))

		err := p.tryTarget(w, r, targetIndex, attempt == len(p.targets)-1)
		if err == nil {
			return
		}
		lastErr = err
	}

	p.logger.LogAllTargetsFailed(r.Method, r.URL.Path)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	last := p.targets[int((startIndex+int64(len(p.targets)-1))%int64(len(p.targets)))]
	panic(errors.UpstreamError(last.Host, lastErr).
		WithContext("method", r.Method).
		WithContext("path", r.URL.Path))
}

// bufferBody reads the request body so every failover attempt can resend
// it. It returns nil for requests without a body.
func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()

	return io.ReadAll(r.Body)
}

func (p *Proxy) setForwardHeaders(r *http.Request) {
	r.Header.Set("X-Forwarded-Host", r.Host)

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	r.Header.Set("X-Forwarded-Proto", scheme)

	if r.Header.Get("X-Real-IP") == "" && r.Header.Get("X-Forwarded-For") == "" {
		r.Header.Set("X-Forwarded-For", r.RemoteAddr)
	}

	if entry, ok := errorlog.EntryURLFromContext(r.Context()); ok {
		r.Header.Set(EntryHeader, entry)
	}
}

// tryTarget proxies r to one target and returns the transport error, if any.
// Only the last attempt writes an error response.
func (p *Proxy) tryTarget(w http.ResponseWriter, r *http.Request, targetIndex int, isLastAttempt bool) error {
	target := p.targets[targetIndex]
	atomic.AddInt64(&p.stats[targetIndex].Requests, 1)

	rp := httputil.NewSingleHostReverseProxy(target)
	rp.Transport = p.transport
	rp.ModifyResponse = p.modifyResponse

	var failure error
	rp.ErrorHandler = func(ew http.ResponseWriter, er *http.Request, err error) {
		p.logger.LogProxyFailure(target.Host, err)
		failure = err

		atomic.AddInt64(&p.stats[targetIndex].Failures, 1)

		if isLastAttempt {
			writeGatewayError(ew, target.Host, err)
		}
	}

	rp.ServeHTTP(w, r)

	if failure == nil {
		p.logger.LogProxySuccess(target.Host)
		atomic.AddInt64(&p.stats[targetIndex].Successes, 1)
	}

	return failure
}

func (p *Proxy) modifyResponse(r *http.Response) error {
	r.Header.Set("X-Proxied-By", "errorlog/"+p.version)
	return nil
}

type gatewayError struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	LastTarget string `json:"last_target"`
	Timestamp  string `json:"timestamp"`
}

func writeGatewayError(w http.ResponseWriter, target string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)

	_ = json.NewEncoder(w).Encode(gatewayError{
		Error:      "All targets unavailable",
		Message:    err.Error(),
		LastTarget: target,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// GetStats returns current statistics for all targets
func (p *Proxy) GetStats() []TargetStats {
	stats := make([]TargetStats, len(p.stats))

	for i := range p.stats {
		stats[i] = TargetStats{
			Name:      p.stats[i].Name,
			Requests:  atomic.LoadInt64(&p.stats[i].Requests),
			Successes: atomic.LoadInt64(&p.stats[i].Successes),
			Failures:  atomic.LoadInt64(&p.stats[i].Failures),
		}
	}

	return stats
}

// Targets returns the names of the enabled targets.
func (p *Proxy) Targets() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}
