// Package errorlog provides HTTP middleware that records panics raised by a
// wrapped handler and serves a small HTML view of the most recent ones.
//
// The Dispatcher keeps a bounded ring of fault records in memory. Every
// recovered panic is recorded, reported and then re-raised with its original
// value, so the host server still sees it. Faults whose category is in the
// ignore set pass through untouched.
package errorlog

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"errorlog/internal/config"
	"errorlog/pkg/errors"
	"errorlog/pkg/logger"
)

// DefaultPath is the view path used when none is configured.
const DefaultPath = "/__error_log__"

// Options configures a Dispatcher.
type Options struct {
	// Path is the request path the view is served at.
	Path string

	// Prefix is the mount point of the service, prepended to Path in the
	// links the view emits.
	Prefix string

	// Channel names the log channel faults are reported to. Nil reports
	// to the request's diagnostics stream instead; "" is the root channel.
	Channel *string

	// Keep is the number of records held. Zero selects DefaultKeep.
	Keep int

	// Ignore lists the fault categories passed through unrecorded.
	Ignore []errors.Category

	// Logger is the parent of the log channel. Nil discards log output.
	Logger *logger.Logger

	// Registerer receives the dispatcher's collectors. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer

	// Now is the clock. Nil selects time.Now.
	Now func() time.Time
}

// withDefaults fills unset fields and checks the rest.
func (o Options) withDefaults() (Options, error) {
	if o.Path == "" {
		o.Path = DefaultPath
	}
	if !strings.HasPrefix(o.Path, "/") {
		return o, errors.ConfigError("errorlog", "path must start with '/'").
			WithContext("path", o.Path)
	}

	if o.Keep == 0 {
		o.Keep = DefaultKeep
	}
	if o.Keep < 0 {
		return o, errors.ConfigError("errorlog", "keep must be positive").
			WithContext("keep", o.Keep)
	}

	if o.Now == nil {
		o.Now = time.Now
	}

	return o, nil
}

// Dispatcher is an http.Handler that serves the error log view at its path
// and supervises every other request to the wrapped handler.
type Dispatcher struct {
	next     http.Handler
	path     string
	prefix   string
	viewPath string
	log      *logger.Logger
	channel  *logger.Logger
	ignore   errors.CategorySet
	recorder recorder
	metrics  *metrics
	instance string

	mu      sync.Mutex
	counter uint64
	ring    *Ring
}

// New creates a Dispatcher wrapping next.
func New(next http.Handler, opts Options) (*Dispatcher, error) {
	if next == nil {
		return nil, errors.ConfigError("errorlog", "wrapped handler is required")
	}

	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	instance := uuid.NewString()

	m, err := newMetrics(opts.Registerer, instance)
	if err != nil {
		return nil, errors.Wrap(errors.CategoryConfig, "failed to register metrics", err)
	}

	d := &Dispatcher{
		next:     next,
		path:     opts.Path,
		prefix:   opts.Prefix,
		viewPath: opts.Prefix + opts.Path,
		ignore:   errors.NewCategorySet(opts.Ignore...),
		metrics:  m,
		instance: instance,
		ring:     NewRing(opts.Keep),
	}

	d.recorder = recorder{viewPath: d.viewPath, now: opts.Now}

	d.log = opts.Logger
	if d.log == nil {
		d.log = logger.Discard()
	}

	if opts.Channel != nil {
		d.channel = d.log.Channel(*opts.Channel).With("instance", d.instance)
	}

	return d, nil
}

// Middleware returns a constructor that wraps handlers in a Dispatcher.
// Options are checked once, here.
func Middleware(opts Options) (func(http.Handler) http.Handler, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		d, err := New(next, opts)
		if err != nil {
			panic(fmt.Sprintf("errorlog: %v", err))
		}
		return d
	}, nil
}

// FromConfig converts the error_log configuration section into Options.
func FromConfig(cfg config.ErrorLogConfig, log *logger.Logger) Options {
	opts := Options{
		Path:   cfg.Path,
		Prefix: cfg.Prefix,
		Keep:   cfg.Keep,
		Ignore: cfg.Ignore.Set().List(),
		Logger: log,
	}

	if name, ok := cfg.ChannelName(); ok {
		opts.Channel = &name
	}

	return opts
}

// Instance returns the id that distinguishes this dispatcher in log output.
func (d *Dispatcher) Instance() string {
	return d.instance
}

// Path returns the request path the view is served at.
func (d *Dispatcher) Path() string {
	return d.path
}

// ViewPath returns the view location as seen by clients: the prefix
// followed by the path. A router mounting the dispatcher under its prefix
// must strip the prefix before calling ServeHTTP.
func (d *Dispatcher) ViewPath() string {
	return d.viewPath
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == d.path {
		d.serveView(w, r)
		return
	}

	id := d.nextID()
	entryURL := EntryURL(d.viewPath, id)
	r = r.WithContext(withEntry(r.Context(), d.viewPath, id, entryURL))

	defer func() {
		v := recover()
		if v == nil {
			return
		}

		d.handle(r, id, v, debug.Stack())
		panic(v)
	}()

	d.next.ServeHTTP(w, r)
}

// handle records v unless its category is ignored. A panic raised while
// recording is logged and dropped so the caller re-raises v unchanged.
func (d *Dispatcher) handle(r *http.Request, id string, v any, stack []byte) {
	defer func() {
		if rv := recover(); rv != nil {
			d.log.Error("Failed to record fault", "entry", id, "panic", fmt.Sprint(rv))
		}
	}()

	if d.ignore.Matches(v) {
		d.metrics.ignored.WithLabelValues(string(errors.Categorize(v))).Inc()
		return
	}

	d.capture(r, id, v, stack)
}

func (d *Dispatcher) capture(r *http.Request, id string, v any, stack []byte) {
	c := d.recorder.build(id, v, stack, NewEnviron(r))

	n := d.insert(c.record)

	d.metrics.captured.WithLabelValues(string(c.category)).Inc()
	d.metrics.entries.Set(float64(n))

	if d.channel != nil {
		d.channel.LogFaultCaptured(id, string(c.category), c.message, c.rendering)
		return
	}

	if w := DiagnosticsFromContext(r.Context()); w != nil {
		_, _ = io.WriteString(w, c.rendering+"\n")
	}
}

func (d *Dispatcher) serveView(w http.ResponseWriter, r *http.Request) {
	params := parseQuery(r.URL.RawQuery)

	var body []byte
	if id, ok := queryValue(params, "entry"); ok {
		rec, found := d.lookup(id)
		view := viewEntry
		if !found {
			view = viewExpired
		}
		d.metrics.views.WithLabelValues(view).Inc()
		d.log.LogViewServed(view, id, found)
		body = RenderEntry(d.viewPath, rec)
	} else {
		d.metrics.views.WithLabelValues(viewIndex).Inc()
		d.log.LogViewServed(viewIndex, "", true)
		body = RenderIndex(constructURL(r, d.prefix), d.snapshot())
	}

	h := w.Header()
	h.Set("Content-Type", "text/html")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

func (d *Dispatcher) nextID() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := strconv.FormatUint(d.counter, 10)
	d.counter++
	return id
}

func (d *Dispatcher) lookup(id string) (*Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.ring.Lookup(id)
}

func (d *Dispatcher) snapshot() []*Record {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.ring.Snapshot()
}

// insert stores rec and returns the resulting ring length.
func (d *Dispatcher) insert(rec *Record) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ring.Insert(rec)
	return d.ring.Len()
}
