package errorlog

import (
	"context"
	"io"
	"net/http"
)

// contextKey types the values the error log attaches to request contexts.
type contextKey string

func (k contextKey) String() string {
	return string(k)
}

const (
	pathKey        contextKey = "errorlog.path"
	entryIDKey     contextKey = "errorlog.entryid"
	entryURLKey    contextKey = "errorlog.entryurl"
	diagnosticsKey contextKey = "errorlog.diagnostics"
)

// withEntry attaches the view path and the request's entry id. entryURL is
// where the record will be found if the request faults.
func withEntry(ctx context.Context, path, id, entryURL string) context.Context {
	ctx = context.WithValue(ctx, pathKey, path)
	ctx = context.WithValue(ctx, entryIDKey, id)
	return context.WithValue(ctx, entryURLKey, entryURL)
}

// PathFromContext returns the diagnostic view path of the error log that is
// supervising the request.
func PathFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(pathKey).(string)
	return p, ok
}

// EntryIDFromContext returns the entry id assigned to the request.
func EntryIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(entryIDKey).(string)
	return id, ok
}

// EntryURLFromContext returns the entry view URL the request's fault
// record will have, if it faults.
func EntryURLFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(entryURLKey).(string)
	return u, ok
}

// WithDiagnostics attaches the stream that fault traces are written to when
// no log channel is configured.
func WithDiagnostics(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, diagnosticsKey, w)
}

// DiagnosticsFromContext returns the request's diagnostics stream, or nil.
func DiagnosticsFromContext(ctx context.Context) io.Writer {
	w, _ := ctx.Value(diagnosticsKey).(io.Writer)
	return w
}

// DiagnosticsMiddleware attaches w as the diagnostics stream of every
// request. w is shared by concurrent requests and must tolerate concurrent
// writes (os.Stderr does).
func DiagnosticsMiddleware(w io.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(rw, r.WithContext(WithDiagnostics(r.Context(), w)))
		})
	}
}
