// Package errors provides the fault taxonomy used by the error log
// middleware: named fault categories, a structured Fault error type with
// stack capture, and the category lookup applied to recovered panic values.
//
// Key Features:
//   - Categories are plain strings so they can be listed in configuration
//   - Any panic value maps to exactly one Category via Categorize
//   - Fault values carry the stack of the site that created them
//   - CategorySet implements the "ignored faults" membership test
//
// Thread Safety:
// Fault values are not synchronised; build them in one goroutine and treat
// them as read-only once panicked or returned. CategorySet is read-only after
// construction and safe for concurrent use.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Category names a class of faults. Ignore lists, log entries and the
// description of a captured record all use this name.
type Category string

// Well-known categories.
const (
	// Application faults
	CategoryInternal  Category = "InternalError"
	CategoryKey       Category = "KeyError"
	CategoryAttribute Category = "AttributeError"
	CategoryValue     Category = "ValueError"

	// Infrastructure faults
	CategoryConfig   Category = "ConfigError"
	CategoryUpstream Category = "UpstreamError"

	// Categories assigned to values that are not Faults
	CategoryAbortHandler Category = "http.ErrAbortHandler"
	CategoryCanceled     Category = "context.Canceled"
	CategoryDeadline     Category = "context.DeadlineExceeded"
	CategoryRuntime      Category = "runtime.Error"
)

// maxStackDepth bounds the number of frames kept by CaptureStackTrace.
const maxStackDepth = 64

// Categorized is implemented by values that know their own fault category.
type Categorized interface {
	Category() Category
}

// Fault is a structured error intended to be returned or panicked by
// request handlers. Its category drives ignore filtering in the error log.
type Fault struct {
	Kind      Category `json:"category"`
	Message   string   `json:"message"`
	Details   string   `json:"details,omitempty"`
	Timestamp int64    `json:"timestamp"`

	Component string                 `json:"component,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`

	// StackTrace holds program counters from the creation site.
	StackTrace []uintptr `json:"-"`
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f == nil {
		return "<nil>"
	}

	if f.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", f.Kind, f.Message, f.Details)
	}

	return fmt.Sprintf("[%s] %s", f.Kind, f.Message)
}

// Category implements Categorized. A nil Fault is CategoryInternal.
func (f *Fault) Category() Category {
	if f == nil {
		return CategoryInternal
	}

	return f.Kind
}

// Unwrap returns the underlying cause.
func (f *Fault) Unwrap() error {
	if f == nil {
		return nil
	}

	return f.Cause
}

// Is reports whether target is a Fault of the same category.
func (f *Fault) Is(target error) bool {
	if t, ok := target.(*Fault); ok && f != nil && t != nil {
		return f.Kind == t.Kind
	}

	return false
}

// WithContext adds a key/value pair to the fault's context.
func (f *Fault) WithContext(key string, value interface{}) *Fault {
	if f.Context == nil {
		f.Context = make(map[string]interface{}, 4)
	}

	f.Context[key] = value
	return f
}

// WithComponent sets the component the fault originated in.
func (f *Fault) WithComponent(component string) *Fault {
	f.Component = component
	return f
}

// WithCause sets the underlying cause and, when empty, the details.
func (f *Fault) WithCause(err error) *Fault {
	f.Cause = err
	if f.Details == "" && err != nil {
		f.Details = err.Error()
	}

	return f
}

// CaptureStackTrace records the caller's stack, skipping skip frames above
// the caller.
func (f *Fault) CaptureStackTrace(skip int) *Fault {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n > 0 {
		f.StackTrace = pcs[:n]
	}

	return f
}

// FormatStackTrace renders the captured stack one frame per two lines,
// in the layout used by runtime/debug.Stack.
func (f *Fault) FormatStackTrace() string {
	if f == nil || len(f.StackTrace) == 0 {
		return ""
	}

	frames := runtime.CallersFrames(f.StackTrace)
	var b strings.Builder

	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}

	return b.String()
}

// FormatForLogging returns a compact key=value rendering.
func (f *Fault) FormatForLogging() string {
	parts := []string{
		fmt.Sprintf("category=%s", f.Kind),
		fmt.Sprintf("message=%q", f.Message),
	}

	if f.Component != "" {
		parts = append(parts, fmt.Sprintf("component=%s", f.Component))
	}

	keys := make([]string, 0, len(f.Context))
	for k := range f.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, f.Context[k]))
	}

	return strings.Join(parts, " ")
}

// New creates a Fault of the given category and captures the caller's stack.
func New(kind Category, message string) *Fault {
	f := &Fault{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UnixNano(),
	}

	return f.CaptureStackTrace(1)
}

// Newf creates a Fault with a formatted message.
func Newf(kind Category, format string, args ...interface{}) *Fault {
	f := &Fault{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now().UnixNano(),
	}

	return f.CaptureStackTrace(1)
}

// Wrap wraps err in a Fault of the given category.
func Wrap(kind Category, message string, err error) *Fault {
	f := &Fault{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UnixNano(),
	}

	return f.CaptureStackTrace(1).WithCause(err)
}

// ConfigError creates a configuration fault for the named component.
func ConfigError(component, message string) *Fault {
	f := &Fault{
		Kind:      CategoryConfig,
		Message:   fmt.Sprintf("Configuration error in %s: %s", component, message),
		Timestamp: time.Now().UnixNano(),
		Component: component,
	}

	return f.CaptureStackTrace(1)
}

// UpstreamError creates a fault describing a failed upstream target.
func UpstreamError(target string, err error) *Fault {
	f := &Fault{
		Kind:      CategoryUpstream,
		Message:   fmt.Sprintf("Upstream error from %s", target),
		Timestamp: time.Now().UnixNano(),
		Component: "proxy",
	}

	return f.CaptureStackTrace(1).WithCause(err).WithContext("target", target)
}

// Categorize returns the category of a recovered panic value.
//
// Values implementing Categorized report their own category. The sentinels
// http.ErrAbortHandler, context.Canceled and context.DeadlineExceeded map
// to fixed names, runtime errors to CategoryRuntime, and everything else to
// its Go type name as printed by %T.
func Categorize(v any) Category {
	if v == nil {
		return Category("<nil>")
	}

	if c, ok := v.(Categorized); ok {
		return c.Category()
	}

	if err, ok := v.(error); ok {
		switch {
		case stderrors.Is(err, http.ErrAbortHandler):
			return CategoryAbortHandler

		case stderrors.Is(err, context.Canceled):
			return CategoryCanceled

		case stderrors.Is(err, context.DeadlineExceeded):
			return CategoryDeadline
		}

		var rerr runtime.Error
		if stderrors.As(err, &rerr) {
			return CategoryRuntime
		}
	}

	return Category(fmt.Sprintf("%T", v))
}

// Message returns the human-readable message of a recovered panic value.
func Message(v any) string {
	switch t := v.(type) {
	case *Fault:
		if t == nil {
			return "<nil>"
		}
		if t.Details != "" {
			return t.Message + ": " + t.Details
		}
		return t.Message

	case error:
		return t.Error()

	case fmt.Stringer:
		return t.String()

	default:
		return fmt.Sprint(v)
	}
}

// CategorySet is an immutable set of categories.
type CategorySet struct {
	members map[Category]struct{}
}

// NewCategorySet builds a set from the given categories.
func NewCategorySet(categories ...Category) CategorySet {
	members := make(map[Category]struct{}, len(categories))
	for _, c := range categories {
		if c == "" {
			continue
		}
		members[c] = struct{}{}
	}

	return CategorySet{members: members}
}

// ParseCategories builds a set from a whitespace separated list of names.
func ParseCategories(s string) CategorySet {
	fields := strings.Fields(s)
	categories := make([]Category, len(fields))
	for i, f := range fields {
		categories[i] = Category(f)
	}

	return NewCategorySet(categories...)
}

// Contains reports whether c is a member of the set.
func (s CategorySet) Contains(c Category) bool {
	_, ok := s.members[c]
	return ok
}

// Matches reports whether the category of the panic value v is in the set.
func (s CategorySet) Matches(v any) bool {
	if len(s.members) == 0 {
		return false
	}

	return s.Contains(Categorize(v))
}

// Len returns the number of categories in the set.
func (s CategorySet) Len() int {
	return len(s.members)
}

// List returns the members in sorted order.
func (s CategorySet) List() []Category {
	out := make([]Category, 0, len(s.members))
	for c := range s.members {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}
