package errorlog

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is a captured fault. It is immutable once created.
type Record struct {
	identifier  string
	description string
	text        string
	time        string
	url         string
}

// NewRecord creates a record. The record text is the rendered trace followed
// by a blank line and the formatted request environment.
func NewRecord(identifier, description, rendering, timestamp, viewURL string, env Environ) *Record {
	return &Record{
		identifier:  identifier,
		description: description,
		text:        rendering + "\n\n" + env.Format(),
		time:        timestamp,
		url:         viewURL,
	}
}

// Identifier returns the entry id the record is looked up by.
func (r *Record) Identifier() string { return r.identifier }

// Description returns the fault category name.
func (r *Record) Description() string { return r.description }

// Text returns the rendered trace and request environment.
func (r *Record) Text() string { return r.text }

// Time returns the human-readable capture time.
func (r *Record) Time() string { return r.time }

// URL returns the path of the record's entry view.
func (r *Record) URL() string { return r.url }

// EntryURL returns the entry view location for id under viewPath.
func EntryURL(viewPath, id string) string {
	return viewPath + "?entry=" + url.QueryEscape(id)
}

// Environ is a snapshot of the request a fault occurred in.
type Environ map[string]string

// NewEnviron captures the request line, connection metadata, headers and
// the error log context entries of r.
func NewEnviron(r *http.Request) Environ {
	env := Environ{
		"method":      r.Method,
		"request_uri": r.RequestURI,
		"path":        r.URL.Path,
		"query":       r.URL.RawQuery,
		"proto":       r.Proto,
		"host":        r.Host,
		"remote_addr": r.RemoteAddr,
		"scheme":      requestScheme(r),
	}

	for name, values := range r.Header {
		env["header."+name] = strings.Join(values, ", ")
	}

	ctx := r.Context()
	if p, ok := PathFromContext(ctx); ok {
		env[pathKey.String()] = p
	}
	if id, ok := EntryIDFromContext(ctx); ok {
		env[entryIDKey.String()] = id
	}

	// Invalid UTF-8 would be rendered by the YAML encoder as !!binary.
	for k, v := range env {
		env[k] = strings.ToValidUTF8(v, "\uFFFD")
	}

	return env
}

// Format renders the environment as YAML with sorted keys.
func (e Environ) Format() string {
	if len(e) == 0 {
		return "{}\n"
	}

	out, err := yaml.Marshal(map[string]string(e))
	if err != nil {
		return fmt.Sprintf("%v\n", map[string]string(e))
	}

	return string(out)
}
