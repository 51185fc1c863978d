package errorlog

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// queryParam is one key/value pair of a query string.
type queryParam struct {
	Key   string
	Value string
}

// parseQuery splits a raw query string into pairs, keeping order, repeated
// keys and keys without a value.
func parseQuery(raw string) []queryParam {
	if raw == "" {
		return nil
	}

	var params []queryParam
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}

		key, value, _ := strings.Cut(part, "=")
		params = append(params, queryParam{
			Key:   unescapeQuery(key),
			Value: unescapeQuery(value),
		})
	}

	return params
}

func unescapeQuery(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}

	return s
}

// queryValue returns the last value given for key.
func queryValue(params []queryParam, key string) (string, bool) {
	var (
		value string
		found bool
	)

	for _, p := range params {
		if p.Key == key {
			value, found = p.Value, true
		}
	}

	return value, found
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}

	return "http"
}

// constructURL rebuilds the absolute URL of r without its query string.
// The host comes from the Host header, or the server's local address when
// the header is absent, and drops the port when it is the scheme default.
// prefix is the mount point of the service and precedes the request path.
func constructURL(r *http.Request, prefix string) string {
	scheme := requestScheme(r)

	host := r.Host
	if host == "" {
		if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
			host = addr.String()
		} else {
			host = "localhost"
		}
	}

	return scheme + "://" + stripDefaultPort(scheme, host) + prefix + r.URL.Path
}

func stripDefaultPort(scheme, host string) string {
	name, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}

	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(name, ":") {
			return "[" + name + "]"
		}
		return name
	}

	return host
}
