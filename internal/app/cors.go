package app

import (
	"net/url"
	"strings"
)

// originAllowed reports whether the request origin matches any of the
// configured patterns. A pattern is compared against the origin's
// "host[:port]" part and may start with "*." to cover subdomains or end
// with ":*" to cover any port.
func originAllowed(patterns []string, origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}

	for _, p := range patterns {
		switch {
		case p == host:
			return true
		case strings.HasPrefix(p, "*.") && strings.HasSuffix(host, p[1:]):
			return true
		case strings.HasSuffix(p, ":*") && strings.HasPrefix(host, p[:len(p)-1]):
			return true
		}
	}
	return false
}
