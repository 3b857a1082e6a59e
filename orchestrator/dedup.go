package orchestrator

import (
	"net/url"
	"strings"
)

// Tracking parameters stripped during URL normalization, plus any key
// with a "utm_" prefix.
var trackingParams = map[string]struct{}{
	"gclid":   {},
	"fbclid":  {},
	"msclkid": {},
	"igshid":  {},
	"ref":     {},
	"ref_src": {},
}

// NormalizeURL canonicalizes a URL for dedup: lowercase scheme and
// host, default ports and fragments dropped, tracking query parameters
// removed, trailing slash stripped on non-root paths. Two URLs that
// normalize identically are treated as the same document.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !isDefaultPort(u.Scheme, port) {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if _, drop := trackingParams[key]; drop || strings.HasPrefix(key, "utm_") {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}

	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

func isDefaultPort(scheme, port string) bool {
	switch scheme {
	case "http":
		return port == "80"
	case "https":
		return port == "443"
	}
	return false
}

// dedupSet tracks normalized URLs across the whole job so each
// document is fetched at most once regardless of how many engines or
// keywords surfaced it.
type dedupSet struct {
	seen map[string]struct{}
}

func newDedupSet() *dedupSet {
	return &dedupSet{seen: make(map[string]struct{})}
}

// add reports whether the URL is new. Unparseable URLs are never new.
func (s *dedupSet) add(rawURL string) (string, bool) {
	norm, err := NormalizeURL(rawURL)
	if err != nil || norm == "" {
		return "", false
	}
	if _, ok := s.seen[norm]; ok {
		return norm, false
	}
	s.seen[norm] = struct{}{}
	return norm, true
}
