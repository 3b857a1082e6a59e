package serp

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// rawResult is a result node before filtering; the strict SearchResult
// schema is only produced for entries that survive validation, so
// malformed nodes are rejected at the boundary instead of propagating
// empty shapes downstream.
type rawResult struct {
	title   string
	url     string
	snippet string
}

// parseResults extracts raw result entries from a rendered result page
// using the engine's selector rules. Nodes missing a link are skipped.
func parseResults(html string, r Rules) ([]rawResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var out []rawResult
	doc.Find(r.ResultSelector).Each(func(_ int, s *goquery.Selection) {
		link := s.Find(r.LinkSelector).First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		if r.RewriteURL != nil {
			href = r.RewriteURL(href)
		}

		title := strings.TrimSpace(s.Find(r.TitleSelector).First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		if title == "" {
			return
		}

		out = append(out, rawResult{
			title:   title,
			url:     href,
			snippet: strings.TrimSpace(s.Find(r.SnippetSelector).First().Text()),
		})
	})
	return out, nil
}

// keepURL reports whether a result URL survives filtering: it must be
// absolute HTTP(S) and must not point at the engine itself or a blocked
// domain.
func keepURL(raw string, ownDomains, blockedDomains []string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, d := range ownDomains {
		if hostMatches(host, d) {
			return false
		}
	}
	for _, d := range blockedDomains {
		if hostMatches(host, d) {
			return false
		}
	}
	return true
}

// hostMatches reports whether host is domain or one of its subdomains.
func hostMatches(host, domain string) bool {
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
