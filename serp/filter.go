package serp

import "github.com/keyseek/harvest/models"

// filterResults applies the URL filters, truncates to maxResults, and
// assigns positions in surviving order.
func filterResults(raw []rawResult, r Rules, blockedDomains []string, maxResults int) []models.SearchResult {
	var results []models.SearchResult
	for _, rr := range raw {
		if !keepURL(rr.url, r.OwnDomains, blockedDomains) {
			continue
		}
		results = append(results, models.SearchResult{
			Title:    rr.title,
			URL:      rr.url,
			Snippet:  rr.snippet,
			Position: len(results) + 1,
			Source:   r.Key,
		})
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return results
}
