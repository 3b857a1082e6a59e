package extract

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// readabilityFallback runs the Mozilla Readability algorithm on the
// original markup when the selector chain found too little text. It
// reports false when readability also fails to find content, in which
// case the caller keeps the selector-chain result.
func readabilityFallback(rawHTML, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", sourceURL, "error", err)
		return readability.Article{}, false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return readability.Article{}, false
	}

	if strings.TrimSpace(article.TextContent) == "" {
		return readability.Article{}, false
	}
	return article, true
}
