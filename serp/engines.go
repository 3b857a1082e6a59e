package serp

import (
	"net/url"
	"strings"

	"github.com/keyseek/harvest/models"
)

// engineRules holds the selector rules for every supported engine.
// Selectors track the engines' current desktop result markup; when an
// engine changes its markup, only this table needs updating.
var engineRules = map[models.EngineKey]Rules{
	models.EngineGoogle: {
		Key:             models.EngineGoogle,
		SearchURL:       "https://www.google.com/search?q=%s&hl=en",
		ResultSelector:  "div.g, div[data-sokoban-container]",
		TitleSelector:   "h3",
		LinkSelector:    "a[href]",
		SnippetSelector: "div[data-sncf], div.VwiC3b",
		OwnDomains: []string{
			"google.com", "googleusercontent.com", "gstatic.com",
		},
	},
	models.EngineBing: {
		Key:             models.EngineBing,
		SearchURL:       "https://www.bing.com/search?q=%s",
		ResultSelector:  "li.b_algo",
		TitleSelector:   "h2",
		LinkSelector:    "h2 a[href]",
		SnippetSelector: "div.b_caption p",
		OwnDomains: []string{
			"bing.com", "microsoft.com", "msn.com",
		},
	},
	models.EngineDuckDuckGo: {
		Key:             models.EngineDuckDuckGo,
		SearchURL:       "https://duckduckgo.com/?q=%s&ia=web",
		ResultSelector:  "article[data-testid=result]",
		TitleSelector:   "a[data-testid=result-title-a]",
		LinkSelector:    "a[data-testid=result-title-a]",
		SnippetSelector: "div[data-result=snippet]",
		OwnDomains:      []string{"duckduckgo.com"},
		RewriteURL:      unwrapDuckDuckGo,
	},
	models.EngineYahoo: {
		Key:             models.EngineYahoo,
		SearchURL:       "https://search.yahoo.com/search?p=%s",
		ResultSelector:  "div.algo",
		TitleSelector:   "h3.title",
		LinkSelector:    "h3.title a[href]",
		SnippetSelector: "div.compText p",
		OwnDomains: []string{
			"yahoo.com", "yimg.com", "yahoo.net",
		},
	},
	models.EngineBrave: {
		Key:             models.EngineBrave,
		SearchURL:       "https://search.brave.com/search?q=%s",
		ResultSelector:  "div.snippet[data-type=web]",
		TitleSelector:   "div.title",
		LinkSelector:    "a.heading-serpresult, a[href]",
		SnippetSelector: "div.snippet-description",
		OwnDomains:      []string{"brave.com"},
	},
}

// RulesFor exposes the rules table for tests and diagnostics.
func RulesFor(key models.EngineKey) (Rules, bool) {
	r, ok := engineRules[key]
	return r, ok
}

// unwrapDuckDuckGo decodes DuckDuckGo's /l/?uddg= redirect wrapper into
// the target URL. Non-wrapped URLs pass through unchanged.
func unwrapDuckDuckGo(raw string) string {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !strings.HasSuffix(u.Hostname(), "duckduckgo.com") || !strings.HasPrefix(u.Path, "/l/") {
		return raw
	}
	target := u.Query().Get("uddg")
	if target == "" {
		return raw
	}
	return target
}
