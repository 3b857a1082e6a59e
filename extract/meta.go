package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/keyseek/harvest/models"
)

// extractMetadata collects the optional metadata fields. Each field is
// resolved independently; a missing one never affects the others.
func extractMetadata(doc *goquery.Document, pageURL string) models.ContentMetadata {
	meta := models.ContentMetadata{
		Domain:   domainOf(pageURL),
		Language: languageOf(doc),
	}

	if author, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok {
		meta.Author = strings.TrimSpace(author)
	}

	meta.PublishedDate = publishedDateOf(doc)

	if kw, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				meta.Keywords = append(meta.Keywords, k)
			}
		}
	}

	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		meta.CanonicalURL = resolveURL(pageURL, canonical)
	}

	if robots, ok := doc.Find(`meta[name="robots"]`).Attr("content"); ok {
		meta.RobotsDirective = strings.TrimSpace(robots)
	}

	return meta
}

// domainOf returns the lowercased host of the page URL.
func domainOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// languageOf resolves the document language: html[lang], then the
// content-language meta, then "unknown".
func languageOf(doc *goquery.Document) string {
	if lang, ok := doc.Find("html").Attr("lang"); ok && strings.TrimSpace(lang) != "" {
		return strings.TrimSpace(lang)
	}
	if lang, ok := doc.Find(`meta[http-equiv="content-language"]`).Attr("content"); ok && strings.TrimSpace(lang) != "" {
		return strings.TrimSpace(lang)
	}
	return "unknown"
}

// publishedDateOf tries the article meta tag, then any <time datetime>.
func publishedDateOf(doc *goquery.Document) string {
	if d, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok && d != "" {
		return strings.TrimSpace(d)
	}
	if d, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		return strings.TrimSpace(d)
	}
	return ""
}

// resolveURL resolves a possibly-relative reference against the page URL.
func resolveURL(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	resolved, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return resolved.String()
}
