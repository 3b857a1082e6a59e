package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/keyseek/harvest/models"
)

// ExtractImages parses the raw HTML and returns image elements with their
// URLs resolved to absolute form. data: and blob: URIs are skipped.
func ExtractImages(rawHTML, sourceURL string) []models.Image {
	images := []models.Image{}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return images
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return images
	}

	seen := make(map[string]struct{})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, exists := s.Attr("src")
		if !exists || src == "" {
			return
		}
		resolved, err := base.Parse(src)
		if err != nil {
			return
		}
		if resolved.Scheme == "data" || resolved.Scheme == "blob" {
			return
		}

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}

		alt, _ := s.Attr("alt")
		title, _ := s.Attr("title")
		images = append(images, models.Image{
			Src:    absURL,
			Alt:    strings.TrimSpace(alt),
			Title:  strings.TrimSpace(title),
			Width:  intAttr(s, "width"),
			Height: intAttr(s, "height"),
		})
	})

	return images
}

// ExtractLinks parses the raw HTML and returns hyperlinks with their URLs
// resolved to absolute form. In-page anchors and javascript:/mailto:/tel:
// schemes are skipped.
func ExtractLinks(rawHTML, sourceURL string) []models.Link {
	links := []models.Link{}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return links
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return links
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}

		title, _ := s.Attr("title")
		link := models.Link{
			URL:   absURL,
			Text:  strings.TrimSpace(s.Text()),
			Title: strings.TrimSpace(title),
		}
		if rel, ok := s.Attr("rel"); ok {
			link.Rel = strings.Fields(rel)
		}
		links = append(links, link)
	})

	return links
}

// intAttr parses a numeric attribute, returning 0 when absent or invalid.
func intAttr(s *goquery.Selection, name string) int {
	v, ok := s.Attr(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
