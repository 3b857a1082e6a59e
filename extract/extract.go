// Package extract turns fetched page markup into structured, validated
// content. Extraction never fails loudly: malformed pages produce the
// sentinel empty content value, which always fails validation, so callers
// must check validity before use.
package extract

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/keyseek/harvest/config"
	"github.com/keyseek/harvest/models"
)

// noiseSelector removes regions that never carry main content, including
// elements whose class/id marks them as advertising.
const noiseSelector = `script, style, noscript, iframe, nav, footer, header, aside, [class*="ad-"], [class*="ads"], [class*="advert"], [id*="ad-"], [id*="ads"], [id*="advert"]`

// mainSelectors is the ordered list of candidates tried for the main
// content region before falling back to <body>.
var mainSelectors = []string{
	"main", "[role=main]", ".content", ".article-content", "#content", "#main",
}

// Extractor converts rendered HTML into ExtractedContent. The markdown
// converter is created once and reused across all pages (goroutine-safe).
type Extractor struct {
	cfg config.ExtractConfig
	md  *markdownConverter
}

// New creates an Extractor for the given configuration.
func New(cfg config.ExtractConfig) *Extractor {
	return &Extractor{cfg: cfg, md: newMarkdownConverter()}
}

// Extract parses the fully-rendered markup and builds structured content:
//
//  1. Strip noise regions (scripts, styles, chrome, ads, comments).
//  2. Select the main content region via the selector chain, body fallback.
//  3. Collapse whitespace and blank lines.
//  4. Title/description via their fallback chains.
//  5. Metadata fields, each independently optional.
//  6. Images and links when enabled.
//  7. Content hash (SHA-256 of text) and word count.
//
// On parse failure it returns the sentinel empty content.
func (e *Extractor) Extract(rawHTML, pageURL string) *models.ExtractedContent {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		slog.Warn("extract: HTML parse failed", "url", pageURL, "error", err)
		return &models.ExtractedContent{}
	}

	title := titleChain(doc)
	description := descriptionChain(doc)
	meta := extractMetadata(doc, pageURL)

	stripNoise(doc)

	mainHTML, text := mainContent(doc)
	text = collapseWhitespace(text)

	// Selector chain came up short: let readability take a shot at the
	// original markup before giving up on the page.
	if len(text) < e.cfg.MinContentLength {
		if article, ok := readabilityFallback(rawHTML, pageURL); ok {
			mainHTML = article.Content
			text = collapseWhitespace(article.TextContent)
			if title == "" {
				title = article.Title
			}
			if description == "" {
				description = article.Excerpt
			}
		}
	}

	content := &models.ExtractedContent{
		URL:         pageURL,
		Title:       title,
		Description: description,
		Text:        text,
		Markdown:    e.toMarkdown(mainHTML, pageURL),
		ContentHash: models.HashText(text),
		WordCount:   models.CountWords(text),
		Metadata:    meta,
		ExtractedAt: time.Now().UTC(),
	}

	// Images and links come from the original markup; noise stripping
	// must not hide them from collection.
	if e.cfg.ExtractImages {
		content.Images = ExtractImages(rawHTML, pageURL)
	}
	if e.cfg.ExtractLinks {
		content.Links = ExtractLinks(rawHTML, pageURL)
	}

	return content
}

// Validate rejects content missing url, title, or text, or whose text is
// shorter than the configured minimum. Sentinel empty content always
// fails.
func (e *Extractor) Validate(c *models.ExtractedContent) bool {
	if c.IsEmpty() {
		return false
	}
	if c.URL == "" || c.Title == "" || c.Text == "" {
		return false
	}
	return len(c.Text) >= e.cfg.MinContentLength
}

// stripNoise removes non-content regions and HTML comments in place.
func stripNoise(doc *goquery.Document) {
	doc.Find(noiseSelector).Remove()
	for _, root := range doc.Nodes {
		removeComments(root)
	}
}

// removeComments walks the node tree dropping comment nodes.
func removeComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			removeComments(c)
		}
		c = next
	}
}

// mainContent tries the candidate selectors in order and returns the first
// match's outer HTML and visible text, falling back to <body>.
func mainContent(doc *goquery.Document) (string, string) {
	root := doc.Get(0)
	for _, selector := range mainSelectors {
		sel, err := cascadia.Parse(selector)
		if err != nil {
			continue
		}
		node := cascadia.Query(root, sel)
		if node == nil {
			continue
		}
		var buf bytes.Buffer
		if err := html.Render(&buf, node); err != nil {
			continue
		}
		region := goquery.NewDocumentFromNode(node)
		if text := strings.TrimSpace(region.Text()); text != "" {
			return buf.String(), text
		}
	}

	body := doc.Find("body")
	bodyHTML, err := goquery.OuterHtml(body)
	if err != nil {
		bodyHTML = ""
	}
	return bodyHTML, strings.TrimSpace(body.Text())
}

// titleChain resolves the page title: Open Graph title, then <title>,
// then the first <h1>, then empty.
func titleChain(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// descriptionChain resolves the page description: meta description, then
// OG description, then Twitter description.
func descriptionChain(doc *goquery.Document) string {
	for _, selector := range []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
	} {
		if v, ok := doc.Find(selector).Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var reInlineSpace = regexp.MustCompile(`[ \t\r\f\v]+`)

// collapseWhitespace normalizes runs of spaces and drops blank lines.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(reInlineSpace.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
