package extract

import (
	"strings"
	"testing"

	"github.com/keyseek/harvest/config"
)

func testExtractor() *Extractor {
	return New(config.ExtractConfig{
		ExtractImages:    true,
		ExtractLinks:     true,
		MinContentLength: 50,
	})
}

const articleHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<title>Sample Article Title</title>
	<meta name="description" content="A short description of the article.">
	<meta name="author" content="Jane Writer">
	<meta property="article:published_time" content="2024-03-15T10:00:00Z">
	<script>window.tracker = "should never appear";</script>
	<style>.hidden { display: none; }</style>
</head>
<body>
	<nav>Home | About | Contact</nav>
	<div class="ad-banner">Buy now! Limited offer!</div>
	<main>
		<h1>Sample Article Title</h1>
		<p>This is the first paragraph of the article body with enough
		text to pass the minimum content length threshold easily.</p>
		<p>A second paragraph continues the discussion with further
		detail and closes out the main content region.</p>
		<img src="/images/photo.jpg" alt="A photo">
		<a href="/related">Related article</a>
	</main>
	<footer>Copyright 2024</footer>
	<!-- build: 1234 -->
</body>
</html>`

func TestExtract_Basics(t *testing.T) {
	e := testExtractor()
	c := e.Extract(articleHTML, "https://example.com/article")

	if c.Title != "Sample Article Title" {
		t.Errorf("title = %q", c.Title)
	}
	if c.Description != "A short description of the article." {
		t.Errorf("description = %q", c.Description)
	}
	if !strings.Contains(c.Text, "first paragraph of the article") {
		t.Errorf("main text missing, got: %q", c.Text)
	}
	if !e.Validate(c) {
		t.Error("article should validate")
	}
}

func TestExtract_StripsScriptsAndChrome(t *testing.T) {
	e := testExtractor()
	c := e.Extract(articleHTML, "https://example.com/article")

	for _, noise := range []string{
		"should never appear", // script body
		"display: none",       // style body
		"Home | About",        // nav
		"Copyright 2024",      // footer
		"Buy now!",            // ad block
		"build: 1234",         // HTML comment
	} {
		if strings.Contains(c.Text, noise) {
			t.Errorf("extracted text contains noise %q", noise)
		}
	}
}

func TestExtract_HashIdempotent(t *testing.T) {
	e := testExtractor()
	c1 := e.Extract(articleHTML, "https://example.com/article")
	c2 := e.Extract(articleHTML, "https://example.com/article")

	if c1.ContentHash == "" {
		t.Fatal("content hash is empty")
	}
	if c1.ContentHash != c2.ContentHash {
		t.Errorf("same input produced different hashes: %s vs %s", c1.ContentHash, c2.ContentHash)
	}
}

func TestExtract_WordCount(t *testing.T) {
	e := testExtractor()
	c := e.Extract(articleHTML, "https://example.com/article")

	if c.WordCount == 0 {
		t.Error("word count should be non-zero")
	}
	if want := len(strings.Fields(c.Text)); c.WordCount != want {
		t.Errorf("word count = %d, want %d", c.WordCount, want)
	}
}

func TestExtract_TitleFallbackChain(t *testing.T) {
	e := testExtractor()

	og := `<html><head><meta property="og:title" content="OG Title"><title>Tag Title</title></head><body><h1>Heading</h1></body></html>`
	if c := e.Extract(og, "https://example.com"); c.Title != "OG Title" {
		t.Errorf("og:title should win, got %q", c.Title)
	}

	tag := `<html><head><title>Tag Title</title></head><body><h1>Heading</h1></body></html>`
	if c := e.Extract(tag, "https://example.com"); c.Title != "Tag Title" {
		t.Errorf("<title> should be second, got %q", c.Title)
	}

	h1 := `<html><head></head><body><h1>Heading</h1></body></html>`
	if c := e.Extract(h1, "https://example.com"); c.Title != "Heading" {
		t.Errorf("<h1> should be last resort, got %q", c.Title)
	}
}

func TestExtract_BodyFallbackWithoutMain(t *testing.T) {
	e := testExtractor()
	page := `<html><head><title>No Main</title></head><body>
		<p>Content that lives directly in the body without any main
		region or content class wrapper around it at all.</p>
	</body></html>`

	c := e.Extract(page, "https://example.com")
	if !strings.Contains(c.Text, "directly in the body") {
		t.Errorf("body fallback failed, text = %q", c.Text)
	}
}

func TestExtract_MalformedHTMLYieldsSentinel(t *testing.T) {
	e := testExtractor()
	c := e.Extract("", "https://example.com")

	if e.Validate(c) {
		t.Error("empty page must not validate")
	}
}

func TestExtract_Metadata(t *testing.T) {
	e := testExtractor()
	c := e.Extract(articleHTML, "https://example.com/article")

	if c.Metadata.Domain != "example.com" {
		t.Errorf("domain = %q", c.Metadata.Domain)
	}
	if c.Metadata.Language != "en" {
		t.Errorf("language = %q", c.Metadata.Language)
	}
	if c.Metadata.Author != "Jane Writer" {
		t.Errorf("author = %q", c.Metadata.Author)
	}
	if c.Metadata.PublishedDate != "2024-03-15T10:00:00Z" {
		t.Errorf("publishedDate = %q", c.Metadata.PublishedDate)
	}
}

func TestExtract_MetadataUnknownLanguage(t *testing.T) {
	e := testExtractor()
	page := `<html><head><title>t</title></head><body><main><p>Some content text that is long enough for validation purposes here.</p></main></body></html>`

	c := e.Extract(page, "https://example.com")
	if c.Metadata.Language != "unknown" {
		t.Errorf("language = %q, want unknown", c.Metadata.Language)
	}
}

func TestExtract_ImagesAndLinks(t *testing.T) {
	e := testExtractor()
	c := e.Extract(articleHTML, "https://example.com/article")

	if len(c.Images) != 1 {
		t.Fatalf("got %d images, want 1", len(c.Images))
	}
	if c.Images[0].Src != "https://example.com/images/photo.jpg" {
		t.Errorf("image URL = %q, should be absolute", c.Images[0].Src)
	}
	if c.Images[0].Alt != "A photo" {
		t.Errorf("image alt = %q", c.Images[0].Alt)
	}

	found := false
	for _, l := range c.Links {
		if l.URL == "https://example.com/related" {
			found = true
		}
	}
	if !found {
		t.Errorf("resolved relative link missing, links = %+v", c.Links)
	}
}

func TestExtract_TogglesOff(t *testing.T) {
	e := New(config.ExtractConfig{MinContentLength: 50})
	c := e.Extract(articleHTML, "https://example.com/article")

	if len(c.Images) != 0 || len(c.Links) != 0 {
		t.Error("images/links should be skipped when disabled")
	}
}

func TestExtract_MarkdownRendition(t *testing.T) {
	e := testExtractor()
	c := e.Extract(articleHTML, "https://example.com/article")

	if !strings.Contains(c.Markdown, "# Sample Article Title") {
		t.Errorf("markdown missing heading, got: %q", c.Markdown)
	}
}

func TestValidate_MinLength(t *testing.T) {
	e := testExtractor()
	page := `<html><head><title>Short</title></head><body><main><p>too short</p></main></body></html>`

	c := e.Extract(page, "https://example.com")
	if e.Validate(c) {
		t.Error("content below the minimum length must not validate")
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	e := testExtractor()
	base := e.Extract(articleHTML, "https://example.com/article")
	if !e.Validate(base) {
		t.Fatal("baseline content should validate")
	}

	c := *base
	c.URL = ""
	if e.Validate(&c) {
		t.Error("missing url must not validate")
	}

	c = *base
	c.Title = ""
	if e.Validate(&c) {
		t.Error("missing title must not validate")
	}

	c = *base
	c.Text = ""
	if e.Validate(&c) {
		t.Error("missing text must not validate")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := "  first   line \n\n\n  second\tline  \n   \n third"
	want := "first line\nsecond line\nthird"
	if got := collapseWhitespace(in); got != want {
		t.Errorf("collapseWhitespace = %q, want %q", got, want)
	}
}
