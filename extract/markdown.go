package extract

import (
	"log/slog"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

type markdownConverter struct {
	conv *converter.Converter
}

// newMarkdownConverter creates a reusable, goroutine-safe converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta,
//     link, input, textarea, and HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin: keeps table structure with minimal cell padding so the
//     indexing collaborator does not pay for column alignment.
func newMarkdownConverter() *markdownConverter {
	return &markdownConverter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// toMarkdown converts the main-content HTML to Markdown. The rendition is
// best-effort; conversion failures leave the Markdown field empty without
// affecting the rest of the extraction.
func (e *Extractor) toMarkdown(mainHTML, sourceURL string) string {
	if mainHTML == "" {
		return ""
	}
	md, err := e.md.conv.ConvertString(mainHTML,
		converter.WithDomain(sourceURL),
	)
	if err != nil {
		slog.Debug("markdown conversion failed", "url", sourceURL, "error", err)
		return ""
	}
	return md
}
