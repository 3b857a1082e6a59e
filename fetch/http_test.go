package fetch

import (
	"strings"
	"testing"
)

func fullPage() string {
	para := strings.Repeat("A sentence of ordinary static page content. ", 20)
	return `<html><head><title>Static</title></head><body><article><p>` + para + `</p></article></body></html>`
}

func TestNeedsBrowser_StaticPage(t *testing.T) {
	if needsBrowser([]byte(fullPage())) {
		t.Error("text-rich static page should not escalate")
	}
}

func TestNeedsBrowser_SPAShell(t *testing.T) {
	shell := `<html><head><script src="/bundle.js"></script></head><body><div id="root"></div></body></html>`
	if !needsBrowser([]byte(shell)) {
		t.Error("SPA shell should escalate")
	}
}

func TestNeedsBrowser_SparseText(t *testing.T) {
	sparse := `<html><body><p>loading</p></body></html>`
	if !needsBrowser([]byte(sparse)) {
		t.Error("near-empty body should escalate")
	}
}

func TestNeedsBrowser_NoscriptWarning(t *testing.T) {
	para := strings.Repeat("Filler text to push total length over the sparse threshold. ", 10)
	page := `<html><body><noscript>Please enable JavaScript to view this site.</noscript><p>` + para + `</p></body></html>`
	if !needsBrowser([]byte(page)) {
		t.Error("noscript JS warning should escalate")
	}
}

func TestVisibleText_SkipsScriptsAndStyles(t *testing.T) {
	page := `<html><head><style>body { color: red }</style></head><body>
		<script>var hidden = "invisible";</script>
		<p>visible words</p>
	</body></html>`

	text := visibleText([]byte(page))
	if !strings.Contains(text, "visible words") {
		t.Errorf("visible text missing: %q", text)
	}
	if strings.Contains(text, "invisible") || strings.Contains(text, "color") {
		t.Errorf("script/style content leaked: %q", text)
	}
}

func TestVisibleText_OnlyBody(t *testing.T) {
	page := `<html><head><title>Head Title</title></head><body><p>body text</p></body></html>`
	text := visibleText([]byte(page))
	if strings.Contains(text, "Head Title") {
		t.Errorf("head content leaked into visible text: %q", text)
	}
}
