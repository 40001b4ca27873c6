package services

import (
	"strings"
	"testing"
)

func TestCleanTextDropsShortSentences(t *testing.T) {
	got := CleanText("Hi there. We build outbound sales tooling for small teams. OK.")
	if strings.Contains(got, "Hi there") {
		t.Fatalf("two-word sentence kept: %q", got)
	}
	if !strings.Contains(got, "We build outbound sales tooling for small teams") {
		t.Fatalf("real sentence dropped: %q", got)
	}
}

func TestCleanTextRemovesCodeBlocks(t *testing.T) {
	raw := "Our product helps you ship faster. ```js\nconst x = 1;\n``` Pricing starts at ten dollars per month."
	got := CleanText(raw)
	if strings.Contains(got, "const") || strings.Contains(got, "```") {
		t.Fatalf("code block survived: %q", got)
	}
	if !strings.Contains(got, "Pricing starts at ten dollars per month") {
		t.Fatalf("prose after code block dropped: %q", got)
	}
}

func TestCleanTextRemovesTemplateSyntaxAndURLs(t *testing.T) {
	raw := "Visit us at https://example.com/pricing today. Welcome {{ user.name }} to the best analytics platform around."
	got := CleanText(raw)
	if strings.Contains(got, "https://") || strings.Contains(got, "{{") {
		t.Fatalf("template syntax or url survived: %q", got)
	}
	if !strings.Contains(got, "analytics platform") {
		t.Fatalf("surrounding prose dropped: %q", got)
	}
}

func TestCleanTextStripsHTMLAndScripts(t *testing.T) {
	raw := `<html><head><style>body { color: red; }</style></head><body>
<script>var tracker = init();</script>
<p>We help recruiting agencies automate their candidate outreach pipeline.</p>
</body></html>`
	got := CleanText(raw)
	if strings.Contains(got, "tracker") || strings.Contains(got, "color") {
		t.Fatalf("script or style body survived: %q", got)
	}
	if !strings.Contains(got, "automate their candidate outreach pipeline") {
		t.Fatalf("visible text dropped: %q", got)
	}
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	got := CleanText("We   make\n\n\tdeveloper tools for data teams everywhere.")
	if strings.Contains(got, "  ") || strings.Contains(got, "\n") {
		t.Fatalf("whitespace not collapsed: %q", got)
	}
}

func TestCleanTextEmptyInput(t *testing.T) {
	if got := CleanText(""); got != "" {
		t.Fatalf("CleanText(\"\") = %q, want empty", got)
	}
	if got := CleanText("!!! ??? ..."); got != "" {
		t.Fatalf("symbol-only input = %q, want empty", got)
	}
}

func TestCleanPagesPreservesSliceShape(t *testing.T) {
	pages := []string{
		"Our platform connects founders with early customers quickly.",
		"",
		"Short one.",
	}
	got := CleanPages(pages)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0] == "" {
		t.Fatal("first page cleaned to empty")
	}
	if got[1] != "" {
		t.Fatalf("empty page became %q", got[1])
	}
}
