package render

import (
	"strings"
	"testing"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
)

func TestMarkdownHighlightsDeclaredLanguage(t *testing.T) {
	r := New()
	out, err := r.Markdown("Here you go:\n\n```go\nfunc main() {}\n```\n")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `class="chroma"`) {
		t.Errorf("expected chroma highlighting, got:\n%s", s)
	}
	if !strings.Contains(s, "func") || !strings.Contains(s, "main") {
		t.Errorf("expected code content, got:\n%s", s)
	}
	if !strings.Contains(s, "<p>Here you go:</p>") {
		t.Errorf("expected paragraph, got:\n%s", s)
	}
}

func TestMarkdownUnknownLanguageIsPlain(t *testing.T) {
	r := New()
	out, err := r.Markdown("```nosuchlang\nhello world\n```\n")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "<pre") || !strings.Contains(s, "hello world") {
		t.Errorf("expected plain code block, got:\n%s", s)
	}
}

func TestMarkdownLinksOpenInNewTab(t *testing.T) {
	r := New()
	out, err := r.Markdown("See [the docs](https://example.com/docs) or [home](/home).")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	s := string(out)
	if strings.Count(s, `target="_blank"`) != 2 {
		t.Errorf("expected both links to target a new tab, got:\n%s", s)
	}
	if !strings.Contains(s, `href="https://example.com/docs"`) {
		t.Errorf("expected href to be kept, got:\n%s", s)
	}
}

func TestMarkdownSanitizes(t *testing.T) {
	r := New()
	out, err := r.Markdown("hi <script>alert(1)</script> [x](javascript:alert(1))")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "<script") {
		t.Errorf("script tag survived:\n%s", s)
	}
	if strings.Contains(s, "javascript:") {
		t.Errorf("javascript link survived:\n%s", s)
	}
}

func TestMessageEscapesUserText(t *testing.T) {
	r := New()
	out, err := r.Message(canvas.Message{Role: canvas.RoleUser, Content: "a < b\n**not bold**"})
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if string(out) != "a &lt; b<br/>**not bold**" {
		t.Errorf("Message() = %q", out)
	}
}

func TestStylesheet(t *testing.T) {
	css, err := New(WithStyle("github")).Stylesheet()
	if err != nil {
		t.Fatalf("Stylesheet: %v", err)
	}
	if !strings.Contains(css, ".chroma") {
		t.Errorf("expected chroma rules, got %q", css)
	}
}
