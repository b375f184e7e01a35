// Package render turns chat message text into sanitized, highlighted HTML.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
)

// DefaultStyle is the chroma style used for code blocks.
const DefaultStyle = "github-dark"

var classPattern = regexp.MustCompile(`^[\w\s-]+$`)

// Renderer converts markdown to HTML that is safe to inject into the view.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	style  string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyle selects the chroma style used by Stylesheet.
func WithStyle(name string) Option {
	return func(r *Renderer) { r.style = name }
}

// New creates a Renderer. Fenced code is highlighted by its declared
// language, or a guessed one when none is declared, and left as plain text
// when neither is recognised.
func New(opts ...Option) *Renderer {
	r := &Renderer{style: DefaultStyle}
	for _, o := range opts {
		o(r)
	}

	r.md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(r.style),
				highlighting.WithGuessLanguage(true),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(util.Prioritized(linkTargetTransformer{}, 999)),
		),
	)

	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(classPattern).OnElements("pre", "code", "span", "div")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	r.policy = p

	return r
}

// Markdown renders markdown text to sanitized HTML.
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// Message renders a chat message. Assistant replies are markdown; other
// messages are escaped plain text with line breaks kept.
func (r *Renderer) Message(m canvas.Message) (template.HTML, error) {
	if m.Role == canvas.RoleAssistant {
		return r.Markdown(m.Content)
	}
	escaped := html.EscapeString(m.Content)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br/>")), nil
}

// Stylesheet returns the CSS for highlighted code blocks.
func (r *Renderer) Stylesheet() (string, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(r.style)); err != nil {
		return "", fmt.Errorf("writing stylesheet: %w", err)
	}
	return buf.String(), nil
}

// linkTargetTransformer makes every link open in a new tab.
type linkTargetTransformer struct{}

func (linkTargetTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Link, *ast.AutoLink:
			n.SetAttributeString("target", []byte("_blank"))
			n.SetAttributeString("rel", []byte("noopener noreferrer"))
		}
		return ast.WalkContinue, nil
	})
}
