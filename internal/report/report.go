// Package report renders an analytics document as a standalone HTML
// dashboard. The Markdown summary is converted with goldmark and the full
// document is embedded as JSON for the page scripts.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/ccinsights/internal/behavioral"
)

// DefaultTitle is the page title unless configured otherwise
const DefaultTitle = "Claude Code Usage Insights"

//go:embed templates/dashboard.html.tmpl
var templateFS embed.FS

var dashboardTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html.tmpl"))

// page is the data passed to the dashboard template
type page struct {
	Title       string
	Body        template.HTML
	Data        template.JS
	Fingerprint string
	GeneratedAt string
}

// Renderer turns documents into HTML pages
type Renderer struct {
	Title    string
	markdown goldmark.Markdown
}

// NewRenderer creates a renderer with GitHub-flavored Markdown tables
func NewRenderer() *Renderer {
	return &Renderer{
		Title:    DefaultTitle,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render writes the HTML dashboard for doc to w
func (r *Renderer) Render(w io.Writer, doc *behavioral.Document) error {
	if doc == nil {
		return errors.New("document cannot be nil")
	}

	md, err := (&behavioral.MarkdownExporter{}).Export(doc)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	var body bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &body); err != nil {
		return fmt.Errorf("failed to convert markdown: %w", err)
	}

	// json.Marshal escapes <, > and & so the payload cannot close the script element
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	title := r.Title
	if title == "" {
		title = DefaultTitle
	}
	p := page{
		Title:       title,
		Body:        template.HTML(body.String()),
		Data:        template.JS(data),
		Fingerprint: doc.Meta.Fingerprint,
		GeneratedAt: doc.Meta.GeneratedAt,
	}
	if err := dashboardTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("failed to execute dashboard template: %w", err)
	}
	return nil
}

// RenderHTML returns the dashboard for doc
func (r *Renderer) RenderHTML(doc *behavioral.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
