// Package export renders a note as a PDF, plain-text or Markdown download.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/anatolykoptev/go_edunote/internal/engine"
	"github.com/anatolykoptev/go_edunote/internal/store"
)

// ErrUnknownFormat is returned for anything other than pdf, txt, md and markdown.
var ErrUnknownFormat = errors.New("export: invalid format, use pdf, txt, or md")

// Format is an export target.
type Format string

const (
	PDF      Format = "pdf"
	Text     Format = "txt"
	Markdown Format = "md"
)

// ParseFormat accepts pdf, txt, md and markdown in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return PDF, nil
	case "txt":
		return Text, nil
	case "md", "markdown":
		return Markdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the response media type.
func (f Format) ContentType() string {
	switch f {
	case PDF:
		return "application/pdf"
	case Markdown:
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// Ext is the file extension without the dot.
func (f Format) Ext() string { return string(f) }

// Video is the source video printed in the export header.
type Video struct {
	Title string
	URL   string
}

// Document is what gets rendered.
type Document struct {
	Note  *store.Note
	Video Video
	// Now stamps the filename; zero means time.Now.
	Now time.Time
}

// Render produces the body and download filename for doc in format f.
func Render(f Format, doc Document) (body []byte, filename string, err error) {
	switch f {
	case PDF:
		body, err = renderPDF(doc)
	case Text:
		body = []byte(renderText(doc))
	case Markdown:
		var md string
		md, err = renderMarkdown(doc)
		body = []byte(md)
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, "", err
	}
	engine.IncrExports()
	return body, Filename(doc.Note.Title, doc.Now) + "." + f.Ext(), nil
}

// Filename replaces every character outside [A-Za-z0-9] with "_" and appends
// "_" plus the unix time in milliseconds.
func Filename(title string, now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	var sb strings.Builder
	for _, r := range title {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
			continue
		}
		sb.WriteByte('_')
	}
	sb.WriteByte('_')
	sb.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	return sb.String()
}

// plainContent returns note content as text, converting HTML when present.
func plainContent(content string) string {
	if engine.LooksLikeHTML(content) {
		return engine.HTMLToText(content)
	}
	return strings.TrimSpace(content)
}

func renderText(doc Document) string {
	n := doc.Note
	var sb strings.Builder
	sb.WriteString(n.Title)
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat("=", 50))
	sb.WriteString("\n\n")
	if doc.Video.Title != "" {
		fmt.Fprintf(&sb, "Video: %s\n", doc.Video.Title)
	}
	if doc.Video.URL != "" {
		fmt.Fprintf(&sb, "URL: %s\n", doc.Video.URL)
	}
	fmt.Fprintf(&sb, "Created: %s\n", n.CreatedAt.Format("2006-01-02"))
	if len(n.Tags) > 0 {
		fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(n.Tags, ", "))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 50))
	sb.WriteString("\n\n")
	sb.WriteString(plainContent(n.Content))
	sb.WriteString("\n")
	if len(n.Highlights) > 0 {
		sb.WriteString("\nHighlights\n")
		for _, h := range n.Highlights {
			fmt.Fprintf(&sb, "- [%s] %s\n", h.Color, h.Text)
		}
	}
	return sb.String()
}

func renderMarkdown(doc Document) (string, error) {
	n := doc.Note
	body := n.Content
	if engine.LooksLikeHTML(body) {
		md, err := engine.HTMLToMarkdown(body)
		if err != nil {
			return "", fmt.Errorf("convert note to markdown: %w", err)
		}
		body = md
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", n.Title)
	if doc.Video.Title != "" {
		if doc.Video.URL != "" {
			fmt.Fprintf(&sb, "**Video:** [%s](%s)\n\n", doc.Video.Title, doc.Video.URL)
		} else {
			fmt.Fprintf(&sb, "**Video:** %s\n\n", doc.Video.Title)
		}
	}
	fmt.Fprintf(&sb, "**Created:** %s\n\n", n.CreatedAt.Format("2006-01-02"))
	if len(n.Tags) > 0 {
		fmt.Fprintf(&sb, "**Tags:** %s\n\n", strings.Join(n.Tags, ", "))
	}
	sb.WriteString("---\n\n")
	sb.WriteString(strings.TrimSpace(body))
	sb.WriteString("\n")
	if len(n.Highlights) > 0 {
		sb.WriteString("\n## Highlights\n\n")
		for _, h := range n.Highlights {
			fmt.Fprintf(&sb, "- ==%s== (%s)\n", h.Text, h.Color)
		}
	}
	return sb.String(), nil
}
