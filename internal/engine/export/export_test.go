package export

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_edunote/internal/store"
)

func testDoc() Document {
	return Document{
		Note: &store.Note{
			Title:     "Go: Channels & Select",
			Content:   "<h2>Basics</h2><p>Channels connect <b>goroutines</b>.</p><ul><li>buffered</li><li>unbuffered</li></ul>",
			Tags:      []string{"go", "concurrency"},
			CreatedAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
			Highlights: []store.Highlight{
				{Text: "connect goroutines", Color: store.ColorGreen},
			},
		},
		Video: Video{Title: "Concurrency talk", URL: "https://youtu.be/dQw4w9WgXcQ"},
		Now:   time.UnixMilli(1700000000123),
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"pdf", PDF, true},
		{"PDF", PDF, true},
		{"txt", Text, true},
		{"md", Markdown, true},
		{"markdown", Markdown, true},
		{"docx", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.ok {
			assert.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.True(t, errors.Is(err, ErrUnknownFormat), tt.in)
		}
	}
	assert.Equal(t, "application/pdf", PDF.ContentType())
	assert.True(t, strings.HasPrefix(Markdown.ContentType(), "text/markdown"))
	assert.True(t, strings.HasPrefix(Text.ContentType(), "text/plain"))
}

func TestFilename(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	tests := []struct{ title, want string }{
		{"Lecture 1", "Lecture_1_1700000000123"},
		{"Go: Channels & Select", "Go__Channels___Select_1700000000123"},
		{"Café", "Caf__1700000000123"},
		{"", "_1700000000123"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title, now); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestRenderText(t *testing.T) {
	body, name, err := Render(Text, testDoc())
	require.NoError(t, err)
	assert.Equal(t, "Go__Channels___Select_1700000000123.txt", name)

	txt := string(body)
	assert.True(t, strings.HasPrefix(txt, "Go: Channels & Select\n"))
	assert.Contains(t, txt, "Video: Concurrency talk")
	assert.Contains(t, txt, "Created: 2026-03-04")
	assert.Contains(t, txt, "Tags: go, concurrency")
	assert.Contains(t, txt, "Channels connect goroutines.")
	assert.Contains(t, txt, "• buffered")
	assert.Contains(t, txt, "- [green] connect goroutines")
	assert.NotContains(t, txt, "<p>")
}

func TestRenderMarkdown(t *testing.T) {
	body, name, err := Render(Markdown, testDoc())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".md"))

	md := string(body)
	assert.True(t, strings.HasPrefix(md, "# Go: Channels & Select\n"))
	assert.Contains(t, md, "[Concurrency talk](https://youtu.be/dQw4w9WgXcQ)")
	assert.Contains(t, md, "## Basics")
	assert.Contains(t, md, "**goroutines**")
	assert.Contains(t, md, "- buffered")
	assert.Contains(t, md, "==connect goroutines== (green)")
	assert.NotContains(t, md, "<ul>")
}

func TestRenderMarkdownPassesPlainContent(t *testing.T) {
	doc := testDoc()
	doc.Note.Content = "# Summary\n\nAlready markdown."
	body, _, err := Render(Markdown, doc)
	require.NoError(t, err)
	assert.Contains(t, string(body), "# Summary\n\nAlready markdown.")
}

func TestRenderPDF(t *testing.T) {
	body, name, err := Render(PDF, testDoc())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	require.True(t, bytes.HasPrefix(body, []byte("%PDF-")))

	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	assert.Equal(t, 1, r.NumPage())

	plain, err := r.GetPlainText()
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = io.Copy(&buf, plain)
	require.NoError(t, err)
	text := buf.String()
	for _, want := range []string{"Channels", "Basics", "goroutines", "Highlights", "Concurrency"} {
		assert.Contains(t, text, want)
	}
}

func TestRenderPDFLongContentPaginates(t *testing.T) {
	doc := testDoc()
	doc.Note.Content = strings.Repeat("A long line of lecture notes that keeps going.\n", 200)
	doc.Note.Highlights = nil
	body, _, err := Render(PDF, doc)
	require.NoError(t, err)

	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	assert.Greater(t, r.NumPage(), 1)
}

func TestRenderUnknownFormat(t *testing.T) {
	_, _, err := Render(Format("docx"), testDoc())
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
