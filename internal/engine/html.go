package engine

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

var (
	looksHTMLRe  = regexp.MustCompile(`(?i)<(p|br|div|h[1-6]|ul|ol|li|strong|em|b|i|span|mark|blockquote|pre|code|a)[\s>/]`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
)

// blockSelectors get a trailing newline so paragraphs survive text extraction.
const blockSelectors = "p, div, br, li, h1, h2, h3, h4, h5, h6, blockquote, pre, tr"

// LooksLikeHTML reports whether s contains common rich-text markup.
func LooksLikeHTML(s string) bool {
	return looksHTMLRe.MatchString(s)
}

// HTMLToText converts rich-text note content to plain text, one block per line.
// Plain input is returned trimmed.
func HTMLToText(s string) string {
	if !LooksLikeHTML(s) {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return CleanHTML(s)
	}
	doc.Find("script, style, noscript, iframe").Remove()
	doc.Find("li").Each(func(i int, sel *goquery.Selection) {
		sel.PrependHtml("• ")
	})
	doc.Find(blockSelectors).Each(func(i int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		clean = append(clean, strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " ")))
	}
	out := strings.Join(clean, "\n")
	out = blankLinesRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// HTMLToMarkdown converts rich-text note content to Markdown.
// Content that is already Markdown or plain text passes through.
func HTMLToMarkdown(s string) (string, error) {
	if !LooksLikeHTML(s) {
		return strings.TrimSpace(s), nil
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}
