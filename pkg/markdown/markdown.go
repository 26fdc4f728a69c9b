// Package markdown renders README-style markdown to HTML for the preview
// pane.
package markdown

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.TaskList,
		extension.Strikethrough,
		extension.Linkify,
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		gmhtml.WithUnsafe(),
	),
)

// Render converts markdown source to an HTML fragment.
func Render(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(expandImageDimensions(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ![alt](src =WxH "title"); either dimension may be "*" or empty.
var sizedImage = regexp.MustCompile(`!\[([^\]]*)\]\(\s*<?([^\s>)]+)>?\s+=([0-9]*%?|\*)x([0-9]*%?|\*)\s*(?:"([^"]*)")?\s*\)`)

// expandImageDimensions rewrites sized images as raw <img> tags outside of
// fenced code blocks.
func expandImageDimensions(src []byte) []byte {
	if !sizedImage.Match(src) {
		return src
	}

	lines := strings.SplitAfter(string(src), "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		lines[i] = sizedImage.ReplaceAllStringFunc(line, imgTag)
	}
	return []byte(strings.Join(lines, ""))
}

func imgTag(m string) string {
	g := sizedImage.FindStringSubmatch(m)
	var b strings.Builder
	b.WriteString(`<img src="`)
	b.WriteString(html.EscapeString(g[2]))
	b.WriteString(`" alt="`)
	b.WriteString(html.EscapeString(g[1]))
	b.WriteString(`"`)
	if w := g[3]; w != "" && w != "*" {
		b.WriteString(` width="` + w + `"`)
	}
	if h := g[4]; h != "" && h != "*" {
		b.WriteString(` height="` + h + `"`)
	}
	if g[5] != "" {
		b.WriteString(` title="` + html.EscapeString(g[5]) + `"`)
	}
	b.WriteString(" />")
	return b.String()
}

// Pre wraps plain text in a <pre> block, escaping it.
func Pre(text string) string {
	return "<pre>" + html.EscapeString(text) + "</pre>"
}
