// Package ingest prepares raw document files for chunking and
// embedding. Markdown and HTML inputs are reduced to plain text so the
// retrieval index never scores formatting noise.
package ingest

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"
)

// Content types the pipeline understands. Anything else is treated as
// plain text.
const (
	TypePlainText = "text/plain"
	TypeMarkdown  = "text/markdown"
	TypeHTML      = "text/html"
)

// extensionTypes maps file extensions to content types.
var extensionTypes = map[string]string{
	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
	".html":     TypeHTML,
	".htm":      TypeHTML,
	".txt":      TypePlainText,
	".text":     TypePlainText,
	".log":      TypePlainText,
	".csv":      TypePlainText,
	".yaml":     TypePlainText,
	".yml":      TypePlainText,
	".json":     TypePlainText,
}

// Detect returns the content type for a filename based on its
// extension, defaulting to plain text.
func Detect(filename string) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return TypePlainText
}

// Normalize reduces content of the given type to plain text. Plain text
// passes through with whitespace tidied.
func Normalize(content, contentType string) string {
	switch contentType {
	case TypeMarkdown:
		content = stripMarkdown(content)
	case TypeHTML:
		content = stripHTML(content)
	}
	return collapseWhitespace(content)
}

// Title derives a document title: a markdown H1 or HTML <title> when
// present, otherwise the filename cleaned up for display.
func Title(content, contentType, filename string) string {
	switch contentType {
	case TypeMarkdown:
		for _, line := range strings.Split(content, "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "# ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "#"))
			}
		}
	case TypeHTML:
		if m := titleTag.FindStringSubmatch(content); len(m) > 1 {
			if t := strings.TrimSpace(html.UnescapeString(m[1])); t != "" {
				return t
			}
		}
	}
	return filenameTitle(filename)
}

// filenameTitle turns a filename into a readable title.
func filenameTitle(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

var (
	mdCodeBlock  = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode = regexp.MustCompile("`[^`]+`")
	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote = regexp.MustCompile(`(?m)^>\s*`)
	mdRule       = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
)

// stripMarkdown removes common markdown formatting, keeping the text.
func stripMarkdown(content string) string {
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	return content
}

var (
	titleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockBoundary = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	anyTag        = regexp.MustCompile(`<[^>]+>`)
)

// stripHTML removes tags and non-content sections, keeping readable
// text with block boundaries as newlines.
func stripHTML(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = htmlComment.ReplaceAllString(content, "")
	content = blockBoundary.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}

var (
	spaceRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// collapseWhitespace tidies runs of spaces and blank lines.
func collapseWhitespace(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	text = newlineRun.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
