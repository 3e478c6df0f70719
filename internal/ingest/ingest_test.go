package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"notes.md", TypeMarkdown},
		{"README.markdown", TypeMarkdown},
		{"page.html", TypeHTML},
		{"page.HTM", TypeHTML},
		{"log.txt", TypePlainText},
		{"data.csv", TypePlainText},
		{"binary.gguf", TypePlainText},
		{"noextension", TypePlainText},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, Detect(tt.filename))
		})
	}
}

func TestNormalize_Markdown(t *testing.T) {
	content := "# Heading\n\nSome **bold** text with a [link](https://example.com).\n\n```go\nfunc hidden() {}\n```\n\n> quoted line\n"

	text := Normalize(content, TypeMarkdown)

	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "Some bold text with a link.")
	assert.Contains(t, text, "quoted line")
	assert.NotContains(t, text, "hidden")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "https://example.com")
}

func TestNormalize_HTML(t *testing.T) {
	content := `<html><head><title>Page</title><style>p{color:red}</style></head>
<body><script>alert(1)</script><p>First paragraph.</p><p>Second &amp; third.</p></body></html>`

	text := Normalize(content, TypeHTML)

	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second & third.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<p>")
}

func TestNormalize_PlainTextCollapsesWhitespace(t *testing.T) {
	text := Normalize("line  one\t\there\n\n\n\n\nline two  \n", TypePlainText)

	assert.Equal(t, "line one here\n\nline two", text)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		contentType string
		filename    string
		expected    string
	}{
		{
			name:        "markdown h1",
			content:     "intro\n# Real Title\nbody",
			contentType: TypeMarkdown,
			filename:    "file.md",
			expected:    "Real Title",
		},
		{
			name:        "html title tag",
			content:     "<html><head><title> Page Title </title></head></html>",
			contentType: TypeHTML,
			filename:    "page.html",
			expected:    "Page Title",
		},
		{
			name:        "markdown without heading falls back",
			content:     "just text",
			contentType: TypeMarkdown,
			filename:    "meeting_notes-2024.md",
			expected:    "meeting notes 2024",
		},
		{
			name:        "plain text uses filename",
			content:     "anything",
			contentType: TypePlainText,
			filename:    "/tmp/grocery-list.txt",
			expected:    "grocery list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Title(tt.content, tt.contentType, tt.filename))
		})
	}
}
