package content

import (
	"html"
	"regexp"
	"strings"
)

var (
	blockHTMLPattern  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|ul|ol|li|table|blockquote|pre|figure|br)[\s/>]`)
	urlPattern        = regexp.MustCompile(`https?://[^\s<>"']+`)
	paragraphSplitter = regexp.MustCompile(`\n[ \t]*\n+`)
)

// FormatHTML converts plain generated text into HTML paragraphs. Blank-line
// separated blocks become <p> elements, single newlines become <br>, and bare
// URLs become links. Text that already carries block-level HTML is returned
// unchanged.
func FormatHTML(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if blockHTMLPattern.MatchString(text) {
		return text
	}
	normalized := strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	blocks := paragraphSplitter.Split(normalized, -1)
	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			lines[i] = formatLine(strings.TrimSpace(line))
		}
		paragraphs = append(paragraphs, "<p>"+strings.Join(lines, "<br>\n")+"</p>")
	}
	return strings.Join(paragraphs, "\n")
}

// formatLine escapes line and wraps each bare URL in an anchor. Trailing
// punctuation stays outside the link.
func formatLine(line string) string {
	var b strings.Builder
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(line, -1) {
		b.WriteString(html.EscapeString(line[last:loc[0]]))
		raw := line[loc[0]:loc[1]]
		link := strings.TrimRight(raw, ".,;:!?)")
		escaped := html.EscapeString(link)
		b.WriteString(`<a href="` + escaped + `" target="_blank">` + escaped + `</a>`)
		b.WriteString(html.EscapeString(raw[len(link):]))
		last = loc[1]
	}
	b.WriteString(html.EscapeString(line[last:]))
	return b.String()
}
