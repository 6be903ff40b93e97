package parsers

import (
	"regexp"
	"strings"
)

var citationLine = regexp.MustCompile(`\[\d+\][ \t]+[^\n]*`)

// ExtractCitations returns every "[n] source" fragment in order of
// appearance, each running to the end of its line.
func ExtractCitations(text string) []string {
	matches := citationLine.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// WithReferences appends a References block listing the citations found in
// text. Text without citations is returned unchanged.
func WithReferences(text string) string {
	cites := ExtractCitations(text)
	if len(cites) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(text, "\n"))
	b.WriteString("\n\nReferences:\n")
	b.WriteString(strings.Join(cites, "\n"))
	return b.String()
}
