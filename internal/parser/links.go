package parser

import (
	"regexp"
	"strings"

	"github.com/starford/linkgraph/internal/models"
)

var inlineSnippetLinkRe = regexp.MustCompile(`\[[^\]]+\]\(/snippets/([^/)]+)/?\)`)

// extractLineSnippetLinks scans the body line by line for inline
// [text](/snippets/<slug>/) links. It finds links that the CommonMark parser
// leaves inside raw HTML or JSX blocks, and destinations it rejects such as
// ones containing spaces. Fenced code, indented code and inline code spans
// are skipped.
func extractLineSnippetLinks(body []byte) []string {
	var (
		out          []string
		inFence      bool
		activeFence  string
		prevBlank    = true
		inHTML       bool
		inIndentCode bool
	)
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)

		if marker := fenceMarker(trimmed); marker != "" {
			inFence, activeFence = toggleFence(inFence, activeFence, marker)
			prevBlank, inIndentCode = false, false
			continue
		}
		if inFence {
			continue
		}
		if trimmed == "" {
			prevBlank, inHTML, inIndentCode = true, false, false
			continue
		}

		// Indented code cannot interrupt a paragraph and does not exist
		// inside an HTML block.
		indented := strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")
		if indented && !inHTML && (prevBlank || inIndentCode) {
			inIndentCode, prevBlank = true, false
			continue
		}
		inIndentCode = false
		if prevBlank && strings.HasPrefix(trimmed, "<") {
			inHTML = true
		}
		prevBlank = false

		for _, m := range inlineSnippetLinkRe.FindAllStringSubmatch(stripCodeSpans(line), -1) {
			out = append(out, models.SnippetRefPrefix+m[1])
		}
	}
	return out
}

func fenceMarker(trimmed string) string {
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return "```"
	case strings.HasPrefix(trimmed, "~~~"):
		return "~~~"
	default:
		return ""
	}
}

func toggleFence(inFence bool, active, marker string) (bool, string) {
	if !inFence {
		return true, marker
	}
	if active == marker {
		return false, ""
	}
	return true, active
}

// stripCodeSpans removes `code` spans, delimiters included. An unclosed run
// of backticks is kept as text.
func stripCodeSpans(s string) string {
	if !strings.Contains(s, "`") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '`' {
			b.WriteByte(s[i])
			i++
			continue
		}
		run := 1
		for i+run < len(s) && s[i+run] == '`' {
			run++
		}
		marker := s[i : i+run]
		end := strings.Index(s[i+run:], marker)
		if end == -1 {
			b.WriteString(marker)
			i += run
			continue
		}
		i += run + end + run
	}
	return b.String()
}
