// Package parser extracts titles, tags, and cross references from post and
// snippet source files.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/starford/linkgraph/internal/models"
	"github.com/starford/linkgraph/internal/slug"
)

// DefaultExcludedTags are dropped from every item's tag list.
var DefaultExcludedTags = []string{"personal", "insights"}

// placeholderTag is what an unresolved tag widget leaves behind in exported
// frontmatter.
const placeholderTag = "loading"

var (
	wikilinkRe    = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)
	snippetDestRe = regexp.MustCompile(`^/snippets/([^/)]+)/?$`)
	dashesRe      = regexp.MustCompile(`^-+$`)

	yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)
)

// Result holds the output of parsing one content file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Tags        []string
	References  []string
	DisplayDate string
}

// Parser extracts content metadata with a fixed tag exclusion list.
type Parser struct {
	excluded map[string]struct{}
}

// New returns a Parser that drops the given tags (compared case-insensitively).
func New(excludedTags []string) *Parser {
	ex := make(map[string]struct{}, len(excludedTags))
	for _, t := range excludedTags {
		ex[slug.Fold(strings.TrimSpace(t))] = struct{}{}
	}
	return &Parser{excluded: ex}
}

var defaultParser = New(DefaultExcludedTags)

// Parse extracts metadata using DefaultExcludedTags.
func Parse(data []byte, fallbackTitle string) *Result {
	return defaultParser.Parse(data, fallbackTitle)
}

// Parse extracts title, tags, and references from raw source bytes. It never
// fails: an absent or malformed frontmatter block yields fallbackTitle and
// no tags.
func (p *Parser) Parse(data []byte, fallbackTitle string) *Result {
	fm, body := splitFrontmatter(data)

	title := fallbackTitle
	if t, ok := scalar(fm["title"]); ok && t != "" {
		title = t
	}
	displayDate, _ := scalar(fm["displayDate"])

	refs := extractWikiLinks(data)
	refs = append(refs, extractLineSnippetLinks(body)...)
	refs = append(refs, extractSnippetLinks(body)...)
	refs = dedupe(refs)

	return &Result{
		Frontmatter: fm,
		Body:        string(body),
		Title:       title,
		Tags:        p.extractTags(fm),
		References:  refs,
		DisplayDate: displayDate,
	}
}

// splitFrontmatter decodes a YAML block opened on the very first line and
// closed by a line holding only ---. Anything else leaves the whole input as
// body.
func splitFrontmatter(data []byte) (map[string]any, []byte) {
	if !hasFrontmatterBlock(data) {
		return nil, data
	}
	var fm map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(data), &fm, yamlFormat)
	if err != nil {
		return nil, data
	}
	return fm, body
}

func hasFrontmatterBlock(data []byte) bool {
	lines := strings.Split(string(data), "\n")
	if len(lines) < 2 || strings.TrimSuffix(lines[0], "\r") != "---" {
		return false
	}
	for _, line := range lines[1:] {
		if strings.TrimSuffix(line, "\r") == "---" {
			return true
		}
	}
	return false
}

// extractWikiLinks returns [[Target]] and [[Target|Display]] targets found
// anywhere in the source.
func extractWikiLinks(data []byte) []string {
	matches := wikilinkRe.FindAllSubmatch(data, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		target := strings.TrimSpace(string(m[1]))
		if target == "" {
			continue
		}
		out = append(out, target)
	}
	return out
}

// extractSnippetLinks returns snippet:<slug> for every markdown link into
// /snippets/<slug>/ the CommonMark parser sees, reference-style and
// multi-line links included.
func extractSnippetLinks(body []byte) []string {
	root := goldmark.New().Parser().Parse(text.NewReader(body))

	var out []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok || link.ChildCount() == 0 {
			return ast.WalkContinue, nil
		}
		if m := snippetDestRe.FindSubmatch(link.Destination); m != nil {
			out = append(out, models.SnippetRefPrefix+string(m[1]))
		}
		return ast.WalkContinue, nil
	})
	return out
}

// extractTags reads the frontmatter tags sequence, normalizes each entry, and
// drops filler and excluded values. Duplicates are kept.
func (p *Parser) extractTags(fm map[string]any) []string {
	raw, ok := fm["tags"].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := scalar(item)
		if !ok {
			continue
		}
		tag := strings.TrimSpace(slug.Fold(s))
		if utf8.RuneCountInString(tag) < 2 || dashesRe.MatchString(tag) || tag == placeholderTag {
			continue
		}
		if _, skip := p.excluded[tag]; skip {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// scalar renders a YAML scalar as trimmed text.
func scalar(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(s), true
	default:
		return "", false
	}
}

func dedupe(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
