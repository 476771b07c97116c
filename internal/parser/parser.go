// Package parser reads and writes the markdown note file format: a body whose
// first "# " line is the title, followed by an optional trailing tag comment
// of the form "<!-- Tags: Work, Screenshot -->".
package parser

import (
	"regexp"
	"strings"

	"github.com/starford/noor/internal/models"
)

var tagCommentRe = regexp.MustCompile(`<!-- Tags: (.+) -->`)

// Result holds the output of parsing a note file.
type Result struct {
	Title     string
	Content   string // file text without the trailing tag comment
	Tags      []models.TagType
	WordCount int
}

// Parse extracts the title, tag list and content from raw file bytes.
// fallbackTitle is used when no "# " heading line exists.
func Parse(data []byte, fallbackTitle string) *Result {
	text := string(data)
	content := stripTagComment(text)
	return &Result{
		Title:     Title(content, fallbackTitle),
		Content:   content,
		Tags:      extractTags(text),
		WordCount: models.CountWords(content),
	}
}

// Build renders content plus the tag comment for the given display names.
// No comment is written when names is empty.
func Build(content string, names []string) []byte {
	if len(names) == 0 {
		return []byte(content)
	}
	return []byte(content + "\n<!-- Tags: " + strings.Join(names, ", ") + " -->\n")
}

// Title returns the text of the first "# " line, otherwise fallback.
func Title(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return fallback
}

// extractTags parses the first tag comment. Names that do not match a tag
// type are dropped; duplicates are collapsed.
func extractTags(text string) []models.TagType {
	m := tagCommentRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	seen := make(map[models.TagType]struct{})
	var out []models.TagType
	for _, name := range strings.Split(m[1], ",") {
		t, ok := models.ParseTagType(name)
		if !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// stripTagComment removes a tag comment that ends the file, together with
// the newline Build puts in front of it.
func stripTagComment(text string) string {
	locs := tagCommentRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	last := locs[len(locs)-1]
	if strings.TrimSpace(text[last[1]:]) != "" {
		return text
	}
	start := last[0]
	if start > 0 && text[start-1] == '\n' {
		start--
	}
	return text[:start]
}
