package transcript

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	openTagPattern    = regexp.MustCompile(`<(\d+)>`)
	literalTagPattern = regexp.MustCompile(`</?\d+>`)
)

// EncodeTagged renders every segment as <i>text</i> with its zero-based
// index, joined by single spaces. The tagged form exists only around the
// translation call and is never persisted. Segment text containing a literal
// numeric tag cannot be encoded losslessly and fails with ErrTagCollision.
func EncodeTagged(t *Transcript) (string, error) {
	parts := make([]string, len(t.Segments))
	for i, segment := range t.Segments {
		if literalTagPattern.MatchString(segment.Text) {
			return "", fmt.Errorf("%w: segment %d contains a literal numeric tag", ErrTagCollision, i)
		}
		parts[i] = fmt.Sprintf("<%d>%s</%d>", i, segment.Text, i)
	}
	return strings.Join(parts, " "), nil
}

// DecodeTagged extracts the tagged spans from translated text and returns
// their contents ordered by tag index, whitespace-trimmed. The translator is
// free to reorder the tagged spans; ordering comes from the indexes alone.
// Every index 0..want-1 must appear exactly once or the decode fails with
// ErrTagMismatch.
func DecodeTagged(tagged string, want int) ([]string, error) {
	type span struct {
		index   int
		content string
	}

	var spans []span
	pos := 0
	for pos < len(tagged) {
		loc := openTagPattern.FindStringSubmatchIndex(tagged[pos:])
		if loc == nil {
			break
		}
		openEnd := pos + loc[1]
		index, err := strconv.Atoi(tagged[pos+loc[2] : pos+loc[3]])
		if err != nil {
			pos = openEnd
			continue
		}
		closing := "</" + strconv.Itoa(index) + ">"
		rel := strings.Index(tagged[openEnd:], closing)
		if rel < 0 {
			// Unpaired opening tag; resume scanning after it.
			pos = openEnd
			continue
		}
		contentEnd := openEnd + rel
		spans = append(spans, span{
			index:   index,
			content: strings.TrimSpace(tagged[openEnd:contentEnd]),
		})
		pos = contentEnd + len(closing)
	}

	if len(spans) != want {
		return nil, fmt.Errorf("%w: decoded %d spans, expected %d", ErrTagMismatch, len(spans), want)
	}
	seen := make([]bool, want)
	for _, s := range spans {
		if s.index < 0 || s.index >= want {
			return nil, fmt.Errorf("%w: index %d out of range 0..%d", ErrTagMismatch, s.index, want-1)
		}
		if seen[s.index] {
			return nil, fmt.Errorf("%w: duplicate index %d", ErrTagMismatch, s.index)
		}
		seen[s.index] = true
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].index < spans[j].index })
	contents := make([]string, want)
	for i, s := range spans {
		contents[i] = s.content
	}
	return contents, nil
}
