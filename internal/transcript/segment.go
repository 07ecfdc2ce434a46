package transcript

import (
	"fmt"
	"strings"
)

// Segment is a contiguous time-bounded span of the source transcript.
// Segments are created in file order during parsing and mutated in place by
// later stages: tokens, translation, archival reference, and card id each
// have exactly one writer.
type Segment struct {
	Start      float64
	End        float64
	Text       string
	Tokens     []Token
	Translated string
	AudioRef   string
	CardID     string
}

// NewSegment validates and builds a segment. Start must be strictly before
// end and the text must be non-empty.
func NewSegment(start, end float64, text string) (*Segment, error) {
	if start >= end {
		return nil, fmt.Errorf("segment start %.3f must be before end %.3f", start, end)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("segment text cannot be empty")
	}
	return &Segment{Start: start, End: end, Text: text}, nil
}

// Duration returns the segment length in seconds.
func (s *Segment) Duration() float64 {
	return s.End - s.Start
}

// AddTokens appends tokens in order, suppressing any whose surface already
// appears in the segment. The first occurrence keeps its base form and
// metadata.
func (s *Segment) AddTokens(tokens ...Token) {
	seen := make(map[string]struct{}, len(s.Tokens)+len(tokens))
	for _, existing := range s.Tokens {
		seen[existing.Surface] = struct{}{}
	}
	for _, token := range tokens {
		if _, dup := seen[token.Surface]; dup {
			continue
		}
		seen[token.Surface] = struct{}{}
		s.Tokens = append(s.Tokens, token)
	}
}

// NewTokenCount returns the number of tokens still lacking a card id.
func (s *Segment) NewTokenCount() int {
	count := 0
	for _, token := range s.Tokens {
		if token.CardID == "" {
			count++
		}
	}
	return count
}
