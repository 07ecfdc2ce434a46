package transcript

import (
	"fmt"
	"strings"
)

// Transcript is the ordered sequence of segments parsed from one recording,
// plus the raw subtitle text they came from. All query methods are pure and
// reflect whatever later stages have attached so far.
type Transcript struct {
	Source   string
	Segments []*Segment
}

// SegmentCount returns the number of segments.
func (t *Transcript) SegmentCount() int {
	return len(t.Segments)
}

// Duration returns the span from the first segment's start to the last
// segment's end, or zero for an empty transcript.
func (t *Transcript) Duration() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End - t.Segments[0].Start
}

// TokenCount returns the total number of tokens across all segments.
func (t *Transcript) TokenCount() int {
	total := 0
	for _, segment := range t.Segments {
		total += len(segment.Tokens)
	}
	return total
}

// NewTokenCount returns the number of tokens still lacking a card id.
func (t *Transcript) NewTokenCount() int {
	total := 0
	for _, segment := range t.Segments {
		total += segment.NewTokenCount()
	}
	return total
}

// ArchivedCount returns the number of segments with an archival reference.
func (t *Transcript) ArchivedCount() int {
	count := 0
	for _, segment := range t.Segments {
		if segment.AudioRef != "" {
			count++
		}
	}
	return count
}

// FullText joins segment source texts with single spaces.
func (t *Transcript) FullText() string {
	parts := make([]string, len(t.Segments))
	for i, segment := range t.Segments {
		parts[i] = segment.Text
	}
	return strings.Join(parts, " ")
}

// TranslatedText joins segment translations with single spaces, falling back
// to the source text for segments not yet translated.
func (t *Transcript) TranslatedText() string {
	parts := make([]string, len(t.Segments))
	for i, segment := range t.Segments {
		if segment.Translated != "" {
			parts[i] = segment.Translated
		} else {
			parts[i] = segment.Text
		}
	}
	return strings.Join(parts, " ")
}

// SetTranslations assigns one translation per segment in order.
func (t *Transcript) SetTranslations(texts []string) error {
	if len(texts) != len(t.Segments) {
		return fmt.Errorf("translation count %d does not match segment count %d", len(texts), len(t.Segments))
	}
	for i, text := range texts {
		t.Segments[i].Translated = text
	}
	return nil
}

// DistinctSurfaces returns every distinct token surface across all segments
// in first-occurrence order.
func (t *Transcript) DistinctSurfaces() []string {
	seen := make(map[string]struct{})
	var surfaces []string
	for _, segment := range t.Segments {
		for _, token := range segment.Tokens {
			if _, dup := seen[token.Surface]; dup {
				continue
			}
			seen[token.Surface] = struct{}{}
			surfaces = append(surfaces, token.Surface)
		}
	}
	return surfaces
}

// AssignCardIDs broadcasts card ids to every token occurrence whose surface
// has an entry in ids. Tokens without an entry are left untouched.
func (t *Transcript) AssignCardIDs(ids map[string]string) {
	for _, segment := range t.Segments {
		for i := range segment.Tokens {
			if id, ok := ids[segment.Tokens[i].Surface]; ok && id != "" {
				segment.Tokens[i].CardID = id
			}
		}
	}
}

// Payload is the serialized transcript persisted with job results.
type Payload struct {
	Blocks      []SegmentPayload `json:"blocks"`
	TotalBlocks int              `json:"total_blocks"`
	TotalAtoms  int              `json:"total_atoms"`
	NewAtoms    int              `json:"new_atoms"`
	Duration    float64          `json:"duration"`
}

// SegmentPayload is one serialized segment.
type SegmentPayload struct {
	StartTime       float64        `json:"start_time"`
	EndTime         float64        `json:"end_time"`
	Value           string         `json:"value"`
	TranslatedValue string         `json:"translated_value,omitempty"`
	AudioURL        string         `json:"audio_url,omitempty"`
	Atoms           []TokenPayload `json:"atoms"`
}

// TokenPayload is one serialized token.
type TokenPayload struct {
	Value  string `json:"value"`
	CardID string `json:"card_id,omitempty"`
}

// Payload converts the transcript into its serialized form.
func (t *Transcript) Payload() Payload {
	blocks := make([]SegmentPayload, len(t.Segments))
	for i, segment := range t.Segments {
		atoms := make([]TokenPayload, len(segment.Tokens))
		for j, token := range segment.Tokens {
			atoms[j] = TokenPayload{Value: token.Surface, CardID: token.CardID}
		}
		blocks[i] = SegmentPayload{
			StartTime:       segment.Start,
			EndTime:         segment.End,
			Value:           segment.Text,
			TranslatedValue: segment.Translated,
			AudioURL:        segment.AudioRef,
			Atoms:           atoms,
		}
	}
	return Payload{
		Blocks:      blocks,
		TotalBlocks: t.SegmentCount(),
		TotalAtoms:  t.TokenCount(),
		NewAtoms:    t.NewTokenCount(),
		Duration:    t.Duration(),
	}
}
