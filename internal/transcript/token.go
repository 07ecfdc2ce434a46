package transcript

import (
	"fmt"
	"strings"
)

// PartOfSpeech is the closed grammatical category set used for tokens.
// Categories outside the set map to PosOther at extraction time.
type PartOfSpeech string

const (
	PosNoun           PartOfSpeech = "noun"
	PosVerb           PartOfSpeech = "verb"
	PosAdjective      PartOfSpeech = "adjective"
	PosAdjectivalVerb PartOfSpeech = "adjectival_verb"
	PosAdverb         PartOfSpeech = "adverb"
	PosParticle       PartOfSpeech = "particle"
	PosAuxiliaryVerb  PartOfSpeech = "auxiliary_verb"
	PosConjunction    PartOfSpeech = "conjunction"
	PosPronoun        PartOfSpeech = "pronoun"
	PosDeterminer     PartOfSpeech = "determiner"
	PosInterjection   PartOfSpeech = "interjection"
	PosSymbol         PartOfSpeech = "symbol"
	PosPrefix         PartOfSpeech = "prefix"
	PosSuffix         PartOfSpeech = "suffix"
	PosFiller         PartOfSpeech = "filler"
	PosOther          PartOfSpeech = "other"
	PosUnknown        PartOfSpeech = "unknown"
)

// Token is a single vocabulary unit extracted from segment text. Two tokens
// are the same token when their surfaces are equal; base form, category, and
// metadata ride along from the first occurrence.
type Token struct {
	Surface      string
	BaseForm     string
	PartOfSpeech PartOfSpeech
	Metadata     map[string]string
	CardID       string
}

// NewToken validates and builds a token. The surface must be non-empty.
func NewToken(surface, baseForm string, pos PartOfSpeech, metadata map[string]string) (Token, error) {
	if strings.TrimSpace(surface) == "" {
		return Token{}, fmt.Errorf("token surface cannot be empty")
	}
	if baseForm == "" {
		baseForm = surface
	}
	return Token{
		Surface:      surface,
		BaseForm:     baseForm,
		PartOfSpeech: pos,
		Metadata:     metadata,
	}, nil
}
