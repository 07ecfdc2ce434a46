package tokenizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/transcript"
)

// Extractor converts segment text into deduplicated vocabulary tokens.
// It holds no mutable state, so one extractor may serve concurrent
// segments.
type Extractor struct {
	tok    Tokenizer
	logger *slog.Logger
}

// NewExtractor constructs an extractor around the given tokenizer.
func NewExtractor(tok Tokenizer, logger *slog.Logger) *Extractor {
	return &Extractor{
		tok:    tok,
		logger: logging.NewComponentLogger(logger, "tokenizer"),
	}
}

// ExtractTokens tokenizes text and returns one token per distinct surface,
// in first-occurrence order. Punctuation and symbol morphemes are dropped.
// Whitespace-only text yields no tokens without invoking the tokenizer.
func (e *Extractor) ExtractTokens(ctx context.Context, text string) ([]transcript.Token, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	morphemes, err := e.tok.Tokenize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract tokens: %w", err)
	}

	var tokens []transcript.Token
	seen := make(map[string]struct{}, len(morphemes))
	for _, m := range morphemes {
		pos, ok := MapPartOfSpeech(m.PartOfSpeech)
		if !ok {
			logging.WarnWithContext(e.logger, "unmapped part-of-speech category", "pos_mapping_gap",
				logging.String("category", m.PartOfSpeech),
				logging.String("surface", m.Surface),
				logging.String(logging.FieldErrorHint, "extend the category mapping for this dictionary"),
				logging.String(logging.FieldImpact, "token categorized as other"))
		}
		if pos == transcript.PosSymbol {
			continue
		}
		if _, dup := seen[m.Surface]; dup {
			continue
		}

		baseForm := m.BaseForm
		if baseForm == "*" {
			baseForm = m.Surface
		}
		token, err := transcript.NewToken(m.Surface, baseForm, pos, morphemeMetadata(m))
		if err != nil {
			// Blank surfaces come from malformed analyzer lines; drop them.
			continue
		}
		tokens = append(tokens, token)
		seen[m.Surface] = struct{}{}
	}
	return tokens, nil
}

func morphemeMetadata(m Morpheme) map[string]string {
	return map[string]string{
		"pos_detail1":      m.PosDetail1,
		"pos_detail2":      m.PosDetail2,
		"pos_detail3":      m.PosDetail3,
		"conjugation_type": m.ConjugationType,
		"conjugation_form": m.ConjugationForm,
		"reading":          m.Reading,
		"pronunciation":    m.Pronunciation,
	}
}
