package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Morpheme is a single analyzed token as reported by MeCab. Feature
// fields carry the raw dictionary values, including the "*" placeholder
// MeCab uses for absent features.
type Morpheme struct {
	Surface         string
	PartOfSpeech    string
	PosDetail1      string
	PosDetail2      string
	PosDetail3      string
	ConjugationType string
	ConjugationForm string
	BaseForm        string
	Reading         string
	Pronunciation   string
}

// Tokenizer produces morphemes for a span of Japanese text.
type Tokenizer interface {
	Tokenize(ctx context.Context, text string) ([]Morpheme, error)
}

// Executor abstracts command execution for the tokenizer.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdin string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = strings.NewReader(stdin)
	return cmd.Output()
}

// MeCab runs the mecab binary and parses its default output format.
type MeCab struct {
	binary        string
	dictionaryDir string
	timeout       time.Duration
	exec          Executor
}

// NewMeCab constructs a tokenizer for the provided mecab binary.
// dictionaryDir may be empty to use the system dictionary.
func NewMeCab(binary, dictionaryDir string, timeout time.Duration) *MeCab {
	return newMeCab(binary, dictionaryDir, timeout, commandExecutor{})
}

// NewMeCabWithExecutor allows injecting a custom executor for testing.
func NewMeCabWithExecutor(binary, dictionaryDir string, timeout time.Duration, exec Executor) *MeCab {
	if exec == nil {
		exec = commandExecutor{}
	}
	return newMeCab(binary, dictionaryDir, timeout, exec)
}

func newMeCab(binary, dictionaryDir string, timeout time.Duration, exec Executor) *MeCab {
	return &MeCab{
		binary:        strings.TrimSpace(binary),
		dictionaryDir: strings.TrimSpace(dictionaryDir),
		timeout:       timeout,
		exec:          exec,
	}
}

// Tokenize analyzes text and returns its morphemes in input order.
func (m *MeCab) Tokenize(ctx context.Context, text string) ([]Morpheme, error) {
	if m.binary == "" {
		return nil, errors.New("mecab binary not configured")
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	var args []string
	if m.dictionaryDir != "" {
		args = append(args, "-d", m.dictionaryDir)
	}

	output, err := m.exec.Run(ctx, m.binary, args, text)
	if err != nil {
		return nil, fmt.Errorf("mecab: %w", err)
	}
	return parseMorphemes(output), nil
}

// parseMorphemes parses MeCab's default output:
//
//	surface\tpos,detail1,detail2,detail3,conj_type,conj_form,base,reading,pron
//
// EOS markers and blank lines are skipped, as are lines without a
// feature column.
func parseMorphemes(output []byte) []Morpheme {
	var morphemes []Morpheme
	for _, line := range strings.Split(string(output), "\n") {
		if line == "EOS" || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		features := strings.Split(parts[1], ",")
		feature := func(i int) string {
			if i < len(features) {
				return features[i]
			}
			return ""
		}
		morphemes = append(morphemes, Morpheme{
			Surface:         parts[0],
			PartOfSpeech:    feature(0),
			PosDetail1:      feature(1),
			PosDetail2:      feature(2),
			PosDetail3:      feature(3),
			ConjugationType: feature(4),
			ConjugationForm: feature(5),
			BaseForm:        feature(6),
			Reading:         feature(7),
			Pronunciation:   feature(8),
		})
	}
	return morphemes
}
