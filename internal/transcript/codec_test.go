package transcript_test

import (
	"errors"
	"testing"

	"github.com/regexyl/instantcards/internal/transcript"
)

func buildTranscript(t *testing.T, texts ...string) *transcript.Transcript {
	t.Helper()
	tr := &transcript.Transcript{}
	for i, text := range texts {
		segment, err := transcript.NewSegment(float64(i), float64(i)+1, text)
		if err != nil {
			t.Fatalf("NewSegment(%q): %v", text, err)
		}
		tr.Segments = append(tr.Segments, segment)
	}
	return tr
}

func TestEncodeTaggedProducesIndexedSpans(t *testing.T) {
	tr := buildTranscript(t, "こんにちは", "世界")

	tagged, err := transcript.EncodeTagged(tr)
	if err != nil {
		t.Fatalf("EncodeTagged: %v", err)
	}
	want := "<0>こんにちは</0> <1>世界</1>"
	if tagged != want {
		t.Fatalf("unexpected tagged text: got %q want %q", tagged, want)
	}
}

func TestDecodeRoundTripIdentity(t *testing.T) {
	tr := buildTranscript(t, "こんにちは", "世界", "ありがとう")

	tagged, err := transcript.EncodeTagged(tr)
	if err != nil {
		t.Fatalf("EncodeTagged: %v", err)
	}
	decoded, err := transcript.DecodeTagged(tagged, tr.SegmentCount())
	if err != nil {
		t.Fatalf("DecodeTagged: %v", err)
	}
	for i, segment := range tr.Segments {
		if decoded[i] != segment.Text {
			t.Fatalf("round trip mismatch at %d: got %q want %q", i, decoded[i], segment.Text)
		}
	}
}

func TestDecodeOrdersByIndexNotPosition(t *testing.T) {
	// The translator may permute spans; index order must win.
	decoded, err := transcript.DecodeTagged("<2>three</2> <0>one</0> <1>two</1>", 3)
	if err != nil {
		t.Fatalf("DecodeTagged: %v", err)
	}
	if decoded[0] != "one" || decoded[1] != "two" || decoded[2] != "three" {
		t.Fatalf("unexpected order: %v", decoded)
	}
}

func TestDecodeTrimsContentWhitespace(t *testing.T) {
	decoded, err := transcript.DecodeTagged("<0>  hello \n</0> <1>\tworld </1>", 2)
	if err != nil {
		t.Fatalf("DecodeTagged: %v", err)
	}
	if decoded[0] != "hello" || decoded[1] != "world" {
		t.Fatalf("expected trimmed contents, got %v", decoded)
	}
}

func TestDecodeFailsOnMissingIndex(t *testing.T) {
	_, err := transcript.DecodeTagged("<0>one</0> <2>three</2>", 3)
	if !errors.Is(err, transcript.ErrTagMismatch) {
		t.Fatalf("expected ErrTagMismatch, got %v", err)
	}
}

func TestDecodeFailsOnCountMismatch(t *testing.T) {
	_, err := transcript.DecodeTagged("<0>one</0> <1>two</1> <2>three</2>", 2)
	if !errors.Is(err, transcript.ErrTagMismatch) {
		t.Fatalf("expected ErrTagMismatch, got %v", err)
	}
}

func TestDecodeFailsOnDuplicateIndex(t *testing.T) {
	_, err := transcript.DecodeTagged("<0>one</0> <0>again</0> <1>two</1>", 3)
	if !errors.Is(err, transcript.ErrTagMismatch) {
		t.Fatalf("expected ErrTagMismatch, got %v", err)
	}
}

func TestDecodeIgnoresUnpairedTags(t *testing.T) {
	decoded, err := transcript.DecodeTagged("<5 <0>one</0> </9> <1>two</1>", 2)
	if err != nil {
		t.Fatalf("DecodeTagged: %v", err)
	}
	if decoded[0] != "one" || decoded[1] != "two" {
		t.Fatalf("unexpected contents: %v", decoded)
	}
}

func TestDecodeEmptyInputZeroSegments(t *testing.T) {
	decoded, err := transcript.DecodeTagged("", 0)
	if err != nil {
		t.Fatalf("DecodeTagged: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty result, got %v", decoded)
	}
}

func TestDecodeSpansWithNewlines(t *testing.T) {
	decoded, err := transcript.DecodeTagged("<0>line one\nline two</0>", 1)
	if err != nil {
		t.Fatalf("DecodeTagged: %v", err)
	}
	if decoded[0] != "line one\nline two" {
		t.Fatalf("expected newline content preserved, got %q", decoded[0])
	}
}

func TestEncodeFailsOnLiteralTagInText(t *testing.T) {
	tr := buildTranscript(t, "contains <3> literally")
	_, err := transcript.EncodeTagged(tr)
	if !errors.Is(err, transcript.ErrTagCollision) {
		t.Fatalf("expected ErrTagCollision, got %v", err)
	}

	tr = buildTranscript(t, "closing </7> form")
	_, err = transcript.EncodeTagged(tr)
	if !errors.Is(err, transcript.ErrTagCollision) {
		t.Fatalf("expected ErrTagCollision, got %v", err)
	}
}

func TestEncodeAllowsAngleBracketsWithoutDigits(t *testing.T) {
	tr := buildTranscript(t, "a < b and b > a <tag>")
	tagged, err := transcript.EncodeTagged(tr)
	if err != nil {
		t.Fatalf("EncodeTagged: %v", err)
	}
	decoded, err := transcript.DecodeTagged(tagged, 1)
	if err != nil {
		t.Fatalf("DecodeTagged: %v", err)
	}
	if decoded[0] != "a < b and b > a <tag>" {
		t.Fatalf("unexpected content: %q", decoded[0])
	}
}
