package tokenizer

import "github.com/regexyl/instantcards/internal/transcript"

// posMapping converts IPA-dictionary part-of-speech categories into the
// transcript enum.
var posMapping = map[string]transcript.PartOfSpeech{
	"名詞":   transcript.PosNoun,
	"動詞":   transcript.PosVerb,
	"形容詞":  transcript.PosAdjective,
	"形容動詞": transcript.PosAdjectivalVerb,
	"副詞":   transcript.PosAdverb,
	"助詞":   transcript.PosParticle,
	"助動詞":  transcript.PosAuxiliaryVerb,
	"接続詞":  transcript.PosConjunction,
	"代名詞":  transcript.PosPronoun,
	"連体詞":  transcript.PosDeterminer,
	"感動詞":  transcript.PosInterjection,
	"記号":   transcript.PosSymbol,
	"接頭詞":  transcript.PosPrefix,
	"接尾辞":  transcript.PosSuffix,
	"フィラー": transcript.PosFiller,
	"その他":  transcript.PosOther,
	"未知語":  transcript.PosUnknown,
}

// MapPartOfSpeech converts a raw MeCab category into the transcript enum.
// The second return reports whether the category was recognized;
// unrecognized categories map to PosOther so extraction never fails on a
// dictionary the mapping has not seen.
func MapPartOfSpeech(category string) (transcript.PartOfSpeech, bool) {
	if pos, ok := posMapping[category]; ok {
		return pos, true
	}
	return transcript.PosOther, false
}
