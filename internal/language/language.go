package language

import "strings"

type entry struct {
	code    string   // ISO 639-1, what the transcription API accepts
	display string   // name used in translation prompts
	aliases []string // ISO 639-2 codes and other accepted spellings
}

var languages = []entry{
	{"ja", "Japanese", []string{"jpn"}},
	{"en", "English", []string{"eng"}},
	{"zh", "Chinese", []string{"zho", "chi", "mandarin"}},
	{"ko", "Korean", []string{"kor"}},
	{"es", "Spanish", []string{"spa"}},
	{"fr", "French", []string{"fra", "fre"}},
	{"de", "German", []string{"deu", "ger"}},
	{"it", "Italian", []string{"ita"}},
	{"pt", "Portuguese", []string{"por"}},
	{"ru", "Russian", []string{"rus"}},
	{"nl", "Dutch", []string{"nld", "dut"}},
	{"pl", "Polish", []string{"pol"}},
	{"sv", "Swedish", []string{"swe"}},
	{"vi", "Vietnamese", []string{"vie"}},
	{"th", "Thai", []string{"tha"}},
	{"id", "Indonesian", []string{"ind"}},
	{"hi", "Hindi", []string{"hin"}},
	{"ar", "Arabic", []string{"ara"}},
}

var index map[string]*entry

func init() {
	index = make(map[string]*entry, len(languages)*3)
	for i := range languages {
		e := &languages[i]
		index[e.code] = e
		index[strings.ToLower(e.display)] = e
		for _, alias := range e.aliases {
			index[alias] = e
		}
	}
}

func lookup(value string) *entry {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return nil
	}
	return index[value]
}

// Code converts any recognized language name or code to ISO 639-1.
// Unrecognized two-letter values pass through lowercased so uncommon
// languages the transcription API supports still reach it; anything
// else returns "", which the transcriber treats as autodetect.
func Code(value string) string {
	if e := lookup(value); e != nil {
		return e.code
	}
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if len(trimmed) == 2 {
		return trimmed
	}
	return ""
}

// Display returns the name used when a prompt has to spell the language
// out. Unrecognized values come back trimmed as given, so entries like
// "Brazilian Portuguese" survive.
func Display(value string) string {
	if e := lookup(value); e != nil {
		return e.display
	}
	return strings.TrimSpace(value)
}
