package translator

import "fmt"

// translationPrompt instructs the model to translate while preserving the
// numbered tag structure the transcript codec emits.
func translationPrompt(targetLanguage string) string {
	return fmt.Sprintf("You are a professional translator. Translate the following text to %s. "+
		"Maintain the original meaning and tone. "+
		"Only return the translated text in the same XML format, nothing else.", targetLanguage)
}
