package conversation

import (
	"fmt"
	"strings"
)

// Language is a supported response language.
type Language struct {
	Name    string `json:"name"`
	Display string `json:"display"`
}

// DefaultLanguage is used for empty or unknown language names.
var DefaultLanguage = Language{Name: "English", Display: "English"}

var languages = []Language{
	DefaultLanguage,
	{Name: "Spanish", Display: "Spanish (Español)"},
	{Name: "French", Display: "French (Français)"},
	{Name: "German", Display: "German (Deutsch)"},
	{Name: "Hindi", Display: "Hindi (हिन्दी)"},
	{Name: "Arabic", Display: "Arabic (العربية)"},
	{Name: "Chinese", Display: "Chinese (中文)"},
	{Name: "Japanese", Display: "Japanese (日本語)"},
	{Name: "Portuguese", Display: "Portuguese (Português)"},
	{Name: "Russian", Display: "Russian (Русский)"},
}

// Languages returns the supported languages, English first.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

// LookupLanguage matches name case-insensitively and falls back to English.
func LookupLanguage(name string) Language {
	name = strings.TrimSpace(name)
	for _, l := range languages {
		if strings.EqualFold(l.Name, name) {
			return l
		}
	}
	return DefaultLanguage
}

// Directive is the instruction every template carries.
func (l Language) Directive() string {
	return fmt.Sprintf("You must respond in %s. Ensure your entire response is in %s.", l.Display, l.Display)
}

// summaryKeywords trigger wide retrieval. Substring matching is a heuristic:
// "overview" inside an unrelated sentence also counts.
var summaryKeywords = []string{
	"summary", "summarize", "summarise", "overview", "main points",
	"key points", "what is the document about", "what does the pdf say",
	"résumé", "resumen", "zusammenfassung", "riepilogo", "خلاصة",
}

// IsSummaryRequest reports whether message asks for whole-document coverage.
func IsSummaryRequest(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
