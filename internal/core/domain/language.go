package domain

// Languages lists the interface languages in toggle order.
var Languages = []string{"en", "es", "fr", "de", "pt"}

// IsSupportedLanguage reports whether lang is one of Languages.
func IsSupportedLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// NextLanguage returns the language after current, wrapping over the whole
// list. Unknown values restart at the first language.
func NextLanguage(current string) string {
	for i, l := range Languages {
		if l == current {
			return Languages[(i+1)%len(Languages)]
		}
	}
	return Languages[0]
}
