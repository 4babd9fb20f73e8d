package httpx

import (
	"golang.org/x/text/language"
)

const (
	langEnglish = "en"
	langArabic  = "ar"
)

// English first: it is the fallback when nothing matches.
var langMatcher = language.NewMatcher([]language.Tag{language.English, language.Arabic})

// preferredLanguage picks en or ar from an Accept-Language header.
func preferredLanguage(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return langEnglish
	}
	_, idx, conf := langMatcher.Match(tags...)
	if conf == language.No || idx != 1 {
		return langEnglish
	}
	return langArabic
}

func supportedLanguage(lang string) bool {
	return lang == langEnglish || lang == langArabic
}
