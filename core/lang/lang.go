// Package lang defines the two languages the bot speaks and localized text values.
package lang

import (
	"strings"
	"unicode"
)

// Language identifies a conversation language.
type Language string

const (
	// Unset marks a session that has not picked a language yet.
	Unset Language = ""
	// English is the "en" language.
	English Language = "en"
	// Arabic is the "ar" language.
	Arabic Language = "ar"
)

// All lists the supported languages in menu order.
var All = []Language{English, Arabic}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l == English || l == Arabic
}

// String returns the language code or "unset".
func (l Language) String() string {
	if l == Unset {
		return "unset"
	}
	return string(l)
}

// Parse maps a language code or name to a Language. Unknown input returns Unset, false.
func Parse(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "eng", "english", "إنجليزي", "الإنجليزية":
		return English, true
	case "ar", "ara", "arabic", "عربي", "العربية":
		return Arabic, true
	}
	return Unset, false
}

// Detect guesses the language of free text: any Arabic-script letter selects Arabic,
// otherwise fallback is returned.
func Detect(text string, fallback Language) Language {
	for _, r := range text {
		if unicode.Is(unicode.Arabic, r) && unicode.IsLetter(r) {
			return Arabic
		}
	}
	if !fallback.Valid() {
		return English
	}
	return fallback
}

// Text is a string available in both languages.
type Text struct {
	EN string `yaml:"en" json:"en"`
	AR string `yaml:"ar" json:"ar"`
}

// T is a shorthand constructor for Text.
func T(en, ar string) Text {
	return Text{EN: en, AR: ar}
}

// Get returns the value for l, falling back to English when the translation is missing.
func (t Text) Get(l Language) string {
	if l == Arabic && t.AR != "" {
		return t.AR
	}
	if t.EN != "" {
		return t.EN
	}
	return t.AR
}

// IsZero reports whether both translations are empty.
func (t Text) IsZero() bool {
	return t.EN == "" && t.AR == ""
}
