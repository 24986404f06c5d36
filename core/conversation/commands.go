package conversation

import (
	"strings"
	"unicode"
)

type command string

const (
	cmdMenu     command = "menu"
	cmdReset    command = "reset"
	cmdSupport  command = "support"
	cmdLanguage command = "language"
)

var commandWords = map[string]command{
	"menu":      cmdMenu,
	"start":     cmdMenu,
	"main menu": cmdMenu,
	"قائمة":     cmdMenu,
	"القائمة":   cmdMenu,
	"ابدأ":      cmdMenu,

	"reset":   cmdReset,
	"restart": cmdReset,
	"إعادة":   cmdReset,

	"support": cmdSupport,
	"agent":   cmdSupport,
	"human":   cmdSupport,
	"دعم":     cmdSupport,
	"موظف":    cmdSupport,

	"language": cmdLanguage,
	"lang":     cmdLanguage,
	"لغة":      cmdLanguage,
	"اللغة":    cmdLanguage,
}

// matchCommand reports the global command text spells out, if any.
// Matching is exact after lower-casing, trimming, dropping a leading slash and trailing punctuation.
func matchCommand(text string) (command, bool) {
	c, ok := commandWords[normalizeCommand(text)]
	return c, ok
}

func normalizeCommand(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.Join(strings.Fields(s), " ")
}
