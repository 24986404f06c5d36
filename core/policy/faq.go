package policy

import (
	"regexp"
	"strings"

	"github.com/m3rciful/leadbot/core/lang"
	"github.com/m3rciful/leadbot/core/tenant"
)

// MatchFAQ returns the first entry, in configured order, whose keywords for l occur in text.
func MatchFAQ(entries []tenant.FAQEntry, l lang.Language, text string) (tenant.FAQEntry, bool) {
	if strings.TrimSpace(text) == "" {
		return tenant.FAQEntry{}, false
	}
	for _, e := range entries {
		if containsAny(text, e.Keywords[l]) {
			return e, true
		}
	}
	return tenant.FAQEntry{}, false
}

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// ValidEmail reports whether s looks like a deliverable email address.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) > 254 {
		return false
	}
	return emailRe.MatchString(s)
}
