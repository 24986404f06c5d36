package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/lang"
	"github.com/m3rciful/leadbot/core/outbound"
	"github.com/m3rciful/leadbot/core/tenant"
)

func btn(t *turn, id string) outbound.Button {
	return outbound.Button{ID: id, Title: t.tenant.Label(id, t.lang, labels[id])}
}

func menu(t *turn, body string, ids ...string) []outbound.Directive {
	buttons := make([]outbound.Button, 0, len(ids))
	for _, id := range ids {
		buttons = append(buttons, btn(t, id))
	}
	return outbound.Menu(body, msg.MoreOptions.Get(t.lang), buttons...)
}

func tenantName(t *turn) string {
	return t.tenant.Name.Get(t.lang)
}

func mainMenu(_ *Machine, t *turn, body lang.Text) []outbound.Directive {
	return menu(t, body.Get(t.lang), BtnServices, BtnBookMeeting, BtnMore)
}

func welcomeMenu(t *turn) []outbound.Directive {
	return menu(t, fmt.Sprintf(msg.Welcome.Get(t.lang), tenantName(t)), BtnServices, BtnBookMeeting, BtnMore)
}

func servicesMenu(_ *Machine, t *turn) []outbound.Directive {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(msg.ServicesIntro.Get(t.lang), tenantName(t)))
	for _, s := range t.tenant.Services {
		b.WriteString("\n\n• ")
		b.WriteString(s.Title.Get(t.lang))
		if desc := s.Description.Get(t.lang); desc != "" {
			b.WriteString(": ")
			b.WriteString(desc)
		}
	}
	ds := []outbound.Directive{outbound.Text(b.String())}
	return append(ds, menu(t, msg.ServicesMenu.Get(t.lang), BtnLeadStart, BtnBookMeeting, BtnMainMenu)...)
}

func moreMenu(_ *Machine, t *turn) []outbound.Directive {
	return menu(t, msg.MoreMenu.Get(t.lang), BtnLeadStart, BtnHandover, BtnMainMenu)
}

func languageMenu() []outbound.Directive {
	return outbound.Menu(msg.ChooseLanguage, msg.ChooseLanguage,
		outbound.Button{ID: BtnLangEN, Title: "English"},
		outbound.Button{ID: BtnLangAR, Title: "العربية"},
	)
}

// capture asks for free text and offers a way back to the menu.
func capture(t *turn, body string) []outbound.Directive {
	return menu(t, body, BtnMainMenu)
}

func serviceMenu(_ *Machine, t *turn) []outbound.Directive {
	buttons := make([]outbound.Button, 0, len(t.tenant.Services)+1)
	for _, s := range t.tenant.Services {
		buttons = append(buttons, outbound.Button{ID: BtnServicePrefix + s.ID, Title: s.Title.Get(t.lang)})
	}
	buttons = append(buttons, btn(t, BtnServiceOther))
	return outbound.Menu(msg.AskService.Get(t.lang), msg.MoreOptions.Get(t.lang), buttons...)
}

func budgetMenu(_ *Machine, t *turn) []outbound.Directive {
	return menu(t, msg.AskBudget.Get(t.lang), BtnBudgetLow, BtnBudgetMid, BtnBudgetHigh)
}

func timelineMenu(_ *Machine, t *turn) []outbound.Directive {
	return menu(t, msg.AskTimeline.Get(t.lang), BtnTimelineASAP, BtnTimelineQuarter, BtnTimelineLater)
}

func notesMenu(_ *Machine, t *turn) []outbound.Directive {
	return menu(t, msg.AskNotes.Get(t.lang), BtnSkipNotes, BtnMainMenu)
}

func afterHoursNotice(t *turn) outbound.Directive {
	return outbound.Text(fmt.Sprintf(msg.AfterHours.Get(t.lang), FormatHours(t.tenant.Hours, t.lang)))
}

var dayNames = map[lang.Language][7]string{
	lang.English: {"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	lang.Arabic:  {"الأحد", "الإثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت"},
}

// FormatHours renders a working-hours window, e.g. "Sun-Thu 09:00-18:00 (UTC+04:00)".
// Consecutive days collapse into ranges.
func FormatHours(h tenant.WorkingHours, l lang.Language) string {
	names, ok := dayNames[l]
	if !ok {
		names = dayNames[lang.English]
	}
	var open [7]bool
	for _, d := range h.Days {
		open[d] = true
	}
	var parts []string
	for d := 0; d < 7; d++ {
		if !open[d] {
			continue
		}
		end := d
		for end+1 < 7 && open[end+1] {
			end++
		}
		switch {
		case end == d:
			parts = append(parts, names[d])
		default:
			parts = append(parts, names[d]+"-"+names[end])
		}
		d = end
	}
	sep := ", "
	if l == lang.Arabic {
		sep = "، "
	}
	return fmt.Sprintf("%s %02d:00-%02d:00 (UTC%s)", strings.Join(parts, sep), h.StartHour, h.EndHour, formatOffset(h.UTCOffset))
}

func formatOffset(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	mins := int(d / time.Minute)
	return fmt.Sprintf("%s%02d:%02d", sign, mins/60, mins%60)
}
