package conversation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/leadbot/core/lang"
	"github.com/m3rciful/leadbot/core/outbound"
	"github.com/m3rciful/leadbot/core/policy"
	"github.com/m3rciful/leadbot/core/records"
	"github.com/m3rciful/leadbot/core/session"
)

// Free-text length limits, in runes.
const (
	maxNameRunes  = 100
	maxShortRunes = 200
	maxLongRunes  = 500
)

// menuButtons lists the buttons each menu state shows, so typed labels can stand in for taps.
var menuButtons = map[session.State][]string{
	session.StateMainMenu:     {BtnServices, BtnBookMeeting, BtnMore},
	session.StateServicesMenu: {BtnLeadStart, BtnBookMeeting, BtnMainMenu},
	session.StateMoreMenu:     {BtnLeadStart, BtnHandover, BtnMainMenu},
}

func stateDefs() map[session.State]stateDef {
	return map[session.State]stateDef{
		session.StateLanguageSelect: {
			name:      "language_select",
			prompt:    func(*Machine, *turn) []outbound.Directive { return languageMenu() },
			text:      languageText,
			selection: languageSelection,
		},
		session.StateMainMenu: {
			name:      "main_menu",
			prompt:    func(m *Machine, t *turn) []outbound.Directive { return mainMenu(m, t, msg.MainMenu) },
			text:      menuText,
			selection: menuSelection,
		},
		session.StateServicesMenu: {
			name:      "services_menu",
			prompt:    servicesMenu,
			text:      menuText,
			selection: menuSelection,
		},
		session.StateMoreMenu: {
			name:      "more_menu",
			prompt:    moreMenu,
			text:      menuText,
			selection: menuSelection,
		},
		session.StateBookMeetingName: {
			name:      "book_meeting_name",
			prompt:    func(_ *Machine, t *turn) []outbound.Directive { return capture(t, msg.AskName.Get(t.lang)) },
			text:      meetingName,
			selection: captureSelection,
		},
		session.StateBookMeetingEmail: {
			name:      "book_meeting_email",
			prompt:    askEmail,
			text:      meetingEmail,
			selection: captureSelection,
		},
		session.StateBookMeetingTopic: {
			name:      "book_meeting_topic",
			prompt:    func(_ *Machine, t *turn) []outbound.Directive { return capture(t, msg.AskTopic.Get(t.lang)) },
			text:      meetingTopic,
			selection: captureSelection,
		},
		session.StateLeadService: {
			name:      "lead_service",
			prompt:    serviceMenu,
			text:      leadServiceText,
			selection: leadServiceSelection,
		},
		session.StateLeadOtherServiceText: {
			name:      "lead_other_service_text",
			prompt:    func(_ *Machine, t *turn) []outbound.Directive { return capture(t, msg.AskOtherService.Get(t.lang)) },
			text:      leadOtherService,
			selection: captureSelection,
		},
		session.StateLeadBudget: {
			name:      "lead_budget",
			prompt:    budgetMenu,
			text:      leadBudgetText,
			selection: presetSelection(budgetValues, session.FieldBudget, session.StateLeadTimeline, timelineMenu),
		},
		session.StateLeadTimeline: {
			name:      "lead_timeline",
			prompt:    timelineMenu,
			text:      leadTimelineText,
			selection: presetSelection(timelineValues, session.FieldTimeline, session.StateLeadNotes, notesMenu),
		},
		session.StateLeadNotes: {
			name:      "lead_notes",
			prompt:    notesMenu,
			text:      leadNotesText,
			selection: leadNotesSelection,
		},
		session.StateHandoverReason: {
			name:      "handover_reason",
			prompt:    func(_ *Machine, t *turn) []outbound.Directive { return capture(t, msg.AskReason.Get(t.lang)) },
			text:      handoverReason,
			selection: captureSelection,
		},
	}
}

// boundedText trims s and checks its length in runes.
func boundedText(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	return s, n > 0 && n <= max
}

func showMainMenu(m *Machine, t *turn, body lang.Text) Decision {
	return Decision{
		Handler:    "menu.main",
		Outcome:    OutcomeOK,
		Patch:      session.To(session.StateMainMenu).Clear(),
		Directives: mainMenu(m, t, body),
	}
}

// language selection

func languageSelection(m *Machine, t *turn) Decision {
	switch t.in.Selection {
	case BtnLangEN:
		return pickLanguage(t, lang.English)
	case BtnLangAR:
		return pickLanguage(t, lang.Arabic)
	}
	return repromptLanguage(t)
}

func languageText(m *Machine, t *turn) Decision {
	if l, ok := lang.Parse(t.in.Text); ok {
		return pickLanguage(t, l)
	}
	return repromptLanguage(t)
}

func repromptLanguage(t *turn) Decision {
	return Decision{
		Handler:    "language_select." + string(t.in.Kind),
		Outcome:    OutcomeReprompt,
		Patch:      session.To(session.StateLanguageSelect),
		Directives: languageMenu(),
	}
}

func pickLanguage(t *turn, l lang.Language) Decision {
	t.lang = l
	var ds []outbound.Directive
	if t.sess.Language != lang.Unset {
		ds = append(ds, outbound.Text(msg.LanguageSelected.Get(l)))
	}
	return Decision{
		Handler:    "language_select.pick",
		Outcome:    OutcomeOK,
		Patch:      session.To(session.StateMainMenu).Clear().WithLanguage(l),
		Directives: append(ds, welcomeMenu(t)...),
	}
}

// menus

func menuSelection(m *Machine, t *turn) Decision {
	return openMenuItem(m, t, t.in.Selection)
}

func openMenuItem(m *Machine, t *turn, id string) Decision {
	switch id {
	case BtnServices:
		return Decision{
			Handler:    "menu.services",
			Outcome:    OutcomeOK,
			Patch:      session.To(session.StateServicesMenu),
			Directives: servicesMenu(m, t),
		}
	case BtnMore:
		return Decision{
			Handler:    "menu.more",
			Outcome:    OutcomeOK,
			Patch:      session.To(session.StateMoreMenu),
			Directives: moreMenu(m, t),
		}
	case BtnBookMeeting:
		return startBooking(m, t)
	case BtnLeadStart:
		return startLead(m, t)
	case BtnHandover:
		return startHandover(m, t)
	case BtnMainMenu:
		return showMainMenu(m, t, msg.MainMenu)
	case BtnLangEN:
		return pickLanguage(t, lang.English)
	case BtnLangAR:
		return pickLanguage(t, lang.Arabic)
	}
	d := showMainMenu(m, t, msg.NotUnderstood)
	d.Handler = "menu.unknown"
	d.Outcome = OutcomeReprompt
	return d
}

func menuText(m *Machine, t *turn) Decision {
	st := t.sess.State
	if id, ok := labelMatch(t, menuButtons[st]); ok {
		return openMenuItem(m, t, id)
	}
	if entry, ok := policy.MatchFAQ(t.tenant.FAQ, t.lang, t.in.Text); ok {
		ds := []outbound.Directive{outbound.Text(entry.Answer.Get(t.lang))}
		return Decision{
			Handler:    "menu.faq",
			Outcome:    OutcomeOK,
			Directives: append(ds, mainMenu(m, t, msg.FAQFollowUp)...),
			Patch:      session.To(session.StateMainMenu),
		}
	}
	d := showMainMenu(m, t, msg.NotUnderstood)
	d.Handler = m.def(st).name + ".text"
	d.Outcome = OutcomeReprompt
	return d
}

// labelMatch maps typed text equal to a shown button title back to its id.
func labelMatch(t *turn, ids []string) (string, bool) {
	text := strings.TrimSpace(t.in.Text)
	for _, id := range ids {
		if strings.EqualFold(text, btn(t, id).Title) {
			return id, true
		}
	}
	return "", false
}

// captureSelection handles taps while a step waits for typed text: Main menu cancels the flow.
func captureSelection(m *Machine, t *turn) Decision {
	if t.in.Selection == BtnMainMenu {
		d := showMainMenu(m, t, msg.MainMenu)
		d.Handler = m.def(t.sess.State).name + ".cancel"
		return d
	}
	return reprompt(m, t, m.def(t.sess.State), nil)
}

// meeting booking

func startBooking(m *Machine, t *turn) Decision {
	var ds []outbound.Directive
	if !policy.IsOpen(t.tenant.Hours, t.now) {
		ds = append(ds, afterHoursNotice(t))
	}
	return Decision{
		Handler:    "meeting.start",
		Outcome:    OutcomeOK,
		Patch:      session.To(session.StateBookMeetingName).Clear(),
		Directives: append(ds, capture(t, msg.AskName.Get(t.lang))...),
	}
}

func askEmail(_ *Machine, t *turn) []outbound.Directive {
	return capture(t, fmt.Sprintf(msg.AskEmail.Get(t.lang), t.sess.Value(session.FieldName)))
}

func meetingName(m *Machine, t *turn) Decision {
	name, ok := boundedText(t.in.Text, maxNameRunes)
	if !ok {
		return reprompt(m, t, m.def(session.StateBookMeetingName), &msg.BadName)
	}
	t.sess.Data = map[session.Field]string{session.FieldName: name}
	return Decision{
		Handler:    "book_meeting_name.text",
		Outcome:    OutcomeOK,
		Patch:      session.To(session.StateBookMeetingEmail).Set(session.FieldName, name),
		Directives: askEmail(m, t),
	}
}

func meetingEmail(m *Machine, t *turn) Decision {
	email := strings.TrimSpace(t.in.Text)
	if !policy.ValidEmail(email) {
		return reprompt(m, t, m.def(session.StateBookMeetingEmail), &msg.BadEmail)
	}
	return Decision{
		Handler:    "book_meeting_email.text",
		Outcome:    OutcomeOK,
		Patch:      session.To(session.StateBookMeetingTopic).Set(session.FieldEmail, email),
		Directives: capture(t, msg.AskTopic.Get(t.lang)),
	}
}

func meetingTopic(m *Machine, t *turn) Decision {
	topic, ok := boundedText(t.in.Text, maxLongRunes)
	if !ok {
		return reprompt(m, t, m.def(session.StateBookMeetingTopic), &msg.BadTopic)
	}
	email := t.sess.Value(session.FieldEmail)
	rec := &records.Record{
		Kind: records.KindMeeting,
		Fields: map[string]string{
			string(session.FieldName):  t.sess.Value(session.FieldName),
			string(session.FieldEmail): email,
			string(session.FieldTopic): topic,
		},
	}
	ds := []outbound.Directive{outbound.Text(fmt.Sprintf(msg.MeetingDone.Get(t.lang), email))}
	return Decision{
		Handler:    "book_meeting_topic.text",
		Outcome:    OutcomeCompleted,
		Reset:      true,
		Directives: append(ds, mainMenu(m, t, msg.MainMenu)...),
		Record:     rec,
	}
}

// lead qualification

func startLead(m *Machine, t *turn) Decision {
	return Decision{
		Handler:    "lead.start",
		Outcome:    OutcomeOK,
		Patch:      session.To(session.StateLeadService).Clear(),
		Directives: serviceMenu(m, t),
	}
}

func leadServiceSelection(m *Machine, t *turn) Decision {
	sel := t.in.Selection
	switch {
	case sel == BtnServiceOther:
		return Decision{
			Handler:    "lead_service.other",
			Outcome:    OutcomeOK,
			Patch:      session.To(session.StateLeadOtherServiceText),
			Directives: capture(t, msg.AskOtherService.Get(t.lang)),
		}
	case sel == BtnMainMenu:
		return captureSelection(m, t)
	case strings.HasPrefix(sel, BtnServicePrefix):
		if s, ok := t.tenant.Service(strings.TrimPrefix(sel, BtnServicePrefix)); ok {
			return leadService(m, t, "lead_service.selection", s.ID)
		}
	}
	return reprompt(m, t, m.def(session.StateLeadService), nil)
}

func leadServiceText(m *Machine, t *turn) Decision {
	text := strings.TrimSpace(t.in.Text)
	for _, s := range t.tenant.Services {
		if strings.EqualFold(text, s.ID) || strings.EqualFold(text, s.Title.Get(t.lang)) {
			return leadService(m, t, "lead_service.text", s.ID)
		}
	}
	v, ok := boundedText(text, maxShortRunes)
	if !ok {
		return reprompt(m, t, m.def(session.StateLeadService), &msg.BadText)
	}
	return leadService(m, t, "lead_service.text", v)
}

func leadOtherService(m *Machine, t *turn) Decision {
	v, ok := boundedText(t.in.Text, maxShortRunes)
	if !ok {
		return reprompt(m, t, m.def(session.StateLeadOtherServiceText), &msg.BadText)
	}
	return leadService(m, t, "lead_other_service_text.text", v)
}

func leadService(m *Machine, t *turn, name, service string) Decision {
	return Decision{
		Handler:    name,
		Outcome:    OutcomeOK,
		Patch:      session.To(session.StateLeadBudget).Set(session.FieldService, service),
		Directives: budgetMenu(m, t),
	}
}

// presetSelection stores the value behind a preset button and moves to next.
func presetSelection(values map[string]string, f session.Field, next session.State, prompt func(*Machine, *turn) []outbound.Directive) handler {
	return func(m *Machine, t *turn) Decision {
		v, ok := values[t.in.Selection]
		if !ok {
			return captureSelection(m, t)
		}
		return Decision{
			Handler:    m.def(t.sess.State).name + ".selection",
			Outcome:    OutcomeOK,
			Patch:      session.To(next).Set(f, v),
			Directives: prompt(m, t),
		}
	}
}

func leadBudgetText(m *Machine, t *turn) Decision {
	return leadFreeText(m, t, budgetValues, session.FieldBudget, session.StateLeadTimeline, timelineMenu)
}

func leadTimelineText(m *Machine, t *turn) Decision {
	return leadFreeText(m, t, timelineValues, session.FieldTimeline, session.StateLeadNotes, notesMenu)
}

// leadFreeText accepts a typed answer to a preset question. A typed button title counts as the tap.
func leadFreeText(m *Machine, t *turn, values map[string]string, f session.Field, next session.State, prompt func(*Machine, *turn) []outbound.Directive) Decision {
	def := m.def(t.sess.State)
	v, ok := boundedText(t.in.Text, maxShortRunes)
	if !ok {
		return reprompt(m, t, def, &msg.BadText)
	}
	for id, preset := range values {
		if strings.EqualFold(v, btn(t, id).Title) {
			v = preset
			break
		}
	}
	return Decision{
		Handler:    def.name + ".text",
		Outcome:    OutcomeOK,
		Patch:      session.To(next).Set(f, v),
		Directives: prompt(m, t),
	}
}

func leadNotesSelection(m *Machine, t *turn) Decision {
	if t.in.Selection == BtnSkipNotes {
		return completeLead(m, t, "lead_notes.skip", "")
	}
	return captureSelection(m, t)
}

func leadNotesText(m *Machine, t *turn) Decision {
	if strings.EqualFold(strings.TrimSpace(t.in.Text), btn(t, BtnSkipNotes).Title) {
		return completeLead(m, t, "lead_notes.skip", "")
	}
	notes, ok := boundedText(t.in.Text, maxLongRunes)
	if !ok {
		return reprompt(m, t, m.def(session.StateLeadNotes), &msg.BadText)
	}
	return completeLead(m, t, "lead_notes.text", notes)
}

func completeLead(m *Machine, t *turn, name, notes string) Decision {
	budget := t.sess.Value(session.FieldBudget)
	timeline := t.sess.Value(session.FieldTimeline)
	score := policy.ScoreLead(policy.Lead{Budget: budget, Timeline: timeline})

	reply := msg.LeadCold
	switch score {
	case policy.ScoreHot:
		reply = msg.LeadHot
	case policy.ScoreWarm:
		reply = msg.LeadWarm
	}
	rec := &records.Record{
		Kind: records.KindLead,
		Fields: map[string]string{
			string(session.FieldService):  t.sess.Value(session.FieldService),
			string(session.FieldBudget):   budget,
			string(session.FieldTimeline): timeline,
			string(session.FieldNotes):    notes,
		},
		Score: string(score),
	}
	ds := []outbound.Directive{outbound.Text(reply.Get(t.lang))}
	return Decision{
		Handler:    name,
		Outcome:    OutcomeCompleted,
		Reset:      true,
		Directives: append(ds, mainMenu(m, t, msg.MainMenu)...),
		Record:     rec,
	}
}

// human handover

func startHandover(m *Machine, t *turn) Decision {
	var ds []outbound.Directive
	if !policy.IsOpen(t.tenant.Hours, t.now) {
		ds = append(ds, afterHoursNotice(t))
	}
	return Decision{
		Handler:    "handover.start",
		Outcome:    OutcomeOK,
		Patch:      session.To(session.StateHandoverReason).Clear(),
		Directives: append(ds, capture(t, msg.AskReason.Get(t.lang))...),
	}
}

func handoverReason(m *Machine, t *turn) Decision {
	reason, ok := boundedText(t.in.Text, maxLongRunes)
	if !ok {
		return reprompt(m, t, m.def(session.StateHandoverReason), &msg.BadTopic)
	}
	support := t.tenant.Support
	contact := support.Phone
	if contact == "" {
		contact = support.Email
	}

	status := records.StatusOpen
	reply := fmt.Sprintf(msg.HandoverOpen.Get(t.lang), support.Name, contact)
	if !policy.IsOpen(t.tenant.Hours, t.now) {
		status = records.StatusAfterHours
		reply = fmt.Sprintf(msg.HandoverClosed.Get(t.lang), FormatHours(t.tenant.Hours, t.lang), support.Name)
	}
	rec := &records.Record{
		Kind:   records.KindHandover,
		Fields: map[string]string{string(session.FieldReason): reason},
		Status: status,
	}
	ds := []outbound.Directive{outbound.Text(reply)}
	return Decision{
		Handler:    "handover_reason.text",
		Outcome:    OutcomeCompleted,
		Reset:      true,
		Directives: append(ds, mainMenu(m, t, msg.MainMenu)...),
		Record:     rec,
	}
}
