package conversation

import (
	"time"

	"github.com/m3rciful/leadbot/core/lang"
	"github.com/m3rciful/leadbot/core/outbound"
	"github.com/m3rciful/leadbot/core/session"
	"github.com/m3rciful/leadbot/core/tenant"
)

// handler computes the decision for one (state, input kind) cell.
type handler func(m *Machine, t *turn) Decision

// stateDef describes one state: the prompt that re-asks its question and the cell handlers.
type stateDef struct {
	name      string
	prompt    func(m *Machine, t *turn) []outbound.Directive
	text      handler
	selection handler
}

// turn carries what a handler needs to know about the current input.
type turn struct {
	sess   session.Session
	in     Input
	tenant *tenant.Tenant
	lang   lang.Language
	now    time.Time
}

// Machine decides transitions. It holds no per-sender state and is safe for concurrent use.
type Machine struct {
	cfg   Config
	defs  map[session.State]stateDef
	table map[session.State]map[InputKind]handler
}

// New builds a machine and its dispatch table.
func New(cfg Config) *Machine {
	if cfg.Tenants == nil {
		cfg.Tenants = tenant.DefaultRegistry()
	}
	if !cfg.DefaultLanguage.Valid() {
		cfg.DefaultLanguage = lang.English
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	m := &Machine{cfg: cfg, defs: stateDefs()}
	m.table = make(map[session.State]map[InputKind]handler, len(m.defs))
	for st, def := range m.defs {
		def := def
		m.table[st] = map[InputKind]handler{
			InputText:        def.text,
			InputSelection:   def.selection,
			InputUnsupported: unsupportedIn(def),
		}
	}
	return m
}

// Config returns the machine configuration with defaults applied.
func (m *Machine) Config() Config {
	return m.cfg
}

// Handles reports whether the dispatch table has a cell for (st, kind).
func (m *Machine) Handles(st session.State, kind InputKind) bool {
	cells, ok := m.table[st]
	if !ok {
		return false
	}
	h, ok := cells[kind]
	return ok && h != nil
}

// Decide computes the next step for sess given in.
func (m *Machine) Decide(sess session.Session, in Input) Decision {
	t := &turn{
		sess:   sess,
		in:     in,
		tenant: m.cfg.Tenants.Lookup(sess.TenantID),
		lang:   sess.Language,
		now:    m.cfg.Now(),
	}

	// Language gate: nothing moves until a language is picked.
	if sess.Language == lang.Unset && (m.cfg.RequireLanguage || sess.State == session.StateLanguageSelect) {
		return m.dispatch(session.StateLanguageSelect, t)
	}

	// One-time hint: the first input of an ungated session fixes the language for good.
	detected := false
	if t.lang == lang.Unset {
		t.lang = m.cfg.DefaultLanguage
		if in.Kind == InputText {
			t.lang = lang.Detect(in.Text, m.cfg.DefaultLanguage)
		}
		detected = true
	}

	var d Decision
	if c, ok := matchCommand(in.Text); ok && in.Kind == InputText && sess.State != session.StateLanguageSelect {
		d = m.runCommand(c, t)
	} else {
		d = m.dispatch(sess.State, t)
	}
	if detected && d.Patch.Language == nil {
		d.Patch = d.Patch.WithLanguage(t.lang)
	}
	return d
}

func (m *Machine) dispatch(st session.State, t *turn) Decision {
	cells, ok := m.table[st]
	if !ok {
		// Unknown state: recover to the main menu.
		d := showMainMenu(m, t, msg.NotUnderstood)
		d.Handler = "fallback.unknown_state"
		return d
	}
	h, ok := cells[t.in.Kind]
	if !ok || h == nil {
		h = cells[InputUnsupported]
	}
	return h(m, t)
}

func (m *Machine) runCommand(c command, t *turn) Decision {
	switch c {
	case cmdReset:
		d := Decision{
			Handler:    "command.reset",
			Outcome:    OutcomeOK,
			Reset:      true,
			Directives: []outbound.Directive{outbound.Text(msg.ResetDone.Get(t.lang))},
		}
		d.Directives = append(d.Directives, mainMenu(m, t, msg.MainMenu)...)
		return d
	case cmdSupport:
		d := startHandover(m, t)
		d.Handler = "command.support"
		return d
	case cmdLanguage:
		return Decision{
			Handler:    "command.language",
			Outcome:    OutcomeOK,
			Patch:      session.To(session.StateLanguageSelect),
			Directives: languageMenu(),
		}
	default:
		d := showMainMenu(m, t, msg.MainMenu)
		d.Handler = "command.menu"
		return d
	}
}

// unsupportedIn answers media and other unreadable input without changing state.
func unsupportedIn(def stateDef) handler {
	return func(m *Machine, t *turn) Decision {
		ds := []outbound.Directive{outbound.Text(msg.Unsupported.Get(t.lang))}
		if t.lang == lang.Unset {
			ds = nil
		}
		return Decision{
			Handler:    def.name + ".unsupported",
			Outcome:    OutcomeReprompt,
			Directives: append(ds, def.prompt(m, t)...),
		}
	}
}

// reprompt repeats the current step's question, optionally after an explanation.
func reprompt(m *Machine, t *turn, def stateDef, note *lang.Text) Decision {
	var ds []outbound.Directive
	if note != nil {
		ds = append(ds, outbound.Text(note.Get(t.lang)))
	}
	return Decision{
		Handler:    def.name + "." + string(t.in.Kind),
		Outcome:    OutcomeReprompt,
		Directives: append(ds, def.prompt(m, t)...),
	}
}

func (m *Machine) def(st session.State) stateDef {
	return m.defs[st]
}
