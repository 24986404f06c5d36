package outbound

import "strings"

const (
	// MaxButtons is the platform limit on reply buttons per message.
	MaxButtons = 3
	// MaxTitleRunes is the platform limit on a button title.
	MaxTitleRunes = 20
	// MaxBodyRunes is the platform limit on an interactive message body.
	MaxBodyRunes = 1024
)

// Kind tells the transport which capability a directive needs.
type Kind string

const (
	KindText    Kind = "text"
	KindButtons Kind = "buttons"
)

// Button is a reply option. ID comes back as the selection when pressed.
type Button struct {
	ID    string
	Title string
}

// Directive is one outbound message.
type Directive struct {
	Kind    Kind
	Body    string
	Buttons []Button
}

// Text builds a plain text directive.
func Text(body string) Directive {
	return Directive{Kind: KindText, Body: body}
}

// Menu builds button directives for body. Lists longer than MaxButtons are split
// and every continuation message uses moreBody. Without buttons it degrades to Text.
func Menu(body, moreBody string, buttons ...Button) []Directive {
	body = truncate(body, MaxBodyRunes)
	if len(buttons) == 0 {
		return []Directive{Text(body)}
	}
	if strings.TrimSpace(moreBody) == "" {
		moreBody = body
	}
	moreBody = truncate(moreBody, MaxBodyRunes)

	out := make([]Directive, 0, (len(buttons)+MaxButtons-1)/MaxButtons)
	for start := 0; start < len(buttons); start += MaxButtons {
		end := start + MaxButtons
		if end > len(buttons) {
			end = len(buttons)
		}
		chunk := make([]Button, 0, end-start)
		for _, b := range buttons[start:end] {
			chunk = append(chunk, Button{ID: b.ID, Title: truncate(b.Title, MaxTitleRunes)})
		}
		text := body
		if start > 0 {
			text = moreBody
		}
		out = append(out, Directive{Kind: KindButtons, Body: text, Buttons: chunk})
	}
	return out
}

// ButtonIDs lists the ids carried by ds in order.
func ButtonIDs(ds []Directive) []string {
	var ids []string
	for _, d := range ds {
		for _, b := range d.Buttons {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return strings.TrimSpace(string(r[:max-1])) + "…"
}
