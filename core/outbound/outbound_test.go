package outbound

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

type sent struct {
	to      string
	body    string
	buttons []Button
}

type fakeTransport struct {
	sent  []sent
	errs  []error // consumed one per call; nil entries succeed
	calls int
}

func (f *fakeTransport) next() error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeTransport) SendText(_ context.Context, to, body string) error {
	if err := f.next(); err != nil {
		return err
	}
	f.sent = append(f.sent, sent{to: to, body: body})
	return nil
}

func (f *fakeTransport) SendButtons(_ context.Context, to, body string, buttons []Button) error {
	if err := f.next(); err != nil {
		return err
	}
	f.sent = append(f.sent, sent{to: to, body: body, buttons: buttons})
	return nil
}

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("api status %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

func buttons(n int) []Button {
	out := make([]Button, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Button{ID: fmt.Sprintf("b%d", i), Title: fmt.Sprintf("Option %d", i)})
	}
	return out
}

func TestMenuNeverExceedsButtonLimit(t *testing.T) {
	for n := 0; n <= 10; n++ {
		ds := Menu("Pick one", "More options", buttons(n)...)
		total := 0
		for i, d := range ds {
			if len(d.Buttons) > MaxButtons {
				t.Fatalf("n=%d: directive %d has %d buttons", n, i, len(d.Buttons))
			}
			total += len(d.Buttons)
			if i > 0 && d.Body != "More options" {
				t.Fatalf("n=%d: continuation body = %q", n, d.Body)
			}
		}
		if total != n {
			t.Fatalf("n=%d: lost buttons, got %d", n, total)
		}
		if n == 0 && (len(ds) != 1 || ds[0].Kind != KindText) {
			t.Fatalf("empty menu should degrade to text: %+v", ds)
		}
	}
}

func TestMenuKeepsOrder(t *testing.T) {
	ds := Menu("Services", "", buttons(5)...)
	got := strings.Join(ButtonIDs(ds), ",")
	if got != "b0,b1,b2,b3,b4" {
		t.Fatalf("order = %s", got)
	}
	if ds[1].Body != "Services" {
		t.Fatalf("empty more body should reuse body, got %q", ds[1].Body)
	}
}

func TestMenuTruncates(t *testing.T) {
	long := strings.Repeat("خدمات ", 10)
	ds := Menu(strings.Repeat("x", 2000), "", Button{ID: "a", Title: long})
	if n := utf8.RuneCountInString(ds[0].Body); n != MaxBodyRunes {
		t.Fatalf("body runes = %d", n)
	}
	title := ds[0].Buttons[0].Title
	if n := utf8.RuneCountInString(title); n > MaxTitleRunes {
		t.Fatalf("title runes = %d (%q)", n, title)
	}
	if !strings.HasSuffix(title, "…") {
		t.Fatalf("expected ellipsis, got %q", title)
	}
}

func TestSenderDeliversInOrder(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSender(tr, Options{})
	ds := append([]Directive{Text("hello")}, Menu("menu", "", buttons(2)...)...)

	n, err := s.Send(context.Background(), "971", ds)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if n != 2 || len(tr.sent) != 2 {
		t.Fatalf("sent %d/%d", n, len(tr.sent))
	}
	if tr.sent[0].body != "hello" || len(tr.sent[1].buttons) != 2 {
		t.Fatalf("unexpected deliveries: %+v", tr.sent)
	}
}

func TestSenderRetriesTransientErrors(t *testing.T) {
	tr := &fakeTransport{errs: []error{statusErr(503), statusErr(429)}}
	s := NewSender(tr, Options{MaxRetries: 3, RetryBackoff: time.Millisecond})

	n, err := s.Send(context.Background(), "971", []Directive{Text("hi")})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if n != 1 || tr.calls != 3 {
		t.Fatalf("n=%d calls=%d", n, tr.calls)
	}
}

func TestSenderStopsAtPermanentFailure(t *testing.T) {
	boom := statusErr(400)
	tr := &fakeTransport{errs: []error{nil, boom}}
	s := NewSender(tr, Options{MaxRetries: 3, RetryBackoff: time.Millisecond})

	n, err := s.Send(context.Background(), "971", []Directive{Text("a"), Text("b"), Text("c")})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped 400, got %v", err)
	}
	if n != 1 || tr.calls != 2 {
		t.Fatalf("n=%d calls=%d", n, tr.calls)
	}
	if s.ErrorCount() != 1 {
		t.Fatalf("error count = %d", s.ErrorCount())
	}
}

func TestSenderWithoutTransport(t *testing.T) {
	var s *Sender
	if _, err := s.Send(context.Background(), "1", []Directive{Text("x")}); !errors.Is(err, ErrNoTransport) {
		t.Fatalf("expected ErrNoTransport, got %v", err)
	}
}
