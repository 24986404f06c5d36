package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/leadbot/core/conversation"
	"github.com/m3rciful/leadbot/core/lang"
	"github.com/m3rciful/leadbot/core/outbound"
	"github.com/m3rciful/leadbot/core/records"
	"github.com/m3rciful/leadbot/core/router"
	"github.com/m3rciful/leadbot/core/session"
	"github.com/m3rciful/leadbot/core/tenant"
)

// Sunday 10:00 at UTC+4.
var fixedNow = time.Date(2026, 10, 11, 6, 0, 0, 0, time.UTC)

type sent struct {
	to      string
	body    string
	buttons []string
}

type fakeTransport struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeTransport) SendText(_ context.Context, to, body string) error {
	return f.record(sent{to: to, body: body})
}

func (f *fakeTransport) SendButtons(_ context.Context, to, body string, buttons []outbound.Button) error {
	ids := make([]string, len(buttons))
	for i, b := range buttons {
		ids[i] = b.Title
	}
	return f.record(sent{to: to, body: body, buttons: ids})
}

func (f *fakeTransport) record(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, s)
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type permanentErr struct{}

func (permanentErr) Error() string   { return "bad request" }
func (permanentErr) StatusCode() int { return 400 }

type harness struct {
	engine    *Engine
	store     *session.MemoryStore
	log       *records.MemoryLog
	transport *fakeTransport
}

func newHarness(t *testing.T, sink records.Sink) *harness {
	t.Helper()
	now := func() time.Time { return fixedNow }
	h := &harness{
		store:     session.NewMemoryStore(session.Options{Now: now}),
		log:       records.NewMemoryLog(),
		transport: &fakeTransport{},
	}
	if sink == nil {
		sink = h.log
	}
	eng, err := New(Options{
		Store:   h.store,
		Machine: conversation.New(conversation.Config{DefaultLanguage: lang.English, Now: now}),
		Records: sink,
		Senders: map[string]*outbound.Sender{
			"whatsapp": outbound.NewSender(h.transport, outbound.Options{RetryBackoff: time.Millisecond}),
		},
		Now: now,
	})
	if err != nil {
		t.Fatal(err)
	}
	h.engine = eng
	return h
}

func textEvent(sender, id, text string) router.Event {
	return router.Event{Channel: "whatsapp", MessageID: id, SenderID: sender, Type: router.TypeText, Text: text}
}

func replyEvent(sender, id, reply string) router.Event {
	return router.Event{Channel: "whatsapp", MessageID: id, SenderID: sender, Type: router.TypeInteractive, ReplyID: reply}
}

func (h *harness) run(t *testing.T, evs ...router.Event) Result {
	t.Helper()
	var res Result
	for _, ev := range evs {
		var err error
		res, err = h.engine.Handle(context.Background(), ev)
		if err != nil {
			t.Fatalf("Handle(%s): %v", ev.MessageID, err)
		}
	}
	return res
}

func TestNewRequiresStoreAndMachine(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without a store")
	}
	if _, err := New(Options{Store: session.NewMemoryStore(session.Options{})}); err == nil {
		t.Fatal("expected error without a machine")
	}
}

func TestBookingEndToEnd(t *testing.T) {
	h := newHarness(t, nil)
	const sender = "15550001"
	h.run(t,
		replyEvent(sender, "m1", conversation.BtnBookMeeting),
		textEvent(sender, "m2", "Jane Doe"),
		textEvent(sender, "m3", "jane@x.com"),
	)
	res := h.run(t, textEvent(sender, "m4", "Pricing"))

	if res.Outcome != conversation.OutcomeCompleted || res.To != session.StateMainMenu {
		t.Fatalf("result = %+v", res)
	}
	recs := h.log.All()
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.Kind != records.KindMeeting || r.SenderID != sender || r.TenantID != tenant.DefaultID || r.Language != "en" {
		t.Fatalf("record identity = %+v", r)
	}
	if r.Fields["email"] != "jane@x.com" || r.ID.String() != res.RecordID {
		t.Fatalf("record = %+v, result id %s", r, res.RecordID)
	}
	sess, _ := h.store.Peek(sender)
	if sess.State != session.StateMainMenu || len(sess.Data) != 0 {
		t.Fatalf("session after completion = %+v", sess)
	}
}

func TestDuplicateMessageIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	const sender = "15550001"
	h.run(t, replyEvent(sender, "m1", conversation.BtnBookMeeting), textEvent(sender, "m2", "Jane"))
	before := h.transport.count()
	stateBefore, _ := h.store.Peek(sender)

	res := h.run(t, textEvent(sender, "m2", "Jane"))
	if res.Status != StatusDuplicate {
		t.Fatalf("status = %s, want duplicate", res.Status)
	}
	if h.transport.count() != before {
		t.Fatalf("duplicate produced %d sends", h.transport.count()-before)
	}
	stateAfter, _ := h.store.Peek(sender)
	if stateAfter.State != stateBefore.State || stateAfter.Value(session.FieldName) != "Jane" {
		t.Fatalf("duplicate changed the session: %+v", stateAfter)
	}
}

func TestTransportFailureKeepsCommittedStateAndRecord(t *testing.T) {
	h := newHarness(t, nil)
	const sender = "15550001"
	h.run(t,
		replyEvent(sender, "m1", conversation.BtnBookMeeting),
		textEvent(sender, "m2", "Jane Doe"),
		textEvent(sender, "m3", "jane@x.com"),
	)
	h.transport.err = permanentErr{}

	res, err := h.engine.Handle(context.Background(), textEvent(sender, "m4", "Pricing"))
	if err == nil {
		t.Fatal("expected a delivery error")
	}
	if res.Status != StatusFail || res.Sent != 0 {
		t.Fatalf("result = %+v", res)
	}
	if h.log.Len() != 1 {
		t.Fatalf("records = %d, want 1", h.log.Len())
	}
	sess, _ := h.store.Peek(sender)
	if sess.State != session.StateMainMenu {
		t.Fatalf("state = %s, want MAIN_MENU", sess.State)
	}
}

func TestTenantResolvedFromSender(t *testing.T) {
	tests := []struct {
		sender string
		want   string
	}{
		{"15550002", "Custom platforms"},
		{"15550003", "Websites"},
	}
	for _, tt := range tests {
		h := newHarness(t, nil)
		h.run(t, replyEvent(tt.sender, "m1", conversation.BtnServices))
		h.transport.mu.Lock()
		catalog := h.transport.msgs[0].body
		h.transport.mu.Unlock()
		if !strings.Contains(catalog, tt.want) {
			t.Errorf("%s: catalog %q does not list %q", tt.sender, catalog, tt.want)
		}
	}
}

func TestMalformedEventIgnored(t *testing.T) {
	h := newHarness(t, nil)
	res := h.run(t, router.Event{Channel: "whatsapp", MessageID: "m1", Type: router.TypeText, Text: "hi"})
	if res.Status != StatusIgnored {
		t.Fatalf("status = %s, want ignored", res.Status)
	}
	if h.transport.count() != 0 || h.store.Len() != 0 {
		t.Fatal("malformed event touched the store or transport")
	}
}

func TestPanicIsRecoveredAndLockReleased(t *testing.T) {
	boom := records.SinkFunc(func(context.Context, records.Record) error { panic("sink exploded") })
	h := newHarness(t, boom)
	const sender = "15550001"
	h.run(t, replyEvent(sender, "m1", conversation.BtnHandover))
	res, err := h.engine.Handle(context.Background(), textEvent(sender, "m2", "help me"))
	if err == nil || res.Status != StatusFail {
		t.Fatalf("Handle after panic = %+v, %v", res, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.engine.Handle(context.Background(), textEvent(sender, "m3", "menu"))
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Handle after recovery: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sender lock was not released after the panic")
	}
}

func bookUntilTopic(t *testing.T, h *harness, sender string) {
	t.Helper()
	h.run(t,
		replyEvent(sender, "m1", conversation.BtnBookMeeting),
		textEvent(sender, "m2", "Jane Doe"),
		textEvent(sender, "m3", "jane@x.com"),
	)
}

func TestRecordFailureLeavesStepForRedelivery(t *testing.T) {
	log := records.NewMemoryLog()
	var calls int
	flaky := records.SinkFunc(func(ctx context.Context, r records.Record) error {
		calls++
		if calls == 1 {
			return errors.New("db down")
		}
		return log.Append(ctx, r)
	})
	h := newHarness(t, flaky)
	const sender = "15550001"
	bookUntilTopic(t, h, sender)
	before := h.transport.count()

	res, err := h.engine.Handle(context.Background(), textEvent(sender, "m4", "Pricing"))
	if err == nil || res.Status != StatusFail {
		t.Fatalf("first delivery = %+v, %v; want append failure", res, err)
	}
	if h.transport.count() != before {
		t.Fatal("confirmation sent for a record that was not stored")
	}
	sess, _ := h.store.Peek(sender)
	if sess.State != session.StateBookMeetingTopic || sess.Value(session.FieldEmail) != "jane@x.com" {
		t.Fatalf("session after failed append = %+v", sess)
	}

	res = h.run(t, textEvent(sender, "m4", "Pricing"))
	if res.Status != StatusOK || res.To != session.StateMainMenu {
		t.Fatalf("redelivery = %+v", res)
	}
	if log.Len() != 1 || log.All()[0].Fields["topic"] != "Pricing" {
		t.Fatalf("records = %+v", log.All())
	}
}

func TestCancelledEventStillStoresRecord(t *testing.T) {
	log := records.NewMemoryLog()
	ctxAware := records.SinkFunc(func(ctx context.Context, r records.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return log.Append(ctx, r)
	})
	h := newHarness(t, ctxAware)
	const sender = "15550001"
	bookUntilTopic(t, h, sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = h.engine.Handle(ctx, textEvent(sender, "m4", "Pricing"))

	if res := h.run(t, textEvent(sender, "m4", "Pricing")); res.Status != StatusDuplicate {
		t.Fatalf("redelivery status = %s, want duplicate", res.Status)
	}
	if log.Len() != 1 {
		t.Fatalf("records = %d, want 1", log.Len())
	}
	sess, _ := h.store.Peek(sender)
	if sess.State != session.StateMainMenu || len(sess.Data) != 0 {
		t.Fatalf("session = %+v", sess)
	}
}

func TestLockWaitAbortAllowsRedelivery(t *testing.T) {
	h := newHarness(t, nil)
	const sender = "15550001"
	bookUntilTopic(t, h, sender)

	unlock, err := h.store.Lock(context.Background(), sender)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := h.engine.Handle(ctx, textEvent(sender, "m4", "Pricing")); !errors.Is(err, session.ErrLockAborted) {
		t.Fatalf("err = %v, want ErrLockAborted", err)
	}
	unlock()

	if res := h.run(t, textEvent(sender, "m4", "Pricing")); res.Status != StatusOK {
		t.Fatalf("redelivery status = %s, want ok", res.Status)
	}
	if h.log.Len() != 1 {
		t.Fatalf("records = %d, want 1", h.log.Len())
	}
}

func TestConcurrentDuplicateCompletionAppendsOnce(t *testing.T) {
	h := newHarness(t, nil)
	const sender = "15550001"
	bookUntilTopic(t, h, sender)

	const workers = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.engine.Handle(context.Background(), textEvent(sender, "m4", "Pricing"))
			if err != nil {
				t.Errorf("Handle: %v", err)
				return
			}
			if res.Status == StatusOK {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if fresh != 1 {
		t.Fatalf("transitions = %d, want 1", fresh)
	}
	if h.log.Len() != 1 {
		t.Fatalf("records = %d, want 1", h.log.Len())
	}
	sess, _ := h.store.Peek(sender)
	if sess.State != session.StateMainMenu || len(sess.Data) != 0 {
		t.Fatalf("session = %+v", sess)
	}
}

func TestConcurrentEventsForOneSender(t *testing.T) {
	h := newHarness(t, nil)
	const sender = "15550001"
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "c" + string(rune('a'+i))
			_, _ = h.engine.Handle(context.Background(), replyEvent(sender, id, conversation.BtnMore))
		}(i)
	}
	wg.Wait()
	sess, ok := h.store.Peek(sender)
	if !ok || sess.State != session.StateMoreMenu {
		t.Fatalf("session = %+v", sess)
	}
}

func TestDeriveErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{permanentErr{}, "PERMANENTERR"},
		{errors.Join(errors.New("x"), permanentErr{}), "ERRORSTRING"},
	}
	for _, tt := range tests {
		if got := deriveErrorCode(tt.err); got != tt.want {
			t.Errorf("deriveErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
