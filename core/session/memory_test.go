package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/leadbot/core/lang"
	"github.com/m3rciful/leadbot/core/tenant"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(clock *fakeClock) *MemoryStore {
	return NewMemoryStore(Options{Now: clock.Now})
}

func TestGetCreatesSessionWithResolvedTenant(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)
	ctx := context.Background()

	cases := []struct {
		sender string
		tenant string
	}{
		{"971500000004", tenant.PremiumID},
		{"971500000007", tenant.DefaultID},
		{"user-x", tenant.DefaultID},
	}
	for _, tc := range cases {
		sess, err := store.Get(ctx, tc.sender)
		if err != nil {
			t.Fatalf("get %s: %v", tc.sender, err)
		}
		if sess.TenantID != tc.tenant {
			t.Fatalf("sender %s: tenant = %s, want %s", tc.sender, sess.TenantID, tc.tenant)
		}
		if sess.State != StateMainMenu {
			t.Fatalf("sender %s: state = %s, want %s", tc.sender, sess.State, StateMainMenu)
		}
		if sess.Language != lang.Unset || len(sess.Data) != 0 {
			t.Fatalf("sender %s: expected fresh session, got %+v", tc.sender, sess)
		}
	}
	if store.Len() != len(cases) {
		t.Fatalf("len = %d, want %d", store.Len(), len(cases))
	}
}

func TestGetUsesInitialState(t *testing.T) {
	store := NewMemoryStore(Options{InitialState: StateLanguageSelect})
	sess, err := store.Get(context.Background(), "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.State != StateLanguageSelect {
		t.Fatalf("state = %s, want %s", sess.State, StateLanguageSelect)
	}
}

func TestGetRejectsEmptySender(t *testing.T) {
	store := NewMemoryStore(Options{})
	if _, err := store.Get(context.Background(), "  "); !errors.Is(err, ErrEmptySender) {
		t.Fatalf("expected ErrEmptySender, got %v", err)
	}
}

func TestPatchMergesDataPerField(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)
	ctx := context.Background()

	if _, err := store.Patch(ctx, "42", Patch{}.Set(FieldName, "Jane Doe").Set(FieldEmail, "jane@x.com")); err != nil {
		t.Fatalf("patch: %v", err)
	}
	clock.Advance(time.Minute)
	sess, err := store.Patch(ctx, "42", To(StateBookMeetingTopic).Set(FieldTopic, "Pricing"))
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	want := map[Field]string{FieldName: "Jane Doe", FieldEmail: "jane@x.com", FieldTopic: "Pricing"}
	for k, v := range want {
		if sess.Data[k] != v {
			t.Fatalf("field %s = %q, want %q", k, sess.Data[k], v)
		}
	}
	if sess.State != StateBookMeetingTopic {
		t.Fatalf("state = %s", sess.State)
	}
	if !sess.LastActiveAt.Equal(clock.Now()) {
		t.Fatalf("last active not refreshed: %v", sess.LastActiveAt)
	}
	if sess.CreatedAt.Equal(sess.LastActiveAt) {
		t.Fatal("created_at should not move on patch")
	}
}

func TestPatchClearDataDropsPreviousFields(t *testing.T) {
	store := NewMemoryStore(Options{})
	ctx := context.Background()
	if _, err := store.Patch(ctx, "42", Patch{}.Set(FieldReason, "late")); err != nil {
		t.Fatalf("patch: %v", err)
	}
	sess, err := store.Patch(ctx, "42", To(StateLeadService).Clear().Set(FieldService, "web"))
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if sess.Has(FieldReason) {
		t.Fatal("reason should be cleared")
	}
	if sess.Value(FieldService) != "web" {
		t.Fatalf("service = %q", sess.Value(FieldService))
	}
}

func TestPatchPreservesTenant(t *testing.T) {
	store := NewMemoryStore(Options{})
	ctx := context.Background()
	first, _ := store.Get(ctx, "5554")
	sess, err := store.Patch(ctx, "5554", To(StateMoreMenu).WithLanguage(lang.Arabic))
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if sess.TenantID != first.TenantID || sess.TenantID != tenant.PremiumID {
		t.Fatalf("tenant changed: %s -> %s", first.TenantID, sess.TenantID)
	}
	if sess.Language != lang.Arabic {
		t.Fatalf("language = %s", sess.Language)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Options{})
	ctx := context.Background()
	sess, _ := store.Patch(ctx, "1", Patch{}.Set(FieldName, "A"))
	sess.Data[FieldName] = "mutated"

	again, _ := store.Get(ctx, "1")
	if again.Value(FieldName) != "A" {
		t.Fatalf("store aliased caller map: %q", again.Value(FieldName))
	}
}

func TestResetKeepsTenantAndLanguage(t *testing.T) {
	store := NewMemoryStore(Options{})
	ctx := context.Background()
	if _, err := store.Patch(ctx, "8", To(StateLeadBudget).WithLanguage(lang.English).Set(FieldService, "web")); err != nil {
		t.Fatalf("patch: %v", err)
	}
	sess, err := store.Reset(ctx, "8")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if sess.State != StateMainMenu || len(sess.Data) != 0 {
		t.Fatalf("unexpected session after reset: %+v", sess)
	}
	if sess.Language != lang.English || sess.TenantID != tenant.PremiumID {
		t.Fatalf("reset lost language or tenant: %+v", sess)
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)
	ctx := context.Background()

	if _, err := store.Get(ctx, "idle"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := store.Get(ctx, "busy"); err != nil {
		t.Fatalf("get: %v", err)
	}
	clock.Advance(5 * time.Hour)
	if _, err := store.Patch(ctx, "busy", To(StateMoreMenu)); err != nil {
		t.Fatalf("patch: %v", err)
	}
	clock.Advance(2 * time.Hour)

	// Any access past the sweep interval triggers the sweep.
	if _, err := store.Get(ctx, "other"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := store.Peek("idle"); ok {
		t.Fatal("idle session should be evicted")
	}
	if _, ok := store.Peek("busy"); !ok {
		t.Fatal("session touched within ttl should survive")
	}
}

func TestSweepIsRateLimited(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(Options{TTL: time.Minute, Now: clock.Now})
	ctx := context.Background()

	if _, err := store.Get(ctx, "a"); err != nil { // first access sweeps
		t.Fatalf("get: %v", err)
	}
	clock.Advance(90 * time.Second)
	if _, err := store.Get(ctx, "b"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := store.Peek("a"); !ok {
		t.Fatal("sweep ran before the interval elapsed")
	}
	clock.Advance(time.Minute)
	if _, err := store.Get(ctx, "b"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := store.Peek("a"); ok {
		t.Fatal("expired session should be swept after the interval")
	}
}

func TestGetRecreatesExpiredSession(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)
	ctx := context.Background()

	if _, err := store.Patch(ctx, "3", To(StateLeadNotes).Set(FieldBudget, "high")); err != nil {
		t.Fatalf("patch: %v", err)
	}
	clock.Advance(7 * time.Hour)
	sess, err := store.Get(ctx, "3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.State != StateMainMenu || sess.Has(FieldBudget) {
		t.Fatalf("expected fresh session, got %+v", sess)
	}
}

func TestMarkSeenWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)
	ctx := context.Background()

	steps := []struct {
		advance time.Duration
		id      string
		dup     bool
	}{
		{0, "wamid.1", false},
		{time.Second, "wamid.1", true},
		{time.Second, "wamid.2", false},
		{11 * time.Minute, "wamid.1", false},
		{0, "", false},
		{0, "", false},
	}
	for i, s := range steps {
		clock.Advance(s.advance)
		dup, err := store.MarkSeen(ctx, s.id)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if dup != s.dup {
			t.Fatalf("step %d (%q): dup = %v, want %v", i, s.id, dup, s.dup)
		}
	}
}

func TestMarkSeenConcurrent(t *testing.T) {
	store := NewMemoryStore(Options{})
	ctx := context.Background()

	const workers = 32
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dup, err := store.MarkSeen(ctx, "wamid.same")
			if err != nil {
				t.Errorf("mark seen: %v", err)
				return
			}
			if !dup {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if fresh != 1 {
		t.Fatalf("expected exactly one first delivery, got %d", fresh)
	}
}

func TestLockSerializesSameSender(t *testing.T) {
	store := NewMemoryStore(Options{})
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := store.Lock(ctx, "77")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()
			sess, err := store.Get(ctx, "77")
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			n := len(sess.Data)
			if _, err := store.Patch(ctx, "77", Patch{}.Set(Field("f"+strconv.Itoa(n)), "x")); err != nil {
				t.Errorf("patch: %v", err)
			}
		}()
	}
	wg.Wait()

	sess, _ := store.Peek("77")
	if len(sess.Data) != workers {
		t.Fatalf("lost updates: %d fields, want %d", len(sess.Data), workers)
	}
	store.locksMu.Lock()
	left := len(store.locks)
	store.locksMu.Unlock()
	if left != 0 {
		t.Fatalf("lock entries leaked: %d", left)
	}
}

func TestLockDifferentSendersIndependent(t *testing.T) {
	store := NewMemoryStore(Options{})
	ctx := context.Background()
	unlockA, err := store.Lock(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := store.Lock(ctx, "b")
		if err != nil {
			t.Errorf("lock b: %v", err)
			close(done)
			return
		}
		unlockB()
		unlockB()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for b blocked behind a")
	}
}

func TestLockGivesUpWhenContextEnds(t *testing.T) {
	store := NewMemoryStore(Options{})
	unlock, err := store.Lock(context.Background(), "9")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := store.Lock(ctx, "9"); !errors.Is(err, ErrLockAborted) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want ErrLockAborted wrapping the deadline", err)
	}

	unlock()
	again, err := store.Lock(context.Background(), "9")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()

	store.locksMu.Lock()
	left := len(store.locks)
	store.locksMu.Unlock()
	if left != 0 {
		t.Fatalf("lock entries leaked: %d", left)
	}
}

func TestForgetAllowsRedelivery(t *testing.T) {
	store := NewMemoryStore(Options{})
	ctx := context.Background()

	if dup, _ := store.MarkSeen(ctx, "wamid.9"); dup {
		t.Fatal("first delivery reported as duplicate")
	}
	if err := store.Forget(ctx, "wamid.9"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if dup, _ := store.MarkSeen(ctx, "wamid.9"); dup {
		t.Fatal("redelivery after Forget reported as duplicate")
	}
	if dup, _ := store.MarkSeen(ctx, "wamid.9"); !dup {
		t.Fatal("third delivery not reported as duplicate")
	}
}
