package middleware

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestLimiterAllow(t *testing.T) {
	base := time.Date(2026, 10, 11, 6, 0, 0, 0, time.UTC)
	lim := NewLimiter(time.Second)

	steps := []struct {
		user int64
		at   time.Duration
		want bool
	}{
		{user: 1, at: 0, want: true},
		{user: 1, at: 300 * time.Millisecond, want: false},
		{user: 2, at: 400 * time.Millisecond, want: true},
		{user: 1, at: 900 * time.Millisecond, want: false},
		{user: 1, at: 1000 * time.Millisecond, want: true},
		{user: 2, at: 1500 * time.Millisecond, want: true},
	}
	for i, s := range steps {
		if got := lim.Allow(s.user, base.Add(s.at)); got != s.want {
			t.Fatalf("step %d: Allow(%d, +%v) = %v, want %v", i, s.user, s.at, got, s.want)
		}
	}
}

func TestLimiterDisabled(t *testing.T) {
	lim := NewLimiter(0)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if !lim.Allow(7, now) {
			t.Fatalf("disabled limiter rejected update %d", i)
		}
	}
}

func TestUpdateKind(t *testing.T) {
	tests := []struct {
		name string
		upd  tele.Update
		want string
	}{
		{name: "callback", upd: tele.Update{Callback: &tele.Callback{ID: "1"}}, want: KindCallback},
		{name: "message", upd: tele.Update{Message: &tele.Message{Text: "hi"}}, want: KindMessage},
		{name: "other", upd: tele.Update{}, want: KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpdateKind(tt.upd); got != tt.want {
				t.Fatalf("UpdateKind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContextFromNil(t *testing.T) {
	if ctx := ContextFrom(nil); ctx == nil {
		t.Fatal("ContextFrom(nil) returned nil context")
	}
}
