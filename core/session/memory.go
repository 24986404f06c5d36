package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/leadbot/core/lang"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/tenant"
)

const (
	DefaultTTL           = 6 * time.Hour
	DefaultDedupeWindow  = 10 * time.Minute
	DefaultSweepInterval = 2 * time.Minute
)

// Options configures a MemoryStore. Zero values fall back to the defaults above.
type Options struct {
	TTL           time.Duration
	DedupeWindow  time.Duration
	SweepInterval time.Duration
	// InitialState is the state of a newly created session.
	InitialState State
	Resolver     tenant.Resolver
	Now          func() time.Time
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	opts Options

	mu        sync.Mutex
	sessions  map[string]*Session
	seen      map[string]time.Time
	lastSweep time.Time

	locksMu sync.Mutex
	locks   map[string]*senderLock
}

// senderLock is a one-slot semaphore so waiters can give up on ctx.
type senderLock struct {
	sem  chan struct{}
	refs int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts Options) *MemoryStore {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = DefaultDedupeWindow
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if !opts.InitialState.Valid() {
		opts.InitialState = StateMainMenu
	}
	if opts.Resolver == nil {
		opts.Resolver = tenant.NewDigitParity()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &MemoryStore{
		opts:     opts,
		sessions: make(map[string]*Session),
		seen:     make(map[string]time.Time),
		locks:    make(map[string]*senderLock),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, senderID string) (Session, error) {
	id, err := normalizeSender(senderID)
	if err != nil {
		return Session{}, err
	}
	now := m.opts.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeSweepLocked(now)
	return m.getOrCreateLocked(id, now).clone(), nil
}

// Patch implements Store.
func (m *MemoryStore) Patch(_ context.Context, senderID string, p Patch) (Session, error) {
	id, err := normalizeSender(senderID)
	if err != nil {
		return Session{}, err
	}
	now := m.opts.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeSweepLocked(now)

	sess := m.getOrCreateLocked(id, now)
	if p.State != nil {
		sess.State = *p.State
	}
	if p.Language != nil {
		sess.Language = *p.Language
	}
	if p.ClearData {
		sess.Data = make(map[Field]string)
	}
	for k, v := range p.Data {
		sess.Data[k] = v
	}
	sess.LastActiveAt = now
	return sess.clone(), nil
}

// Reset implements Store.
func (m *MemoryStore) Reset(_ context.Context, senderID string) (Session, error) {
	id, err := normalizeSender(senderID)
	if err != nil {
		return Session{}, err
	}
	now := m.opts.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeSweepLocked(now)

	sess := m.getOrCreateLocked(id, now)
	sess.State = StateMainMenu
	sess.Data = make(map[Field]string)
	sess.LastActiveAt = now
	return sess.clone(), nil
}

// MarkSeen implements Store.
func (m *MemoryStore) MarkSeen(_ context.Context, messageID string) (bool, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return false, nil
	}
	now := m.opts.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeSweepLocked(now)

	if ts, ok := m.seen[messageID]; ok && now.Sub(ts) <= m.opts.DedupeWindow {
		return true, nil
	}
	m.seen[messageID] = now
	return false, nil
}

// Forget implements Store.
func (m *MemoryStore) Forget(_ context.Context, messageID string) error {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return nil
	}
	m.mu.Lock()
	delete(m.seen, messageID)
	m.mu.Unlock()
	return nil
}

// Sweep implements Store.
func (m *MemoryStore) Sweep(now time.Time) SweepResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(now)
}

// Lock implements Store. Locks for different senders are independent.
func (m *MemoryStore) Lock(ctx context.Context, senderID string) (func(), error) {
	key := strings.TrimSpace(senderID)

	m.locksMu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &senderLock{sem: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.locksMu.Unlock()

	select {
	case l.sem <- struct{}{}:
	default:
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			m.release(key, l)
			return nil, fmt.Errorf("%w: %w", ErrLockAborted, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			m.release(key, l)
		})
	}, nil
}

func (m *MemoryStore) release(key string, l *senderLock) {
	m.locksMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
	m.locksMu.Unlock()
}

// Peek returns a copy of the sender's session without creating one.
func (m *MemoryStore) Peek(senderID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[strings.TrimSpace(senderID)]
	if !ok {
		return Session{}, false
	}
	return sess.clone(), true
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) getOrCreateLocked(id string, now time.Time) *Session {
	if sess, ok := m.sessions[id]; ok {
		if now.Sub(sess.LastActiveAt) <= m.opts.TTL {
			return sess
		}
		delete(m.sessions, id)
	}
	sess := &Session{
		SenderID:     id,
		State:        m.opts.InitialState,
		Language:     lang.Unset,
		TenantID:     m.opts.Resolver.Resolve(id),
		Data:         make(map[Field]string),
		CreatedAt:    now,
		LastActiveAt: now,
	}
	m.sessions[id] = sess
	return sess
}

func (m *MemoryStore) maybeSweepLocked(now time.Time) {
	if !m.lastSweep.IsZero() && now.Sub(m.lastSweep) < m.opts.SweepInterval {
		return
	}
	res := m.sweepLocked(now)
	if res.Sessions > 0 || res.Messages > 0 {
		logger.Debug(context.Background(), "session", "sweep",
			slog.String("status", "ok"),
			slog.Int("sessions_evicted", res.Sessions),
			slog.Int("messages_evicted", res.Messages),
			slog.Int("sessions_live", len(m.sessions)),
		)
	}
}

func (m *MemoryStore) sweepLocked(now time.Time) SweepResult {
	var res SweepResult
	for id, sess := range m.sessions {
		if now.Sub(sess.LastActiveAt) > m.opts.TTL {
			delete(m.sessions, id)
			res.Sessions++
		}
	}
	for id, ts := range m.seen {
		if now.Sub(ts) > m.opts.DedupeWindow {
			delete(m.seen, id)
			res.Messages++
		}
	}
	m.lastSweep = now
	return res
}

func normalizeSender(senderID string) (string, error) {
	id := strings.TrimSpace(senderID)
	if id == "" {
		return "", ErrEmptySender
	}
	return id, nil
}
