// Package engine runs one inbound event through dedupe, the per-sender lock, the state machine,
// record sinks, the session commit and outbound delivery, in that order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/m3rciful/leadbot/core/conversation"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/outbound"
	"github.com/m3rciful/leadbot/core/records"
	"github.com/m3rciful/leadbot/core/router"
	"github.com/m3rciful/leadbot/core/session"
)

// Result statuses.
const (
	StatusOK        = "ok"
	StatusDuplicate = "duplicate"
	StatusIgnored   = "ignored"
	StatusFail      = "fail"
)

// DefaultRecordTimeout bounds one record append.
const DefaultRecordTimeout = 10 * time.Second

// Options wires an Engine.
type Options struct {
	Store   session.Store
	Machine *conversation.Machine
	// Records receives completed flows. Nil discards them.
	Records records.Sink
	// Senders maps a channel name to its outbound sender.
	Senders map[string]*outbound.Sender
	// RecordTimeout bounds a record append. The append does not inherit the event's cancellation.
	RecordTimeout time.Duration
	Now           func() time.Time
}

// Engine is safe for concurrent use. Events from one sender are serialized by the store lock.
type Engine struct {
	store   session.Store
	machine *conversation.Machine
	records records.Sink
	senders map[string]*outbound.Sender
	now     func() time.Time

	recordTimeout time.Duration
}

// Result describes what handling one event did.
type Result struct {
	Status     string
	Handler    string
	Outcome    string
	Input      conversation.InputKind
	From       session.State
	To         session.State
	Sent       int
	Total      int
	RecordID   string
	RecordKind records.Kind
}

// New validates opts and returns an engine.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: nil session store")
	}
	if opts.Machine == nil {
		return nil, errors.New("engine: nil state machine")
	}
	if opts.Records == nil {
		opts.Records = records.SinkFunc(func(context.Context, records.Record) error { return nil })
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = DefaultRecordTimeout
	}
	senders := make(map[string]*outbound.Sender, len(opts.Senders))
	for ch, s := range opts.Senders {
		senders[ch] = s
	}
	return &Engine{
		store:   opts.Store,
		machine: opts.Machine,
		records: opts.Records,
		senders: senders,
		now:     opts.Now,

		recordTimeout: opts.RecordTimeout,
	}, nil
}

// Handle processes ev synchronously. A completed flow's record is appended before the session is
// committed; when the append fails the session is left as it was and the message id is forgotten, so
// a redelivery runs the step again. A non-nil error after a successful commit means delivery failed.
// Duplicates and malformed events are not errors.
func (e *Engine) Handle(ctx context.Context, ev router.Event) (res Result, err error) {
	start := time.Now()
	if logger.RIDFrom(ctx) == "" {
		ctx = logger.WithRID(ctx, ev.Channel+":"+ev.MessageID)
	}
	ctx = logger.WithEventMeta(ctx, ev.Channel, ev.SenderID, ev.MessageID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "engine", "engine.panic",
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
			res.Status = StatusFail
			err = fmt.Errorf("engine: panic: %v", r)
		}
		e.logSummary(ctx, res, start, err)
	}()

	in, cerr := router.Classify(ev)
	if cerr != nil {
		res.Status = StatusIgnored
		return res, nil
	}
	res.Input = in.Kind

	seenKey := ""
	if ev.MessageID != "" {
		seenKey = ev.Channel + ":" + ev.MessageID
		dup, derr := e.store.MarkSeen(ctx, seenKey)
		if derr != nil {
			res.Status = StatusFail
			return res, fmt.Errorf("engine: dedupe: %w", derr)
		}
		if dup {
			res.Status = StatusDuplicate
			return res, nil
		}
	}
	// abort undoes the dedupe mark for failures that happen before the session is committed.
	abort := func(err error) (Result, error) {
		res.Status = StatusFail
		if seenKey != "" {
			if ferr := e.store.Forget(context.WithoutCancel(ctx), seenKey); ferr != nil {
				err = errors.Join(err, fmt.Errorf("engine: forget message: %w", ferr))
			}
		}
		return res, err
	}

	unlock, lerr := e.store.Lock(ctx, ev.SenderID)
	if lerr != nil {
		return abort(fmt.Errorf("engine: %w", lerr))
	}
	defer unlock()

	sess, gerr := e.store.Get(ctx, ev.SenderID)
	if gerr != nil {
		return abort(fmt.Errorf("engine: load session: %w", gerr))
	}
	ctx = logger.WithTenant(ctx, sess.TenantID)
	res.From = sess.State

	d := e.machine.Decide(sess, in)
	ctx = logger.WithHandler(ctx, d.Handler)
	res.Handler = d.Handler
	res.Outcome = d.Outcome
	res.Total = len(d.Directives)

	if d.Record != nil {
		rec := e.buildRecord(sess, d)
		res.RecordID = rec.ID.String()
		res.RecordKind = rec.Kind
		if aerr := e.appendRecord(ctx, rec); aerr != nil {
			return abort(fmt.Errorf("engine: append record: %w", aerr))
		}
	}

	committed, cerr2 := e.commit(context.WithoutCancel(ctx), sess, d)
	if cerr2 != nil {
		res.Status = StatusFail
		return res, cerr2
	}
	res.To = committed.State

	sent, serr := e.send(ctx, ev, d.Directives)
	res.Sent = sent
	res.Status = StatusOK
	if serr != nil {
		res.Status = StatusFail
	}
	return res, serr
}

// buildRecord stamps the decision's record with the identity of the session it completes.
func (e *Engine) buildRecord(sess session.Session, d conversation.Decision) records.Record {
	rec := *d.Record
	rec.TenantID = sess.TenantID
	rec.SenderID = sess.SenderID
	language := sess.Language
	if d.Patch.Language != nil {
		language = *d.Patch.Language
	}
	rec.Language = string(language)
	rec.Stamp(e.now())
	return rec
}

// appendRecord runs detached from the event's cancellation, bounded by its own timeout.
func (e *Engine) appendRecord(ctx context.Context, rec records.Record) error {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.recordTimeout)
	defer cancel()
	return e.records.Append(actx, rec)
}

// commit applies the decision to the store: reset first, then the patch.
func (e *Engine) commit(ctx context.Context, sess session.Session, d conversation.Decision) (session.Session, error) {
	out := sess
	var err error
	if d.Reset {
		if out, err = e.store.Reset(ctx, sess.SenderID); err != nil {
			return sess, fmt.Errorf("engine: reset session: %w", err)
		}
	}
	if !d.Patch.IsZero() {
		if out, err = e.store.Patch(ctx, sess.SenderID, d.Patch); err != nil {
			return sess, fmt.Errorf("engine: patch session: %w", err)
		}
	}
	return out, nil
}

func (e *Engine) send(ctx context.Context, ev router.Event, ds []outbound.Directive) (int, error) {
	if len(ds) == 0 {
		return 0, nil
	}
	sender, ok := e.senders[ev.Channel]
	if !ok {
		logger.Warn(ctx, "engine", "send.skip",
			slog.String("cause", "no sender for channel"),
			slog.Int("directives", len(ds)),
		)
		return 0, nil
	}
	return sender.Send(ctx, ev.SenderID, ds)
}
