package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

const defaultQueueLen = 1024

// asyncWriter fans log lines out to sinks from a single goroutine. A full queue drops the
// line and counts it so request handling never waits on a slow sink.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once
	dropped  atomic.Uint64

	mu    sync.Mutex
	sinks []*bufio.Writer
	errs  []error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, bufio.NewWriterSize(w, bufSize))
		}
	}
	aw := &asyncWriter{
		queue:    make(chan []byte, defaultQueueLen),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		sinks:    sinks,
		errs:     make([]error, len(sinks)),
	}
	go aw.loop()
	return aw
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				w.flushAll()
				return
			}
			w.writeAll(data)
		case ack := <-w.flushReq:
			// Drain what is already queued so Flush covers every earlier Write.
			for drained := false; !drained; {
				select {
				case data, ok := <-w.queue:
					if !ok {
						drained = true
						break
					}
					w.writeAll(data)
				default:
					drained = true
				}
			}
			ack <- w.flushAll()
		}
	}
}

// Write copies p onto the queue. It never blocks; lines that do not fit are counted in Dropped.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	data := make([]byte, len(p))
	copy(data, p)
	select {
	case w.queue <- data:
	default:
		w.dropped.Add(1)
	}
	return nil
}

// Dropped returns the number of lines lost to a full queue.
func (w *asyncWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Flush waits until everything written so far reached the sinks.
func (w *asyncWriter) Flush() error {
	select {
	case <-w.done:
		return w.err()
	default:
	}
	ack := make(chan error, 1)
	select {
	case w.flushReq <- ack:
		return <-ack
	case <-w.done:
		return w.err()
	}
}

// Close drains the queue and reports sink failures.
func (w *asyncWriter) Close() error {
	w.once.Do(func() { close(w.queue) })
	<-w.done
	return w.err()
}

// writeAll writes to every healthy sink. A failing sink is skipped from then on.
func (w *asyncWriter) writeAll(p []byte) {
	if len(p) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sink := range w.sinks {
		if w.errs[i] != nil {
			continue
		}
		if _, err := sink.Write(p); err != nil {
			w.errs[i] = err
			continue
		}
		if err := sink.Flush(); err != nil {
			w.errs[i] = err
		}
	}
}

func (w *asyncWriter) flushAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sink := range w.sinks {
		if w.errs[i] == nil {
			w.errs[i] = sink.Flush()
		}
	}
	return errors.Join(w.errs...)
}

func (w *asyncWriter) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return errors.Join(w.errs...)
}
