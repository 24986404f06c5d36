// Package session provides the process-wide conversation store: one session per sender,
// TTL eviction, per-sender locking and a time-windowed set of processed message ids.
// The in-memory implementation sweeps opportunistically on access instead of running a timer.
package session
