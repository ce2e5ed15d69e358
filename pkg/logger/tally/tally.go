// Package tally provides a logging backend that counts messages per level.
// It replaces process-global warning/error counters: the worker installs one
// Tally alongside the console backend and reads the totals at end of run.
package tally

import "sync/atomic"

// Tally implements logger.Instance by counting messages per level.
// It is safe for concurrent use.
type Tally struct {
	warnings int64
	errors   int64
}

// NewTally creates an empty counter backend.
func NewTally() *Tally {
	return &Tally{}
}

func (t *Tally) Debug(message string, keyvals ...any) {}

func (t *Tally) Info(message string, keyvals ...any) {}

// Warn counts a WARN-level message.
func (t *Tally) Warn(message string, keyvals ...any) {
	atomic.AddInt64(&t.warnings, 1)
}

// Error counts an ERROR-level message.
func (t *Tally) Error(message string, keyvals ...any) {
	atomic.AddInt64(&t.errors, 1)
}

// Fatal counts like Error; termination is left to the console backend.
func (t *Tally) Fatal(message string, keyvals ...any) {
	atomic.AddInt64(&t.errors, 1)
}

// Warnings returns the number of WARN messages seen so far.
func (t *Tally) Warnings() int64 {
	return atomic.LoadInt64(&t.warnings)
}

// Errors returns the number of ERROR and FATAL messages seen so far.
func (t *Tally) Errors() int64 {
	return atomic.LoadInt64(&t.errors)
}
