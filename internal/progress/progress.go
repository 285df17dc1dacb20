// Package progress reports how far a file pass has got.
package progress

import (
	"time"

	"go.uber.org/zap"
)

// Sink receives the lifecycle of one pass. It never affects control flow.
type Sink interface {
	// Ready announces the total number of lines, 0 when unknown.
	Ready(total int)
	// Advance records n more processed lines.
	Advance(n int)
	Finish()
}

// Factory creates the sink of a named pass.
type Factory func(name string) Sink

// Nop discards every event.
type Nop struct{}

func (Nop) Ready(int)   {}
func (Nop) Advance(int) {}
func (Nop) Finish()     {}

// NopFactory returns Nop sinks.
func NopFactory(string) Sink { return Nop{} }

// Log writes progress to a zap logger every `every` lines.
type Log struct {
	logger  *zap.Logger
	every   int
	total   int
	seen    int
	next    int
	started time.Time
}

// NewLog creates a Log sink for the pass called name.
func NewLog(logger *zap.Logger, name string, every int) *Log {
	if every <= 0 {
		every = 100000
	}
	return &Log{
		logger: logger.With(zap.String("pass", name)),
		every:  every,
		next:   every,
	}
}

// LogFactory returns a Factory producing Log sinks.
func LogFactory(logger *zap.Logger, every int) Factory {
	return func(name string) Sink {
		return NewLog(logger, name, every)
	}
}

func (l *Log) Ready(total int) {
	l.total = total
	l.started = time.Now()
	l.logger.Info("Pass started", zap.Int("total_lines", total))
}

func (l *Log) Advance(n int) {
	l.seen += n
	if l.seen < l.next {
		return
	}
	for l.next <= l.seen {
		l.next += l.every
	}

	fields := []zap.Field{zap.Int("lines", l.seen)}
	if l.total > 0 {
		fields = append(fields, zap.Float64("percent", float64(l.seen)*100/float64(l.total)))
	}
	l.logger.Info("Pass progress", fields...)
}

func (l *Log) Finish() {
	l.logger.Info("Pass finished",
		zap.Int("lines", l.seen),
		zap.Duration("elapsed", time.Since(l.started)),
	)
}

// Seen returns the number of lines reported so far.
func (l *Log) Seen() int {
	return l.seen
}
