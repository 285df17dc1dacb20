package reconcile

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Counts tallies what happened to the records of one table during a run.
type Counts struct {
	Processed  int64 `json:"processed"`
	Skipped    int64 `json:"skipped"`
	Invalid    int64 `json:"invalid"`
	Unresolved int64 `json:"unresolved"`
	Dropped    int64 `json:"dropped"`
	Written    int64 `json:"written"`
	Reset      int64 `json:"reset"`
	Deleted    int64 `json:"deleted"`
}

// MarshalLogObject renders the counts as zap fields.
func (c *Counts) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("processed", c.Processed)
	enc.AddInt64("skipped", c.Skipped)
	enc.AddInt64("invalid", c.Invalid)
	enc.AddInt64("unresolved", c.Unresolved)
	enc.AddInt64("dropped", c.Dropped)
	enc.AddInt64("written", c.Written)
	enc.AddInt64("reset", c.Reset)
	enc.AddInt64("deleted", c.Deleted)
	return nil
}

// Summary is the result of a run, keyed by table name.
type Summary struct {
	RunID      string             `json:"run_id"`
	Mode       string             `json:"mode"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Tables     map[string]*Counts `json:"tables"`
	order      []string
}

func newSummary(id string, mode Mode, startedAt time.Time) *Summary {
	return &Summary{
		RunID:     id,
		Mode:      mode.String(),
		StartedAt: startedAt,
		Tables:    make(map[string]*Counts),
	}
}

// Table returns the counts of a table, creating them on first use.
func (s *Summary) Table(name string) *Counts {
	c, ok := s.Tables[name]
	if !ok {
		c = &Counts{}
		s.Tables[name] = c
		s.order = append(s.order, name)
	}
	return c
}

// Order lists tables in the order they were first touched.
func (s *Summary) Order() []string {
	return s.order
}

func (s *Summary) log(logger *zap.Logger) {
	for _, name := range s.order {
		logger.Info("Table summary", zap.String("table", name), zap.Object("counts", s.Tables[name]))
	}
	logger.Info("Run summary", zap.Duration("elapsed", s.FinishedAt.Sub(s.StartedAt)), zap.Int("tables", len(s.order)))
}
