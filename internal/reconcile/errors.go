package reconcile

import (
	"errors"
	"fmt"
)

// Phase names a step of a run.
type Phase string

const (
	PhasePrepare       Phase = "prepare"
	PhaseTruncate      Phase = "truncate"
	PhaseInsert        Phase = "insert"
	PhaseReset         Phase = "reset"
	PhaseUpsert        Phase = "upsert"
	PhaseSweep         Phase = "sweep"
	PhaseModifications Phase = "modifications"
	PhaseDeletes       Phase = "deletes"
)

// RunError reports how far a failed run progressed.
type RunError struct {
	RunID string
	Mode  Mode
	Kind  string
	Phase Phase
	// Line is the 1-based source line being processed, 0 outside a file pass.
	Line int
	Err  error
}

func (e *RunError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s run %s failed at %s/%s line %d: %v", e.Mode, e.RunID, e.Kind, e.Phase, e.Line, e.Err)
	}
	return fmt.Sprintf("%s run %s failed at %s/%s: %v", e.Mode, e.RunID, e.Kind, e.Phase, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// lineError carries the source line of a failure up to the phase boundary.
type lineError struct {
	line int
	err  error
}

func (e *lineError) Error() string { return fmt.Sprintf("line %d: %v", e.line, e.err) }
func (e *lineError) Unwrap() error { return e.err }

func (r *run) fail(kind string, phase Phase, err error) error {
	if err == nil {
		return nil
	}
	var runErr *RunError
	if errors.As(err, &runErr) {
		return err
	}

	out := &RunError{RunID: r.id, Mode: r.mode, Kind: kind, Phase: phase, Err: err}
	var le *lineError
	if errors.As(err, &le) {
		out.Line = le.line
		out.Err = le.err
	}
	return out
}
