// Package cooling walks an alloy of fixed composition down in temperature and
// reports the phase region and amounts at every step, plus each point where
// the region changes.
package cooling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/talgya/phase-lever/internal/phase"
)

// DefaultStep is the temperature decrement used when none is given.
const DefaultStep = 5.0

// MaxSteps bounds the number of temperatures a single run may visit.
const MaxSteps = 2000

// ErrTooManySteps is returned by NewRunner when a run would exceed MaxSteps.
var ErrTooManySteps = errors.New("cooling run too long")

// Step is the state of the alloy at one temperature.
type Step struct {
	T       float64       `json:"t"`
	Region  phase.Region  `json:"region"`
	Amounts phase.Amounts `json:"amounts"`
}

// Transition marks the first temperature at which the region changed.
type Transition struct {
	T    float64 `json:"t"`
	From string  `json:"from"`
	To   string  `json:"to"`
}

// Path is the full result of a cooling run.
type Path struct {
	X           float64      `json:"x"`
	Steps       []Step       `json:"steps"`
	Transitions []Transition `json:"transitions"`
}

// Runner drives one cooling run.
type Runner struct {
	X     float64
	Start float64 // Starting temperature (hottest)
	End   float64 // Final temperature (coldest)
	Step  float64 // Decrement per tick, > 0

	// Interval paces the run; zero runs as fast as possible.
	Interval time.Duration

	OnStep       func(Step)
	OnTransition func(Transition)
}

// NewRunner validates the run parameters.
func NewRunner(x, start, end, step float64) (*Runner, error) {
	if err := phase.Validate(x, start); err != nil {
		return nil, fmt.Errorf("cooling start: %w", err)
	}
	if err := phase.Validate(x, end); err != nil {
		return nil, fmt.Errorf("cooling end: %w", err)
	}
	if start < end {
		return nil, fmt.Errorf("cooling start %g below end %g", start, end)
	}
	if step <= 0 || math.IsNaN(step) {
		return nil, fmt.Errorf("invalid cooling step %g", step)
	}
	r := &Runner{X: x, Start: start, End: end, Step: step}
	if n := r.Len(); n > MaxSteps {
		return nil, fmt.Errorf("%w: %d steps exceeds %d", ErrTooManySteps, n, MaxSteps)
	}
	return r, nil
}

// Len is the number of temperatures the run visits, computed without
// building them. It saturates at math.MaxInt32.
func (r *Runner) Len() int {
	n := math.Floor((r.Start-r.End)/r.Step + 1e-9)
	if n >= math.MaxInt32 {
		return math.MaxInt32
	}
	count := int(n) + 1
	if r.Start-n*r.Step-r.End > 1e-9 {
		count++
	}
	return count
}

// Temperatures lists every temperature the run visits, Start first. End is
// always included even when Step does not divide the range.
func (r *Runner) Temperatures() []float64 {
	n := int(math.Floor((r.Start-r.End)/r.Step + 1e-9))
	temps := make([]float64, 0, n+2)
	for i := 0; i <= n; i++ {
		temps = append(temps, r.Start-float64(i)*r.Step)
	}
	if last := temps[len(temps)-1]; last-r.End > 1e-9 {
		temps = append(temps, r.End)
	}
	return temps
}

// Run steps through the temperatures, invoking the callbacks, and returns the
// collected path. It stops early with ctx.Err() when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*Path, error) {
	path := &Path{X: r.X}
	slog.Debug("cooling run started", "x", r.X, "start", r.Start, "end", r.End, "step", r.Step)

	var prev string
	for i, t := range r.Temperatures() {
		if err := ctx.Err(); err != nil {
			return path, err
		}
		start := time.Now()

		a, region, err := phase.AmountsAt(r.X, t)
		if err != nil {
			return path, fmt.Errorf("cooling at %g: %w", t, err)
		}

		st := Step{T: t, Region: region, Amounts: a}
		path.Steps = append(path.Steps, st)
		if r.OnStep != nil {
			r.OnStep(st)
		}

		if name := region.Name(); i > 0 && name != prev {
			tr := Transition{T: t, From: prev, To: name}
			path.Transitions = append(path.Transitions, tr)
			if r.OnTransition != nil {
				r.OnTransition(tr)
			}
			prev = name
		} else if i == 0 {
			prev = name
		}

		if r.Interval > 0 {
			// Sleep for the remainder of the interval.
			if wait := r.Interval - time.Since(start); wait > 0 {
				select {
				case <-ctx.Done():
					return path, ctx.Err()
				case <-time.After(wait):
				}
			}
		}
	}

	slog.Debug("cooling run finished", "x", r.X, "steps", len(path.Steps), "transitions", len(path.Transitions))
	return path, nil
}

// PathOf runs an unpaced cooling run and returns its path.
func PathOf(x, start, end, step float64) (*Path, error) {
	r, err := NewRunner(x, start, end, step)
	if err != nil {
		return nil, err
	}
	return r.Run(context.Background())
}
