package diagram

import "github.com/talgya/phase-lever/internal/phase"

// TieEnd is one end of a tie line: a phase and where it sits at the query
// temperature.
type TieEnd struct {
	Phase phase.Phase `json:"phase"`
	At    Point       `json:"at"`
}

// TieLine describes what a renderer draws for a query point: the point, its
// region and, in two-phase fields, the tie line through it.
type TieLine struct {
	Point  Point        `json:"point"`
	Region phase.Region `json:"region"`
	Ends   []TieEnd     `json:"ends,omitempty"`
}

// TieLineAt classifies (x, t) and returns the tie line through it. Single
// phase points have no ends.
func TieLineAt(x, t float64) (TieLine, error) {
	r, err := phase.Classify(x, t)
	if err != nil {
		return TieLine{}, err
	}

	tl := TieLine{Point: Point{x, t}, Region: r}
	if tp, ok := r.(phase.TwoPhase); ok {
		left, right := tp.Pair.Phases()
		cl, cr := tp.Compositions()
		tl.Ends = []TieEnd{
			{Phase: left, At: Point{cl, t}},
			{Phase: right, At: Point{cr, t}},
		}
	}
	return tl, nil
}
