package phase

import "math"

// Amounts holds the relative amount of each phase at a point. The four
// fractions are non-negative and sum to 1.
type Amounts struct {
	Liquid float64 `json:"liquid"`
	Ti     float64 `json:"ti"`
	TiU2   float64 `json:"tiu2"`
	U      float64 `json:"u"`

	// LiquidComposition is set whenever liquid takes part: the point itself
	// for single-phase liquid, the liquidus composition on a tie line.
	LiquidComposition *float64 `json:"liquid_composition,omitempty"`
}

// Of returns the fraction of one phase.
func (a Amounts) Of(p Phase) float64 {
	switch p {
	case Ti:
		return a.Ti
	case TiU2:
		return a.TiU2
	case U:
		return a.U
	case Liquid:
		return a.Liquid
	}
	return 0
}

// Sum of all four fractions.
func (a Amounts) Sum() float64 {
	return a.Liquid + a.Ti + a.TiU2 + a.U
}

func (a *Amounts) set(p Phase, v float64) {
	switch p {
	case Ti:
		a.Ti = v
	case TiU2:
		a.TiU2 = v
	case U:
		a.U = v
	case Liquid:
		a.Liquid = v
	}
}

// AmountsAt classifies (x, t) and applies the lever rule.
func AmountsAt(x, t float64) (Amounts, Region, error) {
	r, err := Classify(x, t)
	if err != nil {
		return Amounts{}, nil, err
	}
	return AmountsFor(r, x), r, nil
}

// AmountsOf returns the phase fractions at (x, t).
func AmountsOf(x, t float64) (Amounts, error) {
	a, _, err := AmountsAt(x, t)
	return a, err
}

// AmountsFor derives the fractions for a region already classified at
// composition x.
func AmountsFor(r Region, x float64) Amounts {
	var a Amounts
	switch r := r.(type) {
	case Single:
		a.set(r.Phase, 1)
		if r.Phase == Liquid {
			lx := x
			a.LiquidComposition = &lx
		}
	case TwoPhase:
		left, right := r.Pair.Phases()
		cl, cr := r.Compositions()
		d1 := math.Abs(x - cl)
		d2 := math.Abs(x - cr)
		f := LeverFraction(d1, d2)
		a.set(left, f)
		a.set(right, 1-f)
		if lx, ok := r.LiquidComposition(); ok {
			a.LiquidComposition = &lx
		}
	}
	return a
}
