package phase

import (
	"encoding/json"
	"fmt"
)

// Phase is one of the four phases on the diagram.
type Phase uint8

const (
	Ti     Phase = iota // Solid titanium
	TiU2                // Solid TiU₂ compound
	U                   // Solid uranium
	Liquid
)

var phaseNames = [...]string{"Ti", "TiU2", "U", "Liquid"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", p)
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Composition returns the fixed composition of a solid phase. Liquid has no
// fixed composition and reports ok = false.
func (p Phase) Composition() (x float64, ok bool) {
	switch p {
	case Ti:
		return 0, true
	case TiU2:
		return CompoundX, true
	case U:
		return 1, true
	}
	return 0, false
}

// Pair names a two-phase field. The order matches the left/right order of the
// phases on the tie line.
type Pair uint8

const (
	TiTiU2 Pair = iota
	TiU2U
	TiLiquid
	LiquidTiU2
	TiU2Liquid
	LiquidU
)

var pairPhases = [...][2]Phase{
	TiTiU2:     {Ti, TiU2},
	TiU2U:      {TiU2, U},
	TiLiquid:   {Ti, Liquid},
	LiquidTiU2: {Liquid, TiU2},
	TiU2Liquid: {TiU2, Liquid},
	LiquidU:    {Liquid, U},
}

// Phases returns the two coexisting phases, left one first.
func (p Pair) Phases() (Phase, Phase) {
	ph := pairPhases[p]
	return ph[0], ph[1]
}

// HasLiquid reports whether one side of the tie line is liquid.
func (p Pair) HasLiquid() bool {
	a, b := p.Phases()
	return a == Liquid || b == Liquid
}

func (p Pair) String() string {
	a, b := p.Phases()
	return a.String() + "+" + b.String()
}

// Region is the result of classifying a point: either Single or TwoPhase.
type Region interface {
	// Kind is "single-phase" or "two-phase".
	Kind() string
	// Name is a short label such as "Liquid" or "Ti+TiU2".
	Name() string
	region()
}

// Single is a one-phase field.
type Single struct {
	Phase Phase
}

func (Single) Kind() string   { return "single-phase" }
func (s Single) Name() string { return s.Phase.String() }
func (Single) region()        {}

// TwoPhase is a two-phase field crossed by a tie line.
type TwoPhase struct {
	Pair Pair
	// liquidX is meaningful only when Pair.HasLiquid().
	liquidX float64
}

// NewTwoPhase builds a solid–solid field. It panics on pairs that contain
// liquid, which need a liquid composition.
func NewTwoPhase(p Pair) TwoPhase {
	if p.HasLiquid() {
		panic(fmt.Sprintf("phase: %s needs a liquid composition", p))
	}
	return TwoPhase{Pair: p}
}

// NewTwoPhaseLiquid builds a field with liquid on one side of the tie line.
// It panics on solid–solid pairs.
func NewTwoPhaseLiquid(p Pair, liquidX float64) TwoPhase {
	if !p.HasLiquid() {
		panic(fmt.Sprintf("phase: %s has no liquid", p))
	}
	return TwoPhase{Pair: p, liquidX: liquidX}
}

func (TwoPhase) Kind() string   { return "two-phase" }
func (t TwoPhase) Name() string { return t.Pair.String() }
func (TwoPhase) region()        {}

// LiquidComposition returns where the liquidus crosses the query temperature.
// ok is false for solid–solid fields.
func (t TwoPhase) LiquidComposition() (x float64, ok bool) {
	if !t.Pair.HasLiquid() {
		return 0, false
	}
	return t.liquidX, true
}

// Compositions returns the tie-line endpoints, left phase first.
func (t TwoPhase) Compositions() (float64, float64) {
	a, b := t.Pair.Phases()
	return t.compositionOf(a), t.compositionOf(b)
}

func (t TwoPhase) compositionOf(p Phase) float64 {
	if x, ok := p.Composition(); ok {
		return x
	}
	return t.liquidX
}

// regionJSON is the wire form shared by both region kinds.
type regionJSON struct {
	Type              string   `json:"type"`
	Name              string   `json:"name"`
	Phases            []Phase  `json:"phases"`
	LiquidComposition *float64 `json:"liquid_composition,omitempty"`
}

func (s Single) MarshalJSON() ([]byte, error) {
	return json.Marshal(regionJSON{
		Type:   s.Kind(),
		Name:   s.Name(),
		Phases: []Phase{s.Phase},
	})
}

func (t TwoPhase) MarshalJSON() ([]byte, error) {
	a, b := t.Pair.Phases()
	out := regionJSON{
		Type:   t.Kind(),
		Name:   t.Name(),
		Phases: []Phase{a, b},
	}
	if x, ok := t.LiquidComposition(); ok {
		out.LiquidComposition = &x
	}
	return json.Marshal(out)
}
