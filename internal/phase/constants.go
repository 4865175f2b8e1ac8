// Package phase classifies points on the uranium–titanium phase diagram and
// computes lever-rule phase amounts. The liquidus is a piecewise-linear
// approximation through five fixed points; nothing here is derived from a
// free-energy model.
package phase

// Diagram points. Composition is mole fraction uranium, temperature is °C.
const (
	// PureTiT is the melting point of pure titanium (x = 0).
	PureTiT = 882.0

	// Eutectic1X and Eutectic1T locate the Ti-side eutectic.
	Eutectic1X = 0.28
	Eutectic1T = 655.0

	// CompoundX is the stoichiometry of the TiU₂ compound.
	CompoundX = 2.0 / 3.0
	// CompoundT is the congruent melting point of TiU₂.
	CompoundT = 890.0

	// Eutectic2X and Eutectic2T locate the U-side eutectic.
	Eutectic2X = 0.95
	Eutectic2T = 720.0

	// PureUT is the melting point of pure uranium (x = 1).
	PureUT = 770.0
)

// Domain of the diagram. Queries outside it are rejected.
const (
	MinX = 0.0
	MaxX = 1.0
	MinT = 600.0
	MaxT = 925.0
)

// Line is a straight boundary segment between two diagram points.
// X1 and X2 are never equal.
type Line struct {
	X1, T1 float64
	X2, T2 float64
}

// The four liquidus segments, left to right.
var (
	TiLiquidus        = Line{0, PureTiT, Eutectic1X, Eutectic1T}
	CompoundLiquidusL = Line{Eutectic1X, Eutectic1T, CompoundX, CompoundT}
	CompoundLiquidusR = Line{CompoundX, CompoundT, Eutectic2X, Eutectic2T}
	ULiquidus         = Line{Eutectic2X, Eutectic2T, 1, PureUT}
)

// At evaluates the line at composition x.
func (l Line) At(x float64) float64 {
	return BoundaryT(l.X1, l.T1, l.X2, l.T2, x)
}

// CompositionAt returns the composition where the line crosses temperature t.
func (l Line) CompositionAt(t float64) float64 {
	return CompositionAtT(l.X1, l.T1, l.X2, l.T2, t)
}
