// Package diagram provides the drawable geometry of the U–Ti phase diagram:
// boundary lines, sampled liquidus polylines, axis ticks, tie lines and the
// mapping between diagram and screen coordinates. It draws nothing itself.
package diagram

import (
	"fmt"
	"math"

	"github.com/talgya/phase-lever/internal/phase"
)

// Point is a location in diagram coordinates.
type Point struct {
	X float64 `json:"x"` // Mole fraction uranium
	T float64 `json:"t"` // °C
}

// SegmentKind separates the liquidus from the solid-state boundaries.
type SegmentKind string

const (
	KindLiquidus SegmentKind = "liquidus"
	KindEutectic SegmentKind = "eutectic"
	KindCompound SegmentKind = "compound"
)

// Segment is one boundary line of the diagram.
type Segment struct {
	Name string      `json:"name"`
	Kind SegmentKind `json:"kind"`
	From Point       `json:"from"`
	To   Point       `json:"to"`
}

// Boundaries returns the seven boundary lines: four liquidus segments left to
// right, the two eutectic horizontals and the compound vertical.
func Boundaries() []Segment {
	return []Segment{
		liquidusSegment("ti-liquidus", phase.TiLiquidus),
		liquidusSegment("compound-liquidus-left", phase.CompoundLiquidusL),
		liquidusSegment("compound-liquidus-right", phase.CompoundLiquidusR),
		liquidusSegment("u-liquidus", phase.ULiquidus),
		{
			Name: "eutectic-1",
			Kind: KindEutectic,
			From: Point{phase.MinX, phase.Eutectic1T},
			To:   Point{phase.CompoundX, phase.Eutectic1T},
		},
		{
			Name: "eutectic-2",
			Kind: KindEutectic,
			From: Point{phase.CompoundX, phase.Eutectic2T},
			To:   Point{phase.MaxX, phase.Eutectic2T},
		},
		{
			Name: "compound",
			Kind: KindCompound,
			From: Point{phase.CompoundX, phase.MinT},
			To:   Point{phase.CompoundX, phase.CompoundT},
		},
	}
}

func liquidusSegment(name string, l phase.Line) Segment {
	return Segment{
		Name: name,
		Kind: KindLiquidus,
		From: Point{l.X1, l.T1},
		To:   Point{l.X2, l.T2},
	}
}

// DefaultStep is the composition spacing used when sampling the liquidus.
const DefaultStep = 0.01

// Polyline samples a segment every step in composition, both endpoints
// included. Liquidus points are evaluated through phase.BoundaryT; straight
// solid-state lines only need their endpoints.
func Polyline(seg Segment, step float64) ([]Point, error) {
	if seg.Kind != KindLiquidus {
		return []Point{seg.From, seg.To}, nil
	}
	if step <= 0 || math.IsNaN(step) {
		return nil, fmt.Errorf("invalid polyline step %g", step)
	}

	n := int(math.Ceil((seg.To.X-seg.From.X)/step - 1e-9))
	pts := make([]Point, 0, n+1)
	for i := 0; i < n; i++ {
		x := seg.From.X + float64(i)*step
		pts = append(pts, Point{x, phase.BoundaryT(seg.From.X, seg.From.T, seg.To.X, seg.To.T, x)})
	}
	return append(pts, seg.To), nil
}

// Tick is an axis tick with its label.
type Tick struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// TemperatureTicks returns the T axis ticks, 600 to 900 every 50 °C.
func TemperatureTicks() []Tick {
	ticks := make([]Tick, 0, 7)
	for i := 0; i <= 6; i++ {
		v := phase.MinT + float64(i)*50
		ticks = append(ticks, Tick{Value: v, Label: fmt.Sprintf("%.0f", v)})
	}
	return ticks
}

// CompositionTicks returns the x axis ticks, 0.0 to 1.0 every 0.2.
func CompositionTicks() []Tick {
	ticks := make([]Tick, 0, 6)
	for i := 0; i <= 5; i++ {
		v := float64(i) * 0.2
		ticks = append(ticks, Tick{Value: v, Label: fmt.Sprintf("%.1f", v)})
	}
	return ticks
}

// Axis labels.
const (
	CompositionLabel = "mole fraction uranium x_U"
	TemperatureLabel = "temperature (°C)"
)
