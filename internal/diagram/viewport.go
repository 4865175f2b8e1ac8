package diagram

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/talgya/phase-lever/internal/phase"
)

// Viewport is the screen rectangle the diagram frame occupies. Screen y grows
// downward, so Bottom holds the lowest temperature.
type Viewport struct {
	Left, Top, Right, Bottom float64
}

// ScreenPoint is a position in screen pixels.
type ScreenPoint struct {
	PX float64 `json:"px"`
	PY float64 `json:"py"`
}

// ToScreen maps a diagram point onto the viewport.
func (v Viewport) ToScreen(p Point) ScreenPoint {
	return ScreenPoint{
		PX: remap(p.X, phase.MinX, phase.MaxX, v.Left, v.Right),
		PY: remap(p.T, phase.MinT, phase.MaxT, v.Bottom, v.Top),
	}
}

// FromScreen maps a screen position back to diagram coordinates. Positions
// outside the frame map outside the domain and are left for phase to reject.
func (v Viewport) FromScreen(px, py float64) Point {
	return Point{
		X: remap(px, v.Left, v.Right, phase.MinX, phase.MaxX),
		T: remap(py, v.Bottom, v.Top, phase.MinT, phase.MaxT),
	}
}

// Contains reports whether a screen position falls inside the frame.
func (v Viewport) Contains(px, py float64) bool {
	return px >= v.Left && px <= v.Right && py >= v.Top && py <= v.Bottom
}

// ParseViewport reads "left,top,right,bottom" in screen pixels.
func ParseViewport(s string) (Viewport, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Viewport{}, fmt.Errorf("viewport %q: want left,top,right,bottom", s)
	}
	var f [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Viewport{}, fmt.Errorf("viewport %q: invalid number %q", s, p)
		}
		f[i] = v
	}
	v := Viewport{Left: f[0], Top: f[1], Right: f[2], Bottom: f[3]}
	if v.Right <= v.Left || v.Bottom <= v.Top {
		return Viewport{}, fmt.Errorf("viewport %q: empty frame", s)
	}
	return v, nil
}

// ScreenTieLine is a tie line projected onto a viewport.
type ScreenTieLine struct {
	Point ScreenPoint   `json:"point"`
	Ends  []ScreenPoint `json:"ends,omitempty"`
}

// Project maps a tie line onto the viewport for drawing.
func (v Viewport) Project(tl TieLine) ScreenTieLine {
	st := ScreenTieLine{Point: v.ToScreen(tl.Point)}
	for _, e := range tl.Ends {
		st.Ends = append(st.Ends, v.ToScreen(e.At))
	}
	return st
}

// remap linearly maps v from [a1, a2] onto [b1, b2].
func remap(v, a1, a2, b1, b2 float64) float64 {
	return b1 + (v-a1)*(b2-b1)/(a2-a1)
}
