package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/phase-lever/internal/phase"
)

func TestBoundaries(t *testing.T) {
	t.Parallel()

	segs := Boundaries()
	require.Len(t, segs, 7)

	kinds := map[SegmentKind]int{}
	for _, s := range segs {
		kinds[s.Kind]++
	}
	assert.Equal(t, 4, kinds[KindLiquidus])
	assert.Equal(t, 2, kinds[KindEutectic])
	assert.Equal(t, 1, kinds[KindCompound])

	// Liquidus segments chain end to start.
	for i := 1; i < 4; i++ {
		assert.Equal(t, segs[i-1].To, segs[i].From)
	}
	assert.Equal(t, Point{0, phase.PureTiT}, segs[0].From)
	assert.Equal(t, Point{1, phase.PureUT}, segs[3].To)
}

func TestPolylineSamplesLiquidus(t *testing.T) {
	t.Parallel()

	segs := Boundaries()
	want := []int{29, 40, 30, 6}
	for i, seg := range segs[:4] {
		pts, err := Polyline(seg, DefaultStep)
		require.NoError(t, err)
		assert.Len(t, pts, want[i], seg.Name)
		assert.Equal(t, seg.From.X, pts[0].X)
		assert.Equal(t, seg.To, pts[len(pts)-1])

		for j := 1; j < len(pts); j++ {
			assert.Greater(t, pts[j].X, pts[j-1].X, "%s not increasing at %d", seg.Name, j)
		}
	}
}

func TestPolylineStraightLines(t *testing.T) {
	t.Parallel()

	seg := Boundaries()[4]
	pts, err := Polyline(seg, DefaultStep)
	require.NoError(t, err)
	assert.Equal(t, []Point{seg.From, seg.To}, pts)

	_, err = Polyline(Boundaries()[0], 0)
	assert.Error(t, err)
}

func TestTicks(t *testing.T) {
	t.Parallel()

	temps := TemperatureTicks()
	require.Len(t, temps, 7)
	assert.Equal(t, "600", temps[0].Label)
	assert.Equal(t, "900", temps[6].Label)

	comps := CompositionTicks()
	require.Len(t, comps, 6)
	assert.Equal(t, "0.0", comps[0].Label)
	assert.Equal(t, "0.4", comps[2].Label)
	assert.Equal(t, "1.0", comps[5].Label)
}

func TestViewportRoundTrip(t *testing.T) {
	t.Parallel()

	v := Viewport{Left: 80, Top: 40, Right: 480, Bottom: 365}

	corner := v.ToScreen(Point{0, phase.MinT})
	assert.Equal(t, ScreenPoint{80, 365}, corner)
	corner = v.ToScreen(Point{1, phase.MaxT})
	assert.Equal(t, ScreenPoint{480, 40}, corner)

	p := Point{0.37, 712}
	s := v.ToScreen(p)
	back := v.FromScreen(s.PX, s.PY)
	assert.InDelta(t, p.X, back.X, 1e-12)
	assert.InDelta(t, p.T, back.T, 1e-9)

	assert.True(t, v.Contains(s.PX, s.PY))
	assert.False(t, v.Contains(10, 10))

	outside := v.FromScreen(500, 20)
	_, err := phase.Classify(outside.X, outside.T)
	assert.ErrorIs(t, err, phase.ErrOutOfRange)
}

func TestParseViewport(t *testing.T) {
	t.Parallel()

	v, err := ParseViewport("80, 40,480,365")
	require.NoError(t, err)
	assert.Equal(t, Viewport{Left: 80, Top: 40, Right: 480, Bottom: 365}, v)

	for _, bad := range []string{"", "1,2,3", "a,0,10,10", "0,0,10,NaN", "10,0,0,10", "0,10,10,10"} {
		_, err := ParseViewport(bad)
		assert.Error(t, err, bad)
	}
}

func TestProjectTieLine(t *testing.T) {
	t.Parallel()

	v := Viewport{Left: 0, Top: 0, Right: 400, Bottom: 325}
	tl, err := TieLineAt(0.5, 600)
	require.NoError(t, err)

	st := v.Project(tl)
	assert.Equal(t, ScreenPoint{200, 325}, st.Point)
	require.Len(t, st.Ends, 2)
	assert.Equal(t, ScreenPoint{0, 325}, st.Ends[0])
	assert.InDelta(t, 400*phase.CompoundX, st.Ends[1].PX, 1e-9)

	tl, err = TieLineAt(0.5, 900)
	require.NoError(t, err)
	assert.Empty(t, v.Project(tl).Ends)
}

func TestTieLineAt(t *testing.T) {
	t.Parallel()

	tl, err := TieLineAt(0.5, 600)
	require.NoError(t, err)
	require.Len(t, tl.Ends, 2)
	assert.Equal(t, phase.Ti, tl.Ends[0].Phase)
	assert.Equal(t, Point{0, 600}, tl.Ends[0].At)
	assert.Equal(t, phase.TiU2, tl.Ends[1].Phase)
	assert.Equal(t, Point{phase.CompoundX, 600}, tl.Ends[1].At)

	tl, err = TieLineAt(0.1, 700)
	require.NoError(t, err)
	require.Len(t, tl.Ends, 2)
	assert.Equal(t, phase.Liquid, tl.Ends[1].Phase)
	assert.InDelta(t, 0.2244933920704846, tl.Ends[1].At.X, 1e-12)

	tl, err = TieLineAt(0.5, 900)
	require.NoError(t, err)
	assert.Empty(t, tl.Ends)
	assert.Equal(t, "Liquid", tl.Region.Name())
}
