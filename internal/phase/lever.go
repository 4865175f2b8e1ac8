package phase

// Slope of the line through (x1, y1) and (x2, y2). x1 must differ from x2.
func Slope(x1, y1, x2, y2 float64) float64 {
	return (y2 - y1) / (x2 - x1)
}

// Intercept of the line through (x1, y1) and (x2, y2) with the T axis.
func Intercept(x1, y1, x2, y2 float64) float64 {
	// Explicit float64 conversions keep the products rounded so the compiler
	// never fuses them into FMA; boundary endpoints must evaluate exactly.
	return (float64(x1*y2) - float64(x2*y1)) / (x1 - x2)
}

// BoundaryT evaluates the line through (x1, y1) and (x2, y2) at composition x.
func BoundaryT(x1, y1, x2, y2, x float64) float64 {
	return float64(Slope(x1, y1, x2, y2)*x) + Intercept(x1, y1, x2, y2)
}

// CompositionAtT inverts BoundaryT: the composition at which the line reaches
// temperature t. The line must not be horizontal.
func CompositionAtT(x1, y1, x2, y2, t float64) float64 {
	return (t - Intercept(x1, y1, x2, y2)) / Slope(x1, y1, x2, y2)
}

// LeverFraction returns the fraction of the phase whose lever arm is d1, given
// the opposite arm d2. A zero d1 means the point sits on that phase.
func LeverFraction(d1, d2 float64) float64 {
	if d1 == 0 {
		return 1
	}
	// d2/d1 overflows for subnormal arms; the normalized form does not.
	return d2 / (d1 + d2)
}
