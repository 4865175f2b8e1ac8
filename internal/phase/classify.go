package phase

// Classify returns the phase region containing (x, t).
//
// Checks run in a fixed order and the first match wins: the pure-component
// edges, then the side of the compound, then the eutectic temperature, then
// the liquidus. Points exactly on the liquidus are Liquid.
func Classify(x, t float64) (Region, error) {
	if err := Validate(x, t); err != nil {
		return nil, err
	}
	return classify(x, t), nil
}

func classify(x, t float64) Region {
	if x == 0 {
		return Single{Phase: Ti}
	}
	if x == 1 {
		return Single{Phase: U}
	}

	if x < CompoundX {
		if t < Eutectic1T {
			return NewTwoPhase(TiTiU2)
		}
		if x < Eutectic1X {
			return liquidus(TiLiquidus, TiLiquid, x, t)
		}
		return liquidus(CompoundLiquidusL, LiquidTiU2, x, t)
	}

	if t < Eutectic2T {
		return NewTwoPhase(TiU2U)
	}
	if x < Eutectic2X {
		return liquidus(CompoundLiquidusR, TiU2Liquid, x, t)
	}
	return liquidus(ULiquidus, LiquidU, x, t)
}

// liquidus resolves a point above a eutectic against one liquidus segment.
func liquidus(l Line, below Pair, x, t float64) Region {
	if t >= l.At(x) {
		return Single{Phase: Liquid}
	}
	return NewTwoPhaseLiquid(below, l.CompositionAt(t))
}
