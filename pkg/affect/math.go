package affect

import "math"

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp performs linear interpolation between a and b.
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// WrapHue maps any angle in degrees into [0, 360).
func WrapHue(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// Blend converts a per-nominal-step smoothing factor into the factor for a
// step of the given ratio (dt / nominal), so smoothing is time-proportional.
func Blend(alpha, ratio float64) float64 {
	if ratio <= 0 {
		return 0
	}
	alpha = Clamp(alpha, 0, 1)
	return 1 - math.Pow(1-alpha, ratio)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
