package indicators

import "github.com/riverbend/marketmaker/internal/domain"

// bullBearPoints derives, for each candle after the first, a normalized
// up-move ("bull point") and down-move ("bear point") from the high/low
// deltas, scaled by the prior close so the series is comparable across
// price regimes.
func bullBearPoints(c []domain.Candle) (bull, bear []float64) {
	n := len(c)
	bull = make([]float64, n)
	bear = make([]float64, n)
	for i := 1; i < n; i++ {
		prevClose := c[i-1].Close
		if prevClose == 0 {
			continue
		}
		if c[i].High > c[i-1].High {
			bull[i] = (c[i].High - c[i-1].High) / prevClose
		}
		if c[i].Low < c[i-1].Low {
			bear[i] = (c[i-1].Low - c[i].Low) / prevClose
		}
	}
	return bull, bear
}

// VDIPlus is the volume-weighted EMA of bull points over period p.
func VDIPlus(c []domain.Candle, p int) []float64 {
	bull, _ := bullBearPoints(c)
	return VolumeEMA(bull, domain.Volumes(c), p)
}

// VDIMin is the volume-weighted EMA of bear points over period p.
func VDIMin(c []domain.Candle, p int) []float64 {
	_, bear := bullBearPoints(c)
	return VolumeEMA(bear, domain.Volumes(c), p)
}

// VDX is the volume-weighted directional movement index, in [-1, 1]:
// (vdi+ - vdi-) / (vdi+ + vdi-). 0 where the denominator is 0.
func VDX(c []domain.Candle, p int) []float64 {
	plus := VDIPlus(c, p)
	minus := VDIMin(c, p)
	out := make([]float64, len(c))
	for i := range out {
		den := plus[i] + minus[i]
		if den == 0 {
			continue
		}
		out[i] = (plus[i] - minus[i]) / den
	}
	return out
}
