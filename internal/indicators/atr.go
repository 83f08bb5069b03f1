package indicators

import (
	"math"

	"github.com/riverbend/marketmaker/internal/domain"
)

// ATR is the exponential moving average of true range over period p
// (default 14). tr[0] = high-low; tr[i] = max(high-low, |high -
// prevClose|, |low - prevClose|).
func ATR(c []domain.Candle, p int) []float64 {
	if p <= 0 {
		p = 14
	}
	tr := trueRange(c)
	return EMA(tr, p)
}

func trueRange(c []domain.Candle) []float64 {
	tr := make([]float64, len(c))
	for i, cc := range c {
		hl := cc.High - cc.Low
		if i == 0 {
			tr[i] = hl
			continue
		}
		prevClose := c[i-1].Close
		tr[i] = math.Max(hl, math.Max(math.Abs(cc.High-prevClose), math.Abs(cc.Low-prevClose)))
	}
	return tr
}
