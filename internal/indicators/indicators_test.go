package indicators

import (
	"testing"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/stretchr/testify/assert"
)

func constSeries(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEMAOfConstantIsConstant(t *testing.T) {
	x := constSeries(10, 5.0)
	ma := MA(x, 3)
	ema := EMA(ma, 4)
	for _, v := range ema {
		assert.InDelta(t, 5.0, v, 1e-9)
	}
}

func TestRSIMonotoneIncreasingIs100(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	rsi := RSI(closes, 14, RSIOptions{})
	for i := 1; i < len(rsi); i++ {
		assert.Equal(t, 100.0, rsi[i])
	}
}

func TestRSILegacyBugDiffersFromCorrected(t *testing.T) {
	closes := []float64{10, 9, 11, 8, 12, 7, 13, 9, 10, 11, 8, 12, 14, 9, 10}
	corrected := RSI(closes, 14, RSIOptions{})
	legacy := RSI(closes, 14, RSIOptions{ReproduceLegacyBug: true})
	differs := false
	for i := range corrected {
		if corrected[i] != legacy[i] {
			differs = true
			break
		}
	}
	assert.True(t, differs, "legacy RSI formula should diverge from the corrected one when rs != 0")
}

func TestLogReturnsFirstIsZero(t *testing.T) {
	r := LogReturns([]float64{100, 110, 99})
	assert.Equal(t, 0.0, r[0])
	assert.InDelta(t, 0.0953, r[1], 1e-4)
}

func TestMAWindowing(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	ma := MA(x, 3)
	assert.InDelta(t, 1.0, ma[0], 1e-9)
	assert.InDelta(t, 1.5, ma[1], 1e-9)
	assert.InDelta(t, 2.0, ma[2], 1e-9)
	assert.InDelta(t, 3.0, ma[3], 1e-9)
	assert.InDelta(t, 4.0, ma[4], 1e-9)
}

func TestATRFirstIsHighLow(t *testing.T) {
	candles := []domain.Candle{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
	}
	atr := ATR(candles, 14)
	assert.InDelta(t, 2.0, atr[0], 1e-9)
}

func TestVDXBounded(t *testing.T) {
	candles := make([]domain.Candle, 0, 30)
	price := 100.0
	for i := 0; i < 30; i++ {
		high := price + 1
		low := price - 1
		if i%2 == 0 {
			high += 2
		} else {
			low -= 2
		}
		candles = append(candles, domain.Candle{High: high, Low: low, Close: price, Volume: 10})
		price += 0.5
	}
	vdx := VDX(candles, 14)
	for _, v := range vdx {
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}
