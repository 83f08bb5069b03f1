// Package indicators implements the technical-analysis formulas the
// strategy layer gates on: moving averages, ATR, RSI, the VDX directional
// index, and log returns (§4.3). Every function takes and returns a plain
// []float64 (or, for candle-shaped inputs, a []domain.Candle) the same
// length as its input, so callers can freely chain and tail() them.
package indicators

import "math"

// MA is the simple moving average with a window of size p; at index i it
// averages over min(i+1, p) preceding points (inclusive).
func MA(x []float64, p int) []float64 {
	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		sum += v
		window := p
		if i+1 < window {
			window = i + 1
		}
		if i >= p {
			sum -= x[i-p]
		}
		out[i] = sum / float64(window)
	}
	return out
}

// EMA is the exponential moving average with smoothing k = 2/(p+1),
// seeded at ema[0] = x[0].
func EMA(x []float64, p int) []float64 {
	if len(x) == 0 {
		return nil
	}
	k := 2.0 / (float64(p) + 1)
	out := make([]float64, len(x))
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = x[i]*k + out[i-1]*(1-k)
	}
	return out
}

// VolumeEMA is EMA(x*v, p) / EMA(v, p), elementwise — a volume-weighted
// moving average.
func VolumeEMA(x, v []float64, p int) []float64 {
	n := len(x)
	xv := make([]float64, n)
	for i := range x {
		xv[i] = x[i] * v[i]
	}
	emaXV := EMA(xv, p)
	emaV := EMA(v, p)
	out := make([]float64, n)
	for i := range out {
		if emaV[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = emaXV[i] / emaV[i]
	}
	return out
}

// LogReturns returns ln(close[i]/close[i-1]) for i>0, and 0 at index 0.
func LogReturns(close []float64) []float64 {
	out := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		if close[i-1] == 0 {
			out[i] = 0
			continue
		}
		out[i] = math.Log(close[i] / close[i-1])
	}
	return out
}

// Mul multiplies two series elementwise. Used to build volume-weighted
// inputs for VolumeEMA-style functions.
func Mul(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}
