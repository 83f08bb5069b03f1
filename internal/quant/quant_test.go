package quant

import (
	"math"
	"testing"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeGBMParametersInsufficientData(t *testing.T) {
	_, err := ComputeGBMParameters(make([]domain.Candle, 10))
	require.Error(t, err)
}

func TestComputeGBMParametersFlatSeriesZeroSigma(t *testing.T) {
	candles := make([]domain.Candle, GBMWindow)
	for i := range candles {
		candles[i] = domain.Candle{Timestamp: int64(i) * 3_600_000, Close: 100}
	}
	p, err := ComputeGBMParameters(candles)
	require.NoError(t, err)
	assert.InDelta(t, 0, p.Sigma, 1e-9)
	assert.InDelta(t, 0, p.Mu, 1e-9)
}

func TestComputeQuoteNeverCrossesMid(t *testing.T) {
	buy := Intensity{A: 100, K: 5}
	sell := Intensity{A: 100, K: 5}
	q := ComputeQuote(0.05, 0, 0.1, buy, sell, 100, 3, false)
	assert.LessOrEqual(t, q.Bid, 100.0)
	assert.GreaterOrEqual(t, q.Ask, 100.0)
	assert.GreaterOrEqual(t, q.Spread, 0.0)
}

func TestComputeQuoteZeroOnUndefinedTerms(t *testing.T) {
	q := ComputeQuote(0, 0, 0.1, Intensity{}, Intensity{}, 100, 0, false)
	assert.Equal(t, Quote{}, q)
}

func TestFitIntensityRecoversKnownParameters(t *testing.T) {
	// lambda(s) = A*exp(-k*s*deltaP); construct exact counts/sums so the
	// regression should recover A,k closely.
	const A, k, deltaP = 50.0, 8.0, 0.001
	sum := make([]float64, Steps+1)
	count := make([]int, Steps+1)
	for s := 1; s <= Steps; s++ {
		lambda := A * math.Exp(-k*float64(s)*deltaP)
		count[s] = 1000
		sum[s] = float64(count[s]) / lambda
	}
	in, err := fitIntensity(sum, count, deltaP)
	require.NoError(t, err)
	assert.InDelta(t, A, in.A, 0.5)
	assert.InDelta(t, k, in.K, 0.1)
}
