package quant

import (
	"fmt"
	"math"

	"github.com/riverbend/marketmaker/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// DynamicsWindow, SpreadPrecision and Steps are the constants the spec
// fixes for the first-passage-time intensity estimator (§4.4).
const (
	DynamicsWindow   = 1000
	SpreadPrecision  = 0.03
	Steps            = 100
)

// Intensity is the Guéant order-arrival intensity parameterization:
// lambda(delta) = A * exp(-k*delta).
type Intensity struct {
	A float64
	K float64
}

// MarketDynamics is the pair of buy/sell arrival intensities.
type MarketDynamics struct {
	Buy  Intensity
	Sell Intensity
}

const msPerDay = float64(24 * 60 * 60 * 1000)

// ComputeMarketDynamicsParameters estimates order-arrival intensities from
// 15m candles via first-passage times (§4.4). It requires at least
// DynamicsWindow candles.
func ComputeMarketDynamicsParameters(candles []domain.Candle) (MarketDynamics, error) {
	if len(candles) < DynamicsWindow {
		return MarketDynamics{}, fmt.Errorf("quant.ComputeMarketDynamicsParameters: need %d candles, got %d: %w",
			DynamicsWindow, len(candles), domain.ErrInsufficientData)
	}
	c := candles[len(candles)-DynamicsWindow:]
	n := len(c)
	deltaP := c[0].Open * (SpreadPrecision / (2 * Steps))
	if deltaP <= 0 {
		return MarketDynamics{}, fmt.Errorf("quant.ComputeMarketDynamicsParameters: non-positive deltaP")
	}

	sumBuy := make([]float64, Steps+1)
	countBuy := make([]int, Steps+1)
	sumSell := make([]float64, Steps+1)
	countSell := make([]int, Steps+1)

	half := n / 2
	for i := 0; i < half; i++ {
		if i+1 >= n {
			break
		}
		mid := 0.5*c[i].Close + 0.5*c[i+1].Close

		buyHit := make([]bool, Steps+1)
		sellHit := make([]bool, Steps+1)
		remaining := 2 * Steps

		for cc := i + 1; cc < n && remaining > 0; cc++ {
			elapsedDays := float64(c[cc].Timestamp-c[i].Timestamp) / msPerDay
			for s := 1; s <= Steps; s++ {
				threshold := float64(s) * deltaP
				if !buyHit[s] && mid-c[cc].Low > threshold {
					buyHit[s] = true
					sumBuy[s] += elapsedDays
					countBuy[s]++
					remaining--
				}
				if !sellHit[s] && c[cc].High-mid > threshold {
					sellHit[s] = true
					sumSell[s] += elapsedDays
					countSell[s]++
					remaining--
				}
			}
		}
	}

	buyIntensity, err := fitIntensity(sumBuy, countBuy, deltaP)
	if err != nil {
		return MarketDynamics{}, fmt.Errorf("quant.ComputeMarketDynamicsParameters: buy side: %w", err)
	}
	sellIntensity, err := fitIntensity(sumSell, countSell, deltaP)
	if err != nil {
		return MarketDynamics{}, fmt.Errorf("quant.ComputeMarketDynamicsParameters: sell side: %w", err)
	}

	return MarketDynamics{Buy: buyIntensity, Sell: sellIntensity}, nil
}

// fitIntensity regresses logLambda[s] = b - k*s*deltaP against the
// aggregated first-passage counts/sums, then returns A = exp(b), k = -slope.
func fitIntensity(sum []float64, count []int, deltaP float64) (Intensity, error) {
	var xs, ys []float64
	for s := 1; s < len(sum); s++ {
		if count[s] == 0 || sum[s] <= 0 {
			continue
		}
		lambda := float64(count[s]) / sum[s]
		if lambda <= 0 {
			continue
		}
		xs = append(xs, float64(s)*deltaP)
		ys = append(ys, math.Log(lambda))
	}
	if len(xs) < 2 {
		return Intensity{}, fmt.Errorf("not enough first-passage samples to fit intensity")
	}

	b, slope := stat.LinearRegression(xs, ys, nil, false)
	return Intensity{A: math.Exp(b), K: -slope}, nil
}
