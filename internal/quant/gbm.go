// Package quant implements the engine's quantitative model layer: GBM
// parameter estimation from hourly candles, the Guéant-Lehalle-Fernandez-
// Tapia first-passage-time market-dynamics estimator, and the closed-form
// optimal bid/ask quoting formulas built on top of both (§4.4).
package quant

import (
	"fmt"
	"math"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/indicators"
	"gonum.org/v1/gonum/stat"
)

// GBMWindow is the number of 1h candles the estimator requires: 24*7, one
// week of hourly bars.
const GBMWindow = 24 * 7

// GBMParameters is the pair of Geometric Brownian Motion parameters the
// Guéant quoting formulas are built on.
type GBMParameters struct {
	Sigma float64
	Mu    float64
}

// ComputeGBMParameters estimates sigma and mu from the last GBMWindow 1h
// candles: sigma is the day-scaled unbiased stddev of log-returns, mu is
// the day-scaled mean log-return plus the usual Itô correction term
// (half-variance). Returns domain.ErrInsufficientData if fewer than
// GBMWindow candles are supplied.
func ComputeGBMParameters(hourCandles []domain.Candle) (GBMParameters, error) {
	if len(hourCandles) < GBMWindow {
		return GBMParameters{}, fmt.Errorf("quant.ComputeGBMParameters: need %d candles, got %d: %w",
			GBMWindow, len(hourCandles), domain.ErrInsufficientData)
	}

	window := hourCandles[len(hourCandles)-GBMWindow:]
	returns := indicators.LogReturns(domain.Closes(window))
	// Drop the first sample: it's a forced zero (no prior candle inside
	// the window), not a real return.
	r := returns[1:]

	mean := stat.Mean(r, nil)
	sigmaUnbiased := stat.StdDev(r, nil)

	sigma := sigmaUnbiased * math.Sqrt(24)
	mu := mean*24 + 0.5*sigma*sigma

	return GBMParameters{Sigma: sigma, Mu: mu}, nil
}
