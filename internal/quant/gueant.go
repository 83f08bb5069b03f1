package quant

import "math"

// Quote is a pair of bid/ask prices and the spread between them.
type Quote struct {
	Bid    float64
	Ask    float64
	Spread float64
}

// ComputeQuote implements the Guéant-Lehalle-Fernandez-Tapia optimal
// bid/ask distance formula (§4.4). q is inventory in signed unit-inventory
// steps; drift, when true, adds the -mu/(gamma*sigma^2) / +mu/(gamma*sigma^2)
// drift correction terms. The result never crosses mid: bid = min(mid,
// mid-bidDistance), ask = max(mid, mid+askDistance).
func ComputeQuote(sigma, mu, gamma float64, buy, sell Intensity, mid float64, q int, drift bool) Quote {
	bidDist, bidOK := priceDistance(sigma, mu, gamma, buy, q, drift, true)
	askDist, askOK := priceDistance(sigma, mu, gamma, sell, q, drift, false)
	if !bidOK || !askOK {
		return Quote{}
	}

	bid := math.Min(mid, mid-bidDist)
	ask := math.Max(mid, mid+askDist)
	return Quote{Bid: bid, Ask: ask, Spread: ask - bid}
}

// ComputeSpread returns just the spread a ComputeQuote call would produce.
func ComputeSpread(sigma, mu, gamma float64, buy, sell Intensity, mid float64, q int, drift bool) float64 {
	return ComputeQuote(sigma, mu, gamma, buy, sell, mid, q, drift).Spread
}

// priceDistance computes one side's optimal distance from mid. isBid
// selects the bid-side inventory multiplier sign; returns ok=false if any
// term is zero/undefined (any of sigma, gamma, A or k non-positive), per the
// spec's safeguard.
func priceDistance(sigma, mu, gamma float64, in Intensity, q int, drift, isBid bool) (float64, bool) {
	if sigma <= 0 || gamma <= 0 || in.A <= 0 || in.K <= 0 {
		return 0, false
	}

	sqrtTerm := math.Sqrt(
		(sigma * sigma * gamma) / (2 * in.K * in.A) *
			math.Pow(1+gamma/in.K, 1+in.K/gamma),
	)
	lnTerm := (1 / gamma) * math.Log(1+gamma/in.K)

	var multiplier float64
	if isBid {
		multiplier = float64(2*q+1) / 2
		if drift {
			multiplier -= mu / (gamma * sigma * sigma)
		}
	} else {
		multiplier = -float64(2*q-1) / 2
		if drift {
			multiplier += mu / (gamma * sigma * sigma)
		}
	}

	return lnTerm + multiplier*sqrtTerm, true
}
