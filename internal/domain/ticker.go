package domain

// Ticker is a point-in-time snapshot of a market's best prices and volumes.
type Ticker struct {
	Timestamp   int64
	Bid         float64
	Ask         float64
	Last        float64
	BaseVolume  float64
	QuoteVolume float64
}

// Average is the midpoint of bid and ask.
func (t Ticker) Average() float64 {
	return (t.Bid + t.Ask) / 2
}

// Spread is ask minus bid.
func (t Ticker) Spread() float64 {
	return t.Ask - t.Bid
}

// PriceForSide returns the reference price a market order on the given
// side would clear at: ask for a buy, bid for a sell.
func (t Ticker) PriceForSide(side Side) float64 {
	if side == SideBuy {
		return t.Ask
	}
	return t.Bid
}
