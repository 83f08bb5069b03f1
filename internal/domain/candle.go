package domain

// Candle is an immutable OHLCV row for a single timeframe bucket.
type Candle struct {
	Timestamp int64 // unix millis
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// QuoteVolumeEstimate approximates turnover in quote currency when the
// exchange doesn't report it directly: volume times the average of the
// four OHLC prices.
func (c Candle) QuoteVolumeEstimate() float64 {
	return c.Volume * (c.Open + c.High + c.Low + c.Close) / 4
}

// Closes extracts the close series from a candle slice, in order.
func Closes(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volume series from a candle slice, in order.
func Volumes(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Volume
	}
	return out
}

// Highs extracts the high series from a candle slice, in order.
func Highs(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series from a candle slice, in order.
func Lows(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Low
	}
	return out
}

// Tail returns the last element of xs, or the zero value if xs is empty.
func Tail[T any](xs []T) T {
	var zero T
	if len(xs) == 0 {
		return zero
	}
	return xs[len(xs)-1]
}
