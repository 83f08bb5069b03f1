package indicators

// RSIOptions controls RSI's formula selection.
type RSIOptions struct {
	// ReproduceLegacyBug selects the source engine's original formula,
	// which has an operator-precedence bug in the final step:
	// 100 - (100/1 + rs) instead of 100 - 100/(1+rs) (spec §9, open
	// question 4). Default false: use the corrected formula. Set true
	// only when bit-exact reproduction of the legacy engine is required;
	// this is never silently "fixed" — both paths exist and are tested.
	ReproduceLegacyBug bool
}

// RSI is the relative-strength index over period p (default 14): up[i] =
// max(0, close[i]-close[i-1]); dn[i] = max(0, close[i-1]-close[i]);
// rs = EMA(up,p)/EMA(dn,p); RSI = 100 - 100/(1+rs). If EMA(dn) is 0, RSI is
// 100.
func RSI(close []float64, p int, opts RSIOptions) []float64 {
	if p <= 0 {
		p = 14
	}
	n := len(close)
	up := make([]float64, n)
	dn := make([]float64, n)
	for i := 1; i < n; i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			up[i] = d
		} else {
			dn[i] = -d
		}
	}
	emaUp := EMA(up, p)
	emaDn := EMA(dn, p)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if emaDn[i] == 0 {
			out[i] = 100
			continue
		}
		rs := emaUp[i] / emaDn[i]
		if opts.ReproduceLegacyBug {
			// Literal transcription of the legacy expression: due to
			// operator precedence this evaluates 100/1, not 100/(1+rs).
			out[i] = 100 - (100/1 + rs)
		} else {
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}
