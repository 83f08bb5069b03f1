package mirror

// GetTotalBalance implements §4.6 "getTotalBalance": it converts every
// currency with a nonzero total into fiat terms and sums them. ignoreMissing
// controls what happens when a currency has no fiat-quoted ticker: skip it
// (true) or fail the whole computation (false, returns ok=false).
//
// §9 open question 3: the original only ever looked up market =
// currency/fiat. We also try the inverse fiat/currency market and invert
// its bid, since an adapter may only expose one direction for a pair.
func (m *Mirror) GetTotalBalance(includeReserve bool, currencies []string, ignoreMissing bool) (float64, bool) {
	e := m.Exchange
	if len(currencies) == 0 {
		currencies = make([]string, 0, len(e.Balances))
		for cur := range e.Balances {
			currencies = append(currencies, cur)
		}
	}

	var sum float64
	for _, cur := range currencies {
		total := m.balanceTotal(cur, includeReserve)
		if total <= 0 {
			continue
		}
		if cur == e.Fiat {
			sum += total
			continue
		}

		price, ok := m.fiatPrice(cur)
		if !ok {
			if !ignoreMissing {
				return 0, false
			}
			continue
		}
		sum += total * price
	}
	return sum, true
}

func (m *Mirror) balanceTotal(currency string, includeReserve bool) float64 {
	b := m.balance(currency)
	if includeReserve {
		return b.Free + b.Used
	}
	return b.ExposedFree() + b.Used
}

// fiatPrice returns the price of one unit of currency in fiat, trying
// currency/fiat first and falling back to the inverse of fiat/currency.
func (m *Mirror) fiatPrice(currency string) (float64, bool) {
	e := m.Exchange
	if t, ok := e.Tickers[currency+"/"+e.Fiat]; ok && t.Bid > 0 {
		return t.Bid, true
	}
	if t, ok := e.Tickers[e.Fiat+"/"+currency]; ok && t.Bid > 0 {
		return 1 / t.Bid, true
	}
	return 0, false
}
