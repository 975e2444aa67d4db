package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// inversePrecision is the number of decimal places kept when inverting a rate.
const inversePrecision = 28

// Pair is a (base, quote) currency pair. A rate of the pair is the number of
// quote units for one base unit.
type Pair struct {
	Base  string
	Quote string
}

func (p Pair) String() string { return p.Base + "/" + p.Quote }

// DatedRate is a rate valid from Date on.
type DatedRate struct {
	Date *ast.Date
	Rate decimal.Decimal
}

// PriceMap is a temporal index of exchange rates built from price directives.
// Every pair is stored together with its inverse. Lookups use the most recent
// rate on or before the requested date.
type PriceMap struct {
	rates   map[Pair][]DatedRate
	forward []Pair
}

// BuildPriceMap collects the rates of all price directives. When a pair is
// quoted in both directions, the direction with fewer rates is inverted and
// merged into the other. For a pair quoted more than once on the same day,
// the last directive wins.
func BuildPriceMap(directives []ast.Directive) *PriceMap {
	raw := make(map[Pair][]DatedRate)
	for _, d := range directives {
		price, ok := d.(*ast.Price)
		if !ok || price.Amount == nil {
			continue
		}
		rate, err := ParseAmount(price.Amount)
		if err != nil {
			continue
		}
		pair := Pair{Base: price.Commodity, Quote: price.Amount.Currency}
		raw[pair] = append(raw[pair], DatedRate{Date: price.Date, Rate: rate})
	}

	// Swallow the direction with fewer rates into its inverse.
	for _, pair := range sortedPairs(raw) {
		inverse := Pair{Base: pair.Quote, Quote: pair.Base}
		forward, fok := raw[pair]
		backward, bok := raw[inverse]
		if !fok || !bok {
			continue
		}
		remove, keep := pair, inverse
		if len(forward) >= len(backward) {
			remove, keep = inverse, pair
		}
		for _, dr := range raw[remove] {
			if !dr.Rate.IsZero() {
				raw[keep] = append(raw[keep], DatedRate{Date: dr.Date, Rate: invert(dr.Rate)})
			}
		}
		delete(raw, remove)
	}

	pm := &PriceMap{rates: make(map[Pair][]DatedRate)}
	for _, pair := range sortedPairs(raw) {
		rates := uniqueByDate(raw[pair])
		pm.rates[pair] = rates
		pm.forward = append(pm.forward, pair)

		inverse := make([]DatedRate, 0, len(rates))
		for _, dr := range rates {
			if !dr.Rate.IsZero() {
				inverse = append(inverse, DatedRate{Date: dr.Date, Rate: invert(dr.Rate)})
			}
		}
		pm.rates[Pair{Base: pair.Quote, Quote: pair.Base}] = inverse
	}

	return pm
}

func invert(rate decimal.Decimal) decimal.Decimal {
	return Divide(decimal.NewFromInt(1), rate)
}

func sortedPairs(m map[Pair][]DatedRate) []Pair {
	pairs := make([]Pair, 0, len(m))
	for pair := range m {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Base != pairs[j].Base {
			return pairs[i].Base < pairs[j].Base
		}
		return pairs[i].Quote < pairs[j].Quote
	})
	return pairs
}

// uniqueByDate sorts rates by date and keeps the last rate of each day.
func uniqueByDate(rates []DatedRate) []DatedRate {
	sorted := append([]DatedRate(nil), rates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := make([]DatedRate, 0, len(sorted))
	for _, dr := range sorted {
		if n := len(out); n > 0 && out[n-1].Date.Equal(dr.Date) {
			out[n-1] = dr
			continue
		}
		out = append(out, dr)
	}
	return out
}

// GetPrice returns the most recent rate of base in quote on or before date,
// or the latest rate when date is nil. A currency always converts to itself
// at a rate of one.
func (pm *PriceMap) GetPrice(base, quote string, date *ast.Date) (decimal.Decimal, bool) {
	if base == quote {
		return decimal.NewFromInt(1), true
	}
	if date == nil {
		latest, ok := pm.GetLatestPrice(base, quote)
		return latest.Rate, ok
	}

	rates := pm.rates[Pair{Base: base, Quote: quote}]
	i := sort.Search(len(rates), func(i int) bool {
		return rates[i].Date.After(date)
	})
	if i == 0 {
		return decimal.Zero, false
	}
	return rates[i-1].Rate, true
}

// GetLatestPrice returns the last known rate of base in quote.
func (pm *PriceMap) GetLatestPrice(base, quote string) (DatedRate, bool) {
	rates := pm.rates[Pair{Base: base, Quote: quote}]
	if len(rates) == 0 {
		return DatedRate{}, false
	}
	return rates[len(rates)-1], true
}

// AllPrices returns every rate of the pair in date order.
func (pm *PriceMap) AllPrices(base, quote string) []DatedRate {
	return pm.rates[Pair{Base: base, Quote: quote}]
}

// FirstDate returns the date of the first rate of the pair.
func (pm *PriceMap) FirstDate(base, quote string) (*ast.Date, bool) {
	rates := pm.rates[Pair{Base: base, Quote: quote}]
	if len(rates) == 0 {
		return nil, false
	}
	return rates[0].Date, true
}

// Pairs returns every pair, inverses included, in sorted order.
func (pm *PriceMap) Pairs() []Pair {
	return sortedPairs(pm.rates)
}

// ForwardPairs returns the pairs as they were quoted in the price directives.
func (pm *PriceMap) ForwardPairs() []Pair {
	return pm.forward
}
