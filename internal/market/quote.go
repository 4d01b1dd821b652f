package market

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoPrice         = errors.New("no market price")
	ErrNoPreviousClose = errors.New("no previous close")
	ErrEmptyResult     = errors.New("empty chart result")
)

var hundred = decimal.NewFromInt(100)

// NewQuote derives the display record from a price and its previous close.
// Percent change is computed from the rounded change over the magnitude of
// the previous close, so its sign and Up always agree with Change. Negative
// prices are valid; zero means the field was missing.
func NewQuote(price, prevClose float64) (Quote, error) {
	if price == 0 {
		return Quote{}, ErrNoPrice
	}
	if prevClose == 0 {
		return Quote{}, ErrNoPreviousClose
	}
	p := decimal.NewFromFloat(price)
	prev := decimal.NewFromFloat(prevClose)

	change := p.Sub(prev).Round(2)
	pct := change.Div(prev.Abs()).Mul(hundred).Round(2)
	changeF, _ := change.Float64()

	return Quote{
		Price:     price,
		Change:    changeF,
		ChangePct: formatPct(change, pct),
		Up:        !change.IsNegative(),
	}, nil
}

// formatPct keeps the minus on a loss too small to survive rounding,
// e.g. -0.01 on 500 gives "-0.00".
func formatPct(change, pct decimal.Decimal) string {
	if change.IsNegative() && pct.IsZero() {
		return "-" + pct.Abs().StringFixed(2)
	}
	return pct.StringFixed(2)
}

// FromSnapshot is NewQuote over an upstream snapshot.
func FromSnapshot(s Snapshot) (Quote, error) {
	return NewQuote(s.Price, s.PrevClose)
}
