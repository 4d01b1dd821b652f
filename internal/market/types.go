package market

import "context"

// Quote is the display record kept per instrument.
type Quote struct {
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct string  `json:"changePct"`
	Up        bool    `json:"up"`
}

// MarketDataSet maps instrument key to its latest quote.
type MarketDataSet map[string]Quote

// Clone returns a copy safe to hand to another goroutine.
func (m MarketDataSet) Clone() MarketDataSet {
	out := make(MarketDataSet, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Snapshot is the raw upstream observation a Quote is derived from.
type Snapshot struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close"`
	TS        int64   `json:"ts"`
}

type QuoteProvider interface {
	GetQuote(ctx context.Context, query string) (Snapshot, error)
}
