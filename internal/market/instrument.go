package market

// Instrument is one tracked market. The list is compiled in.
type Instrument struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Query string `json:"query"`

	Icon     string `json:"icon"`
	ListName string `json:"list_name"`
	Label    string `json:"label"`

	// BadgeDecimals is the number of fraction digits on the compact badge.
	// Zero means the price is rounded to an integer.
	BadgeDecimals int `json:"badge_decimals"`
	// ListDecimals is the number of fraction digits on the viewer card.
	ListDecimals int `json:"list_decimals"`
}

// Instruments is the fixed set polled and displayed, in display order.
var Instruments = []Instrument{
	{Key: "SPX", Name: "S&P 500", Query: "SPY", Icon: "🇺🇸", ListName: "S&P 500", Label: "المؤشر الأمريكي", BadgeDecimals: 0, ListDecimals: 0},
	{Key: "GOLD", Name: "الذهب", Query: "GC=F", Icon: "🥇", ListName: "الذهب", Label: "أونصة / دولار", BadgeDecimals: 0, ListDecimals: 0},
	{Key: "OIL", Name: "النفط", Query: "CL=F", Icon: "🛢️", ListName: "النفط", Label: "خام WTI / برميل", BadgeDecimals: 1, ListDecimals: 2},
	// Aramco stands in for the TASI index.
	{Key: "TASI", Name: "تاسي", Query: "2222.SR", Icon: "🇸🇦", ListName: "أرامكو", Label: "السوق السعودي", BadgeDecimals: 1, ListDecimals: 2},
}

// Lookup returns the instrument registered under key.
func Lookup(key string) (Instrument, bool) {
	for _, inst := range Instruments {
		if inst.Key == key {
			return inst, true
		}
	}
	return Instrument{}, false
}

// Known drops every entry whose key is not a configured instrument.
func Known(set MarketDataSet) MarketDataSet {
	out := make(MarketDataSet, len(set))
	for k, q := range set {
		if _, ok := Lookup(k); ok {
			out[k] = q
		}
	}
	return out
}
