package store

import (
	"context"
	"encoding/json"
	"fmt"

	"market-ticker/internal/market"
)

// MarketDataKey is the single key the whole data set lives under.
const MarketDataKey = "marketData"

// MarketData reads and writes the shared MarketDataSet.
type MarketData struct {
	kv KV
}

func NewMarketData(kv KV) *MarketData {
	return &MarketData{kv: kv}
}

// Load returns the stored set. An absent key is an empty set, not an error.
func (m *MarketData) Load(ctx context.Context) (market.MarketDataSet, error) {
	raw, ok, err := m.kv.Get(ctx, MarketDataKey)
	if err != nil {
		return nil, fmt.Errorf("load market data: %w", err)
	}
	if !ok || len(raw) == 0 {
		return market.MarketDataSet{}, nil
	}
	var set market.MarketDataSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode market data: %w", err)
	}
	return market.Known(set), nil
}

// Save replaces the stored set.
func (m *MarketData) Save(ctx context.Context, set market.MarketDataSet) error {
	if set == nil {
		set = market.MarketDataSet{}
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode market data: %w", err)
	}
	if err := m.kv.Set(ctx, MarketDataKey, raw); err != nil {
		return fmt.Errorf("save market data: %w", err)
	}
	return nil
}
