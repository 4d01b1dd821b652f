package market

import (
	"context"
	"fmt"
)

// FallbackProvider asks each provider in turn and returns the first answer.
type FallbackProvider struct {
	providers []QuoteProvider
}

func NewFallbackProvider(providers ...QuoteProvider) *FallbackProvider {
	return &FallbackProvider{providers: providers}
}

func (m *FallbackProvider) GetQuote(ctx context.Context, query string) (Snapshot, error) {
	if len(m.providers) == 0 {
		return Snapshot{}, fmt.Errorf("no quote providers configured")
	}
	var lastErr error
	for _, p := range m.providers {
		snap, err := p.GetQuote(ctx, query)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return Snapshot{}, lastErr
}
