package binance

import (
	"context"
	"fmt"

	"divscan/internal/market"
)

// ListSymbols returns the futures contracts listed on the exchange, the
// input for generating markets.yaml.
func (s *Source) ListSymbols(ctx context.Context) ([]market.SymbolInfo, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("binance source not initialized")
	}
	info, err := s.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance exchange info: %w", err)
	}
	out := make([]market.SymbolInfo, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		out = append(out, market.SymbolInfo{
			Symbol:       sym.Symbol,
			BaseAsset:    sym.BaseAsset,
			QuoteAsset:   sym.QuoteAsset,
			ContractType: string(sym.ContractType),
			Status:       string(sym.Status),
		})
	}
	return out, nil
}
