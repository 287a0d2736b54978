package gateway

import (
	"context"
	"errors"
	"testing"
)

type fixedPriceSource struct {
	price float64
	err   error
}

func (s *fixedPriceSource) GetCurrentPrice(_ context.Context, _ string) (float64, error) {
	return s.price, s.err
}

func TestDryRunGateway_FillsAtSourcePrice(t *testing.T) {
	gw := NewDryRunGateway(&fixedPriceSource{price: 0.05}, nil)
	ctx := context.Background()

	buy, err := gw.Buy(ctx, "mint1", 0.5, 0.1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if buy.Price != 0.05 {
		t.Errorf("Expected fill price 0.05, got %v", buy.Price)
	}
	if diff := buy.Amount - 10.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected amount 10, got %v", buy.Amount)
	}
	if buy.TxID == "" {
		t.Error("Expected synthetic tx id")
	}

	sell, err := gw.Sell(ctx, "mint1", 10.0, 0.1)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if sell.Amount != 10.0 {
		t.Errorf("Expected amount 10, got %v", sell.Amount)
	}
	if sell.TxID == buy.TxID {
		t.Error("Expected distinct tx ids")
	}
}

func TestDryRunGateway_PropagatesPriceError(t *testing.T) {
	gw := NewDryRunGateway(&fixedPriceSource{err: ErrPriceUnavailable}, nil)
	ctx := context.Background()

	if _, err := gw.Buy(ctx, "mint1", 0.5, 0.1); !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("Expected ErrPriceUnavailable, got %v", err)
	}
	if _, err := gw.GetCurrentPrice(ctx, "mint1"); !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("Expected ErrPriceUnavailable, got %v", err)
	}
}
