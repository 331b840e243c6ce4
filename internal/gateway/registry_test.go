package gateway

import (
	"reflect"
	"testing"

	"divscan/internal/config"
)

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	reg, err := NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if !reflect.DeepEqual(reg.Names(), []string{"binance", "csv"}) {
		t.Fatalf("names: %v", reg.Names())
	}
	src, err := reg.Get(" CSV ")
	if err != nil || src.Name() != "csv" {
		t.Fatalf("lookup csv: %v %v", src, err)
	}
	if _, err := reg.Get("yfinance"); err == nil {
		t.Fatalf("unknown source should fail")
	}
}
