package market

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe(" h4 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tf.Interval != "4h" || tf.LookbackDays != 150 {
		t.Fatalf("unexpected timeframe: %+v", tf)
	}
	if _, err := ParseTimeframe("M15"); !errors.Is(err, ErrUnsupportedTimeframe) {
		t.Fatalf("expected ErrUnsupportedTimeframe, got %v", err)
	}
}

func TestTimeframeBars(t *testing.T) {
	h4, _ := ParseTimeframe("H4")
	if got := h4.Bars(200); got != 900 {
		t.Fatalf("H4 bars = %d, want 900", got)
	}
	d1, _ := ParseTimeframe("D1")
	if got := d1.Bars(500); got != 500 {
		t.Fatalf("D1 bars = %d, want lookback 500", got)
	}
}

func TestTimeframeChoices(t *testing.T) {
	got := TimeframeChoices([]string{"d1", "h1"}, "h4")
	want := []string{"H4", "D1", "H1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("choices = %v, want %v", got, want)
	}
	if got := TimeframeChoices(nil, ""); !reflect.DeepEqual(got, DefaultTimeframeChoices) {
		t.Fatalf("default choices = %v", got)
	}
}
