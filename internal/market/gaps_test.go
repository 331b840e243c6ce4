package market

import (
	"testing"
	"time"
)

func TestFindGaps(t *testing.T) {
	const h = int64(3600 * 1000)
	bars := []Candle{{OpenTime: 0}, {OpenTime: h}, {OpenTime: 4 * h}, {OpenTime: 5 * h}, {OpenTime: 7 * h}}
	gaps := FindGaps(bars, time.Hour)
	if len(gaps) != 2 {
		t.Fatalf("gaps = %+v", gaps)
	}
	if gaps[0] != (Gap{From: 2 * h, To: 3 * h, Count: 2}) {
		t.Fatalf("first gap = %+v", gaps[0])
	}
	if gaps[1] != (Gap{From: 6 * h, To: 6 * h, Count: 1}) {
		t.Fatalf("second gap = %+v", gaps[1])
	}
	if Missing(gaps) != 3 {
		t.Fatalf("missing = %d", Missing(gaps))
	}
}

func TestFindGapsContiguous(t *testing.T) {
	const h = int64(3600 * 1000)
	bars := []Candle{{OpenTime: 0}, {OpenTime: h}, {OpenTime: 2 * h}}
	if gaps := FindGaps(bars, time.Hour); len(gaps) != 0 {
		t.Fatalf("gaps = %+v", gaps)
	}
	if gaps := FindGaps(bars[:1], time.Hour); gaps != nil {
		t.Fatalf("single bar gaps = %+v", gaps)
	}
	if gaps := FindGaps(bars, 0); gaps != nil {
		t.Fatalf("zero step gaps = %+v", gaps)
	}
}
