package scanner

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"divscan/internal/config/writer"
)

func TestTargets(t *testing.T) {
	doc := &writer.MarketsYAML{}
	doc.Markets.Set("B", []writer.MarketEntry{{Symbol: "B1"}, {Symbol: ""}, {Symbol: "B2"}})
	doc.Markets.Set("A", []writer.MarketEntry{{Symbol: "A1"}})

	all, err := Targets(doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, tg := range all {
		got = append(got, tg.Market+"/"+tg.Symbol())
	}
	if strings.Join(got, ",") != "B/B1,B/B2,A/A1" {
		t.Fatalf("unexpected targets %v", got)
	}
	sel, err := Targets(doc, []string{"A"})
	if err != nil || len(sel) != 1 || sel[0].Symbol() != "A1" {
		t.Fatalf("selection: %v %v", sel, err)
	}
	if _, err := Targets(doc, []string{"C"}); err == nil {
		t.Fatalf("unknown market should fail")
	}
	if len(doc.Markets.Names) != 2 {
		t.Fatalf("selection must not modify the document")
	}
}

func TestFanOutKeepsOrderAndLimit(t *testing.T) {
	targets := targetsOf("a", "b", "c", "d", "e", "f", "g", "h")
	var inFlight, peak int32
	out, skips, err := fanOut(context.Background(), targets, Options{Concurrency: 3}, func(ctx context.Context, tg Target) (*string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Duration(len(targets)-strings.Index("abcdefgh", tg.Symbol())) * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		switch tg.Symbol() {
		case "c":
			return nil, errors.New("boom")
		case "e":
			return nil, skipf("too short")
		case "g":
			return nil, nil
		}
		s := tg.Symbol()
		return &s, nil
	})
	if peak > 3 {
		t.Fatalf("concurrency limit exceeded: %d", peak)
	}
	if strings.Join(out, "") != "abdfh" {
		t.Fatalf("results out of order: %v", out)
	}
	if err == nil || !strings.Contains(err.Error(), "TEST/c: boom") {
		t.Fatalf("failure should be reported, got %v", err)
	}
	if strings.Contains(err.Error(), "too short") {
		t.Fatalf("skips are not failures: %v", err)
	}
	if len(skips) != 2 || skips[0].Symbol() != "c" || skips[1].Reason != "too short" {
		t.Fatalf("unexpected skips %+v", skips)
	}
}

func TestFanOutCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	_, _, err := fanOut(ctx, targetsOf("a", "b", "c", "d"), Options{Concurrency: 1, RequestDelay: time.Second}, func(ctx context.Context, tg Target) (*int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			cancel()
		}
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("no target should start after cancel, got %d calls", calls)
	}
}
