package market

import "sort"

// Normalize sorts candles by OpenTime and drops duplicated timestamps,
// keeping the last occurrence. The input slice is not modified.
func Normalize(candles []Candle) []Candle {
	if len(candles) == 0 {
		return nil
	}
	out := make([]Candle, len(candles))
	copy(out, candles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenTime < out[j].OpenTime })
	dst := out[:0]
	for _, c := range out {
		if n := len(dst); n > 0 && dst[n-1].OpenTime == c.OpenTime {
			dst[n-1] = c
			continue
		}
		dst = append(dst, c)
	}
	return dst
}

// Tail returns the last n candles (all of them when n <= 0 or n >= len).
func Tail(candles []Candle, n int) []Candle {
	if n <= 0 || n >= len(candles) {
		return candles
	}
	return candles[len(candles)-n:]
}
