package signal

import "time"

// Reindex maps a boolean series from one calendar onto another using
// forward-fill: each destination date takes the value of the latest source
// date at or before it. Destination dates before the first source date
// default to false, matching the "no index state known yet" case.
func Reindex(srcDates []time.Time, src []bool, dstDates []time.Time) []bool {
	out := make([]bool, len(dstDates))
	if len(srcDates) == 0 || len(src) == 0 {
		return out
	}

	j := -1
	for i, d := range dstDates {
		for j+1 < len(srcDates) && !srcDates[j+1].After(d) {
			j++
		}
		if j >= 0 && j < len(src) {
			out[i] = src[j]
		}
	}
	return out
}

// And combines aligned boolean series; a position is true only when every
// series is true there
func And(series ...[]bool) []bool {
	if len(series) == 0 {
		return nil
	}
	out := make([]bool, len(series[0]))
	copy(out, series[0])
	for _, s := range series[1:] {
		for i := range out {
			if i >= len(s) || !s[i] {
				out[i] = false
			}
		}
	}
	return out
}

// AnyTrue reports whether a series is true anywhere
func AnyTrue(series []bool) bool {
	for _, v := range series {
		if v {
			return true
		}
	}
	return false
}
