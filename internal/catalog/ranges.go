package catalog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// EncodeRanges folds a set of positive integers into comma-separated runs,
// e.g. {1,2,3,4,5,7,9,10,11,12} becomes "1-5,7,9-12". Input order and
// duplicates do not matter; non-positive values are dropped.
func EncodeRanges(values []int) string {
	sorted := normalizeUnits(values)
	if len(sorted) == 0 {
		return ""
	}
	var b strings.Builder
	start, prev := sorted[0], sorted[0]
	flush := func() {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(start))
		if prev > start {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(prev))
		}
	}
	for _, v := range sorted[1:] {
		if v == prev+1 {
			prev = v
			continue
		}
		flush()
		start, prev = v, v
	}
	flush()
	return b.String()
}

// DecodeRanges expands range notation back into a sorted distinct slice.
func DecodeRanges(notation string) ([]int, error) {
	notation = strings.TrimSpace(notation)
	if notation == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(notation, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("decode range %q: %w", part, err)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("decode range %q: %w", part, err)
			}
		}
		if start <= 0 || end < start {
			return nil, fmt.Errorf("decode range %q: invalid bounds", part)
		}
		for v := start; v <= end; v++ {
			out = append(out, v)
		}
	}
	return normalizeUnits(out), nil
}

func normalizeUnits(values []int) []int {
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
