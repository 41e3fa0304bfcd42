package stats

import (
	"sort"
	"strings"
)

// Count is one row of a frequency table.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ValueCounts tallies values, dropping blanks, ordered by count descending
// and then key ascending.
func ValueCounts(values []string) []Count {
	tally := make(map[string]int)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		tally[v]++
	}

	counts := make([]Count, 0, len(tally))
	for k, n := range tally {
		counts = append(counts, Count{Key: k, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Key < counts[j].Key
	})
	return counts
}

func TopN(counts []Count, n int) []Count {
	if n < 0 || len(counts) <= n {
		return counts
	}
	return counts[:n]
}

// Split counts records on either side of a boolean, larger side first.
func Split[T any](items []T, pick func(T) bool, trueLabel, falseLabel string) []Count {
	var yes, no int
	for _, item := range items {
		if pick(item) {
			yes++
		} else {
			no++
		}
	}

	counts := make([]Count, 0, 2)
	if no > 0 {
		counts = append(counts, Count{Key: falseLabel, Count: no})
	}
	if yes > 0 {
		counts = append(counts, Count{Key: trueLabel, Count: yes})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

func Total(counts []Count) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}
