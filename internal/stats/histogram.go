package stats

import (
	"fmt"
	"math"
	"sort"
)

type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Histogram buckets values into right-closed intervals (Edges[i], Edges[i+1]].
// With IncludeLowest the first interval also takes values equal to Edges[0].
// The last edge may be +Inf for an open-ended bucket.
type Histogram struct {
	Edges         []float64
	Labels        []string
	IncludeLowest bool
}

func (h Histogram) Validate() error {
	if len(h.Edges) < 2 {
		return fmt.Errorf("histogram needs at least two edges, got %d", len(h.Edges))
	}
	if len(h.Labels) != len(h.Edges)-1 {
		return fmt.Errorf("histogram has %d labels for %d buckets", len(h.Labels), len(h.Edges)-1)
	}
	for i := 1; i < len(h.Edges); i++ {
		if !(h.Edges[i] > h.Edges[i-1]) {
			return fmt.Errorf("histogram edges not increasing at %d", i)
		}
	}
	return nil
}

// Count returns one bucket per label. Values outside every interval are
// ignored, so the bucket counts sum to the number of in-range values.
func (h Histogram) Count(values []float64) []Bucket {
	buckets := make([]Bucket, len(h.Labels))
	for i, label := range h.Labels {
		buckets[i].Label = label
	}
	if len(h.Edges) < 2 {
		return buckets
	}

	last := len(h.Edges) - 1
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v == h.Edges[0] && h.IncludeLowest {
			buckets[0].Count++
			continue
		}
		if v <= h.Edges[0] || v > h.Edges[last] {
			continue
		}
		// first edge >= v closes the bucket v belongs to
		idx := sort.SearchFloat64s(h.Edges, v)
		buckets[idx-1].Count++
	}
	return buckets
}

var (
	prizeHistogram = Histogram{
		Edges:  []float64{0, 5_000, 10_000, 25_000, 50_000, 100_000, 250_000, 500_000, math.Inf(1)},
		Labels: []string{"<$5K", "$5K-$10K", "$10K-$25K", "$25K-$50K", "$50K-$100K", "$100K-$250K", "$250K-$500K", ">$500K"},
	}
	prizeCountHistogram = Histogram{
		Edges:         []float64{0, 1, 3, 5, 10, math.Inf(1)},
		Labels:        []string{"1", "2-3", "4-5", "6-10", ">10"},
		IncludeLowest: true,
	}
	registrationEdges = []float64{0, 100, 250, 500, 1_000, 2_500, 5_000, 10_000}
)

// PrizeBuckets histograms positive prize values.
func PrizeBuckets(prizes []float64) []Bucket {
	return prizeHistogram.Count(positive(prizes))
}

// PrizeCountBuckets histograms positive per-hackathon prize counts.
func PrizeCountBuckets(counts []float64) []Bucket {
	return prizeCountHistogram.Count(positive(counts))
}

// RegistrationBuckets histograms positive registration counts after dropping
// the values above the 99th percentile. Edges adapt to the trimmed maximum.
func RegistrationBuckets(registrations []float64) []Bucket {
	trimmed := trimAbove(positive(registrations), 0.99)
	if len(trimmed) == 0 {
		return nil
	}
	return RegistrationHistogram(trimmed[len(trimmed)-1]).Count(trimmed)
}

// RegistrationHistogram builds the registration buckets for a maximum value:
// every fixed edge below max, then max itself.
func RegistrationHistogram(max float64) Histogram {
	edges := make([]float64, 0, len(registrationEdges)+1)
	for _, e := range registrationEdges {
		if e < max {
			edges = append(edges, e)
		}
	}
	edges = append(edges, max)

	labels := make([]string, 0, len(edges)-1)
	for i := 0; i < len(edges)-1; i++ {
		switch {
		case i == 0:
			labels = append(labels, fmt.Sprintf("<%d", int64(edges[1])))
		case i == len(edges)-2:
			labels = append(labels, fmt.Sprintf(">%d", int64(edges[i])))
		default:
			labels = append(labels, fmt.Sprintf("%d-%d", int64(edges[i]), int64(edges[i+1])))
		}
	}
	return Histogram{Edges: edges, Labels: labels}
}

func positive(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}
