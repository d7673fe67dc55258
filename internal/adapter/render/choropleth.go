package render

import (
	"math"
	"sort"

	"github.com/couchcryptid/census-map-service/internal/domain"
)

// Ramp is the 5-class YlOrRd sequential scale, lightest first.
var Ramp = [5]string{"#ffffb2", "#fecc5c", "#fd8d3c", "#f03b20", "#bd0026"}

// Join matches records to shapes on FIPS. Records without a geometry are
// dropped. Shapes without a record are dropped unless fullState is set, in
// which case they render with a zero value. Output is sorted by FIPS.
func Join(records []domain.NormalizedRecord, shapes []domain.ShapeRecord, fullState bool) []domain.JoinedRecord {
	byFIPS := make(map[string]domain.NormalizedRecord, len(records))
	for _, r := range records {
		byFIPS[r.FIPS] = r
	}

	out := make([]domain.JoinedRecord, 0, len(shapes))
	seen := make(map[string]bool, len(shapes))
	for _, s := range shapes {
		if seen[s.FIPS] {
			continue
		}
		rec, ok := byFIPS[s.FIPS]
		switch {
		case ok:
			out = append(out, domain.JoinedRecord{NormalizedRecord: rec, Geometry: s.Geometry, HasValue: true})
		case fullState:
			out = append(out, domain.JoinedRecord{
				NormalizedRecord: domain.NormalizedRecord{FIPS: s.FIPS, County: s.Name},
				Geometry:         s.Geometry,
			})
		default:
			continue
		}
		seen[s.FIPS] = true
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FIPS < out[j].FIPS })
	return out
}

// Breaks returns len(Ramp)+1 equal-interval class edges spanning values.
// With no values every edge is zero.
func Breaks(values []float64) []float64 {
	edges := make([]float64, len(Ramp)+1)
	if len(values) == 0 {
		return edges
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	step := (hi - lo) / float64(len(Ramp))
	for i := range edges {
		edges[i] = lo + step*float64(i)
	}
	edges[len(edges)-1] = hi
	return edges
}

// Classify returns the ramp index for v given edges from Breaks. The top edge
// is inclusive.
func Classify(v float64, edges []float64) int {
	last := len(Ramp) - 1
	for i := range last {
		if v < edges[i+1] {
			return i
		}
	}
	return last
}
