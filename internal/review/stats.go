// Package review computes display-ready aggregate statistics over rating
// submissions.
package review

import "math"

// Stats is a count plus a 1-decimal average; Avg is nil when no valid
// ratings exist.
type Stats struct {
	Count int      `json:"count"`
	Avg   *float64 `json:"avg"`
}

// Simple filters out non-finite ratings and returns their count and mean,
// rounded half-up to one decimal place.
func Simple(ratings []float64) Stats {
	var sum float64
	count := 0
	for _, r := range ratings {
		if !isFinite(r) {
			continue
		}
		sum += r
		count++
	}
	if count == 0 {
		return Stats{Count: 0, Avg: nil}
	}
	avg := round1(sum / float64(count))
	return Stats{Count: count, Avg: &avg}
}

// Row carries up to six rating dimensions of one review row. Missing
// dimensions are nil; older schema revisions lack the price and satisfaction
// columns entirely.
type Row struct {
	Overall      *float64
	Teacher      *float64
	Material     *float64
	Connection   *float64
	Price        *float64
	Satisfaction *float64
}

// Detailed is the aggregate over a set of review rows. The four core
// averages are computed over exactly the rows counted in Count, so the four
// numbers stay comparable. Price and satisfaction use their own independent
// row filters and counts.
type Detailed struct {
	Count             int      `json:"count"`
	Overall           *float64 `json:"overall"`
	TeacherQuality    *float64 `json:"teacherQuality"`
	MaterialQuality   *float64 `json:"materialQuality"`
	ConnectionQuality *float64 `json:"connectionQuality"`
	PriceCount        int      `json:"priceCount"`
	Price             *float64 `json:"price"`
	SatisfactionCount int      `json:"satisfactionCount"`
	Satisfaction      *float64 `json:"satisfaction"`
}

// DetailedStats aggregates rows per the core/optional split: a row
// contributes to the core averages only when all four core dimensions are
// present and finite, while the optional dimensions average over whichever
// rows carry that specific field. Optional columns added later must not be
// held hostage by older rows that predate the core schema.
func DetailedStats(rows []Row) Detailed {
	var overall, teacher, material, connection accumulator
	var price, satisfaction accumulator

	for _, row := range rows {
		if validDim(row.Overall) && validDim(row.Teacher) &&
			validDim(row.Material) && validDim(row.Connection) {
			overall.add(*row.Overall)
			teacher.add(*row.Teacher)
			material.add(*row.Material)
			connection.add(*row.Connection)
		}
		if validDim(row.Price) {
			price.add(*row.Price)
		}
		if validDim(row.Satisfaction) {
			satisfaction.add(*row.Satisfaction)
		}
	}

	return Detailed{
		Count:             overall.count,
		Overall:           overall.avg(),
		TeacherQuality:    teacher.avg(),
		MaterialQuality:   material.avg(),
		ConnectionQuality: connection.avg(),
		PriceCount:        price.count,
		Price:             price.avg(),
		SatisfactionCount: satisfaction.count,
		Satisfaction:      satisfaction.avg(),
	}
}

type accumulator struct {
	sum   float64
	count int
}

func (a *accumulator) add(v float64) {
	a.sum += v
	a.count++
}

func (a *accumulator) avg() *float64 {
	if a.count == 0 {
		return nil
	}
	v := round1(a.sum / float64(a.count))
	return &v
}

func validDim(v *float64) bool {
	return v != nil && isFinite(*v)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// round1 rounds half-up at the 0.1 boundary, matching how the scores are
// shown on the site.
func round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
