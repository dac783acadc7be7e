package qc

import (
	"math"

	"github.com/go-gota/gota/series"

	"weather-qc/internal/models"
)

// Describe summarises every field of the table, computed over present values only
func Describe(stage string, table *models.RecordTable) models.StageSummary {
	summary := models.StageSummary{Stage: stage}
	for _, f := range models.AllFields {
		summary.Fields = append(summary.Fields, describeField(f, table))
	}
	return summary
}

func describeField(f models.Field, table *models.RecordTable) models.FieldSummary {
	values := table.Values(f)
	fs := models.FieldSummary{
		Field:  f.String(),
		Count:  len(values),
		Absent: table.Len() - len(values),
	}
	if len(values) == 0 {
		return fs
	}

	s := series.New(values, series.Float, f.String())
	sorted := s.Subset(s.Order(false)).Float()
	fs.Mean = finite(s.Mean())
	fs.Std = finite(s.StdDev())
	fs.Min = finite(s.Min())
	fs.Q25 = finite(quantile(sorted, 0.25))
	fs.Median = finite(s.Median())
	fs.Q75 = finite(quantile(sorted, 0.75))
	fs.Max = finite(s.Max())
	return fs
}

// quantile interpolates linearly between the closest ranks of sorted values,
// the default of pandas describe(). Series.Quantile returns the lower rank.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// finite drops NaN results, e.g. the std of a single value
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return models.Float(v)
}
