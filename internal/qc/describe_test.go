package qc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-qc/internal/models"
)

func TestDescribe(t *testing.T) {
	table := models.NewRecordTable([]models.DailyRecord{
		row(0, f(1), f(10), nil, f(2)),
		row(1, f(2), f(20), nil, nil),
		row(2, f(3), f(30), nil, nil),
	})

	s := Describe("raw", table)

	assert.Equal(t, "raw", s.Stage)
	require.Len(t, s.Fields, models.NumFields)

	precip := s.Fields[models.FieldPrecip]
	assert.Equal(t, "Precip", precip.Field)
	assert.Equal(t, 3, precip.Count)
	assert.Equal(t, 0, precip.Absent)
	require.NotNil(t, precip.Mean)
	assert.InDelta(t, 2.0, *precip.Mean, 1e-9)
	assert.InDelta(t, 1.0, *precip.Min, 1e-9)
	assert.InDelta(t, 3.0, *precip.Max, 1e-9)
	assert.InDelta(t, 2.0, *precip.Median, 1e-9)
	assert.InDelta(t, 1.0, *precip.Std, 1e-9)

	minT := s.Fields[models.FieldMinTemp]
	assert.Equal(t, 0, minT.Count)
	assert.Equal(t, 3, minT.Absent)
	assert.Nil(t, minT.Mean)

	wind := s.Fields[models.FieldWindSpeed]
	assert.Equal(t, 1, wind.Count)
	assert.Nil(t, wind.Std, "std of a single value is undefined")
	assert.InDelta(t, 2.0, *wind.Mean, 1e-9)
}

func TestDescribe_Quartiles(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		q25, q75 float64
	}{
		{name: "even count", values: []float64{4, 1, 3, 2}, q25: 1.75, q75: 3.25},
		{name: "odd count", values: []float64{1, 2, 3, 4, 5}, q25: 2, q75: 4},
		{name: "single value", values: []float64{7}, q25: 7, q75: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]models.DailyRecord, len(tt.values))
			for i, v := range tt.values {
				records[i] = row(i, f(v), nil, nil, nil)
			}

			precip := Describe("raw", models.NewRecordTable(records)).Fields[models.FieldPrecip]

			require.NotNil(t, precip.Q25)
			assert.InDelta(t, tt.q25, *precip.Q25, 1e-9)
			assert.InDelta(t, tt.q75, *precip.Q75, 1e-9)
		})
	}
}
