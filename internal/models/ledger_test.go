package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefectLedger(t *testing.T) {
	l := NewDefectLedger()

	rows := l.Rows()
	require.Len(t, rows, NumChecks)
	assert.Equal(t, "1. No Data", rows[0].Label)
	assert.Equal(t, "2. Gross Error", rows[1].Label)
	assert.Equal(t, "3. Swapped", rows[2].Label)
	assert.Equal(t, "4. Range Fail", rows[3].Label)

	for _, r := range rows {
		assert.Equal(t, FieldCounts{}, r.Counts)
		assert.False(t, r.Completed)
	}
	assert.False(t, l.Complete())
}

func TestDefectLedger_RecordInOrder(t *testing.T) {
	l := NewDefectLedger()

	require.NoError(t, l.Record(CheckNoData, FieldCounts{1, 0, 0, 0}))
	require.NoError(t, l.Record(CheckGrossError, FieldCounts{1, 1, 0, 0}))
	require.NoError(t, l.Record(CheckSwapped, FieldCounts{0, 1, 1, 0}))
	require.NoError(t, l.Record(CheckRangeFail, FieldCounts{0, 1, 1, 0}))

	assert.True(t, l.Complete())
	assert.Equal(t, 3, l.FieldTotal(FieldMaxTemp))
	assert.Equal(t, 2, l.FieldTotal(FieldPrecip))
	assert.Equal(t, 2, l.AbsentTotal(FieldMaxTemp))
	assert.Equal(t, 1, l.AbsentTotal(FieldMinTemp))
	assert.Equal(t, 2, l.AbsentTotal(FieldPrecip))
}

func TestDefectLedger_RejectsOutOfOrder(t *testing.T) {
	l := NewDefectLedger()

	err := l.Record(CheckSwapped, FieldCounts{})
	assert.ErrorIs(t, err, ErrLedgerOrder)

	require.NoError(t, l.Record(CheckNoData, FieldCounts{2, 0, 0, 0}))
	err = l.Record(CheckNoData, FieldCounts{5, 0, 0, 0})
	assert.ErrorIs(t, err, ErrLedgerOrder)
	assert.Equal(t, FieldCounts{2, 0, 0, 0}, l.Counts(CheckNoData), "completed row must not change")

	assert.ErrorIs(t, l.Record(Check(9), FieldCounts{}), ErrLedgerOrder)
}

func TestDefectLedger_MarshalJSON(t *testing.T) {
	l := NewDefectLedger()
	require.NoError(t, l.Record(CheckNoData, FieldCounts{1, 2, 3, 4}))

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "1. No Data", rows[0]["label"])
	assert.Equal(t, float64(4), rows[0]["wind_speed"])
	assert.Equal(t, "4. Range Fail", rows[3]["label"])
}

func TestFieldCounts_Arithmetic(t *testing.T) {
	a := FieldCounts{3, 4, 5, 6}
	b := FieldCounts{1, 1, 1, 1}
	assert.Equal(t, FieldCounts{2, 3, 4, 5}, a.Sub(b))
	assert.Equal(t, 18, a.Total())
}
