package qc

import (
	"weather-qc/internal/models"
)

// RemoveNoDataValues replaces every sentinel reading with an absent value.
// Its ledger row holds the absent count of each field after replacement.
func RemoveNoDataValues(table *models.RecordTable, ledger *models.DefectLedger) error {
	for i := range table.Records {
		rec := &table.Records[i]
		for _, f := range models.AllFields {
			if v := rec.Value(f); v != nil && *v == NoDataValue {
				rec.SetValue(f, nil)
			}
		}
	}

	return ledger.Record(models.CheckNoData, table.AbsentCounts())
}

// CheckGrossErrors marks present values outside GrossErrorBounds as absent.
// Values exactly on a bound are kept. The ledger row isolates this check's
// share: absent count after the check minus the No Data row.
func CheckGrossErrors(table *models.RecordTable, ledger *models.DefectLedger) error {
	for i := range table.Records {
		rec := &table.Records[i]
		for _, f := range models.AllFields {
			if v := rec.Value(f); v != nil && !GrossErrorBounds[f].Contains(*v) {
				rec.SetValue(f, nil)
			}
		}
	}

	counts := table.AbsentCounts().Sub(ledger.Counts(models.CheckNoData))
	return ledger.Record(models.CheckGrossError, counts)
}

// CorrectSwappedTemperatures swaps max and min temperature on days where
// both are present and max < min.
func CorrectSwappedTemperatures(table *models.RecordTable, ledger *models.DefectLedger) error {
	swaps := 0
	for i := range table.Records {
		rec := &table.Records[i]
		if rec.MaxTemperature == nil || rec.MinTemperature == nil {
			continue
		}
		if *rec.MaxTemperature < *rec.MinTemperature {
			rec.MaxTemperature, rec.MinTemperature = rec.MinTemperature, rec.MaxTemperature
			swaps++
		}
	}

	return ledger.Record(models.CheckSwapped, pairCounts(swaps))
}

// CheckTemperatureRange marks both temperatures absent on days where
// max - min exceeds MaxTemperatureRange.
func CheckTemperatureRange(table *models.RecordTable, ledger *models.DefectLedger) error {
	fails := 0
	for i := range table.Records {
		rec := &table.Records[i]
		if rec.MaxTemperature == nil || rec.MinTemperature == nil {
			continue
		}
		if *rec.MaxTemperature-*rec.MinTemperature > MaxTemperatureRange {
			rec.MaxTemperature = nil
			rec.MinTemperature = nil
			fails++
		}
	}

	return ledger.Record(models.CheckRangeFail, pairCounts(fails))
}

// pairCounts is the ledger row of a check acting on max/min temperature pairs
func pairCounts(n int) models.FieldCounts {
	var c models.FieldCounts
	c[models.FieldMaxTemp] = n
	c[models.FieldMinTemp] = n
	return c
}
