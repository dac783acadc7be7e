// Package qc implements the daily weather quality-control pipeline.
//
// Four checks run in a fixed order over a models.RecordTable, each mutating
// field values in place and recording its own row of the models.DefectLedger:
//
//  1. No Data      sentinel -999 readings become absent
//  2. Gross Error  readings outside their physical range become absent
//  3. Swapped      max/min temperature pairs in the wrong order are swapped
//  4. Range Fail   temperature pairs with a diurnal range above 25 become absent
//
// Rows are never added or removed. The checks are total: given a table that
// passed ingestion they always complete.
package qc
