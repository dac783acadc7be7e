package qc

import (
	"fmt"

	"weather-qc/internal/models"
)

// StageFunc applies one check to the table and records its ledger row
type StageFunc func(table *models.RecordTable, ledger *models.DefectLedger) error

// Stage binds a check to its implementation
type Stage struct {
	Check models.Check
	Apply StageFunc
}

// Stages returns the checks in the only order they may run
func Stages() []Stage {
	return []Stage{
		{Check: models.CheckNoData, Apply: RemoveNoDataValues},
		{Check: models.CheckGrossError, Apply: CheckGrossErrors},
		{Check: models.CheckSwapped, Apply: CorrectSwappedTemperatures},
		{Check: models.CheckRangeFail, Apply: CheckTemperatureRange},
	}
}

// Run applies every stage in order. The ledger must be fresh.
// An error only signals misuse of the ledger (e.g. a reused ledger).
func Run(table *models.RecordTable, ledger *models.DefectLedger) error {
	for _, stage := range Stages() {
		if err := stage.Apply(table, ledger); err != nil {
			return fmt.Errorf("qc stage %s: %w", stage.Check.Label(), err)
		}
	}
	return nil
}
