package qc

import "weather-qc/internal/models"

// NoDataValue is the sentinel reading meaning "no observation taken"
const NoDataValue = -999.0

// MaxTemperatureRange is the largest plausible max-min spread of one day, in °C
const MaxTemperatureRange = 25.0

// Bounds is a closed interval of plausible values
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the closed interval
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// GrossErrorBounds are the physical plausibility intervals per field
var GrossErrorBounds = [models.NumFields]Bounds{
	models.FieldPrecip:    {Min: 0, Max: 25},
	models.FieldMaxTemp:   {Min: -25, Max: 35},
	models.FieldMinTemp:   {Min: -25, Max: 35},
	models.FieldWindSpeed: {Min: 0, Max: 10},
}
