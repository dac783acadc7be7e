package models

import (
	"math"
	"strings"
	"time"
)

// Field identifies one of the four measured quantities of a daily record.
// The order of the constants is the column order used by every table and report.
type Field int

const (
	FieldPrecip Field = iota
	FieldMaxTemp
	FieldMinTemp
	FieldWindSpeed
)

// NumFields is the number of measured fields per record
const NumFields = 4

// AllFields lists the measured fields in column order
var AllFields = [NumFields]Field{FieldPrecip, FieldMaxTemp, FieldMinTemp, FieldWindSpeed}

// String returns the column header used in reports ("Precip", "Max Temp", ...)
func (f Field) String() string {
	switch f {
	case FieldPrecip:
		return "Precip"
	case FieldMaxTemp:
		return "Max Temp"
	case FieldMinTemp:
		return "Min Temp"
	case FieldWindSpeed:
		return "Wind Speed"
	default:
		return "Unknown"
	}
}

// Key returns the snake_case identifier used in logs, metrics and SQL columns
func (f Field) Key() string {
	return strings.ReplaceAll(strings.ToLower(f.String()), " ", "_")
}

// Unit returns the physical unit of the field
func (f Field) Unit() string {
	switch f {
	case FieldPrecip:
		return "mm"
	case FieldMaxTemp, FieldMinTemp:
		return "°C"
	case FieldWindSpeed:
		return "m/s"
	default:
		return ""
	}
}

// DailyRecord is a single day of observations.
// A nil field means the value is absent.
type DailyRecord struct {
	Date           time.Time `json:"date" db:"obs_date"`
	Precipitation  *float64  `json:"precip,omitempty" db:"precip"`
	MaxTemperature *float64  `json:"max_temp,omitempty" db:"max_temp"`
	MinTemperature *float64  `json:"min_temp,omitempty" db:"min_temp"`
	WindSpeed      *float64  `json:"wind_speed,omitempty" db:"wind_speed"`
}

// Value returns the value of field f, nil when absent
func (r *DailyRecord) Value(f Field) *float64 {
	switch f {
	case FieldPrecip:
		return r.Precipitation
	case FieldMaxTemp:
		return r.MaxTemperature
	case FieldMinTemp:
		return r.MinTemperature
	case FieldWindSpeed:
		return r.WindSpeed
	default:
		return nil
	}
}

// SetValue replaces the value of field f. Pass nil to mark it absent.
func (r *DailyRecord) SetValue(f Field, v *float64) {
	switch f {
	case FieldPrecip:
		r.Precipitation = v
	case FieldMaxTemp:
		r.MaxTemperature = v
	case FieldMinTemp:
		r.MinTemperature = v
	case FieldWindSpeed:
		r.WindSpeed = v
	}
}

// Clone returns a deep copy so that the copy shares no value pointers with r
func (r DailyRecord) Clone() DailyRecord {
	out := DailyRecord{Date: r.Date}
	for _, f := range AllFields {
		if v := r.Value(f); v != nil {
			out.SetValue(f, Float(*v))
		}
	}
	return out
}

// Float returns a pointer to a copy of v
func Float(v float64) *float64 {
	return &v
}

// RecordTable is the ordered daily time series every QC check operates on.
// Checks mutate field values in place but never add or remove rows.
type RecordTable struct {
	Records []DailyRecord
}

// NewRecordTable wraps records, which must already be in ascending date order
func NewRecordTable(records []DailyRecord) *RecordTable {
	return &RecordTable{Records: records}
}

// Len returns the number of rows
func (t *RecordTable) Len() int {
	return len(t.Records)
}

// AbsentCount returns how many rows have field f absent
func (t *RecordTable) AbsentCount(f Field) int {
	n := 0
	for i := range t.Records {
		if t.Records[i].Value(f) == nil {
			n++
		}
	}
	return n
}

// AbsentCounts returns the absent count of every field
func (t *RecordTable) AbsentCounts() FieldCounts {
	var c FieldCounts
	for _, f := range AllFields {
		c[f] = t.AbsentCount(f)
	}
	return c
}

// Values returns the present values of field f in row order
func (t *RecordTable) Values(f Field) []float64 {
	out := make([]float64, 0, len(t.Records))
	for i := range t.Records {
		if v := t.Records[i].Value(f); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Clone returns a deep copy of the table
func (t *RecordTable) Clone() *RecordTable {
	records := make([]DailyRecord, len(t.Records))
	for i, r := range t.Records {
		records[i] = r.Clone()
	}
	return &RecordTable{Records: records}
}

// RawDailyRecord represents a single line of an input data file
// Used during ingestion, before any quality control
type RawDailyRecord struct {
	Line      int
	Date      string
	Precip    float64 // may be the -999 no-data sentinel
	MaxTemp   float64
	MinTemp   float64
	WindSpeed float64
}

// DateLayouts are the accepted layouts for the date column, tried in order
var DateLayouts = []string{"2006-01-02", "2006/01/02", "20060102"}

// ToRecord converts a RawDailyRecord into a DailyRecord.
// Sentinel values are kept as numbers: removing them is the job of the
// first QC check. NaN readings are mapped to absent.
func (r *RawDailyRecord) ToRecord() (*DailyRecord, error) {
	var (
		date time.Time
		err  error
	)
	for _, layout := range DateLayouts {
		date, err = time.Parse(layout, r.Date)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, &ValidationError{
			Line:    r.Line,
			Field:   "Date",
			Value:   r.Date,
			Message: "invalid date format, expected YYYY-MM-DD",
		}
	}

	rec := &DailyRecord{Date: date}
	raw := [NumFields]float64{r.Precip, r.MaxTemp, r.MinTemp, r.WindSpeed}
	for _, f := range AllFields {
		v := raw[f]
		if math.IsInf(v, 0) {
			return nil, &ValidationError{
				Line:    r.Line,
				Field:   f.String(),
				Value:   "Inf",
				Message: "infinite values are not valid readings",
			}
		}
		if math.IsNaN(v) {
			continue
		}
		rec.SetValue(f, Float(v))
	}

	return rec, nil
}
