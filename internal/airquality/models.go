package airquality

import (
	"bytes"
	"encoding/json"
)

// Feature column names, in the fixed order the model consumes them.
const (
	FeatureT   = "T"
	FeatureTM  = "TM"
	FeatureTm  = "Tm"
	FeatureSLP = "SLP"
	FeatureH   = "H"
	FeatureV   = "V"
)

// FeatureNames lists the six required meteorological inputs in model order.
var FeatureNames = []string{FeatureT, FeatureTM, FeatureTm, FeatureSLP, FeatureH, FeatureV}

// DateLayout is the ISO calendar date format used in records and forecasts.
const DateLayout = "2006-01-02"

// FeatureVector holds the meteorological inputs for a single prediction.
type FeatureVector struct {
	T   float64 `json:"T" validate:"finite"`   // average temperature
	TM  float64 `json:"TM" validate:"finite"`  // maximum temperature
	Tm  float64 `json:"Tm" validate:"finite"`  // minimum temperature
	SLP float64 `json:"SLP" validate:"finite"` // sea level pressure
	H   float64 `json:"H" validate:"finite"`   // humidity
	V   float64 `json:"V" validate:"finite"`   // wind speed
}

// Values returns the vector as a row in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{f.T, f.TM, f.Tm, f.SLP, f.H, f.V}
}

// FeatureVectorFrom builds a vector from a column->value mapping.
// Missing columns are left at zero; callers validate presence first.
func FeatureVectorFrom(m map[string]float64) FeatureVector {
	return FeatureVector{
		T:   m[FeatureT],
		TM:  m[FeatureTM],
		Tm:  m[FeatureTm],
		SLP: m[FeatureSLP],
		H:   m[FeatureH],
		V:   m[FeatureV],
	}
}

// PredictionRecord is one journaled prediction. Immutable once written.
type PredictionRecord struct {
	Date string `json:"date"`
	FeatureVector
	PredictedPM25 float64 `json:"predicted_pm25"`
}

// ForecastPoint is a single day of a forecast.
type ForecastPoint struct {
	Date          string  `json:"date"`
	PredictedPM25 float64 `json:"predicted_pm25"`
}

// Row is one complete historical dataset row. It encodes as a JSON object
// whose keys follow the source header order.
type Row struct {
	columns []string
	values  []float64
}

// NewRow pairs values with their column names. Both slices must have the
// same length; columns may be shared between rows.
func NewRow(columns []string, values []float64) Row {
	return Row{columns: columns, values: values}
}

// Get returns the value of the named column.
func (r Row) Get(column string) (float64, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return 0, false
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.columns) }

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
