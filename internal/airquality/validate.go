package airquality

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/pm25-dashboard/internal/common"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		return common.IsFinite(fl.Field().Float())
	})
	return v
}

// ParseFeatureVector decodes a JSON object into a FeatureVector.
//
// All six required keys must be present. Values may be JSON numbers or
// strings holding a number; anything else is an invalid value. Extra keys
// are ignored.
func ParseFeatureVector(body []byte) (FeatureVector, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return FeatureVector{}, &ValidationError{Reason: "request body must be a JSON object"}
	}

	var missing []string
	for _, name := range FeatureNames {
		if _, ok := raw[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return FeatureVector{}, &ValidationError{Reason: "missing field", Fields: missing}
	}

	values := make(map[string]float64, len(FeatureNames))
	var invalid []string
	for _, name := range FeatureNames {
		v, ok := coerceFloat(raw[name])
		if !ok {
			invalid = append(invalid, name)
			continue
		}
		values[name] = v
	}
	if len(invalid) > 0 {
		return FeatureVector{}, &ValidationError{Reason: "invalid value for field", Fields: invalid}
	}

	fv := FeatureVectorFrom(values)
	if err := ValidateFeatureVector(fv); err != nil {
		return FeatureVector{}, err
	}
	return fv, nil
}

// ValidateFeatureVector rejects vectors holding NaN or infinite values.
func ValidateFeatureVector(fv FeatureVector) error {
	err := validate.Struct(fv)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Reason: err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Reason: "invalid value for field", Fields: fields}
}

// ValidateHorizon checks a forecast horizon against maxDays, or against
// DefaultMaxForecastDays when maxDays <= 0.
func ValidateHorizon(days, maxDays int) error {
	if maxDays <= 0 {
		maxDays = DefaultMaxForecastDays
	}
	if err := validate.Var(days, "gt=0"); err != nil {
		return &ValidationError{Reason: "days must be a positive integer"}
	}
	if days > maxDays {
		return &ValidationError{Reason: "days must not exceed " + strconv.Itoa(maxDays)}
	}
	return nil
}

func coerceFloat(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
