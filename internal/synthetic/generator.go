// Package synthetic produces the seeded PM2.5 series shipped as the static
// dashboard forecast. It does not depend on the trained model.
package synthetic

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
	"github.com/i474232898/pm25-dashboard/internal/common"
)

// Params configures the generator.
type Params struct {
	Days   int
	Mean   float64
	StdDev float64
	Seed   uint64
	Min    float64
	Max    float64
}

// DefaultParams returns the parameters of the published artifact.
func DefaultParams() Params {
	return Params{
		Days:   120,
		Mean:   60,
		StdDev: 30,
		Seed:   42,
		Min:    30,
		Max:    300,
	}
}

// Validate rejects parameters that cannot produce a series.
func (p Params) Validate() error {
	switch {
	case p.Days <= 0:
		return errors.New("days must be positive")
	case p.StdDev < 0:
		return errors.New("stddev must not be negative")
	case p.Min > p.Max:
		return fmt.Errorf("min %v exceeds max %v", p.Min, p.Max)
	}
	return nil
}

// Values draws p.Days normal samples from a source seeded with p.Seed,
// rounds each to two decimals and clips it to [Min, Max]. The result
// depends only on p.
func Values(p Params) []float64 {
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
	out := make([]float64, p.Days)
	for i := range out {
		v := common.Round(rng.NormFloat64()*p.StdDev+p.Mean, 2)
		out[i] = min(max(v, p.Min), p.Max)
	}
	return out
}

// Generate pairs Values(p) with consecutive dates starting at start's
// calendar day.
func Generate(p Params, start time.Time) ([]airquality.ForecastPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	y, m, d := start.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, start.Location())

	values := Values(p)
	points := make([]airquality.ForecastPoint, len(values))
	for i, v := range values {
		points[i] = airquality.ForecastPoint{
			Date:          day.AddDate(0, 0, i).Format(airquality.DateLayout),
			PredictedPM25: v,
		}
	}
	return points, nil
}

// WriteFile writes points to path as an indented JSON array, replacing any
// previous artifact atomically.
func WriteFile(path string, points []airquality.ForecastPoint) error {
	data, err := json.MarshalIndent(points, "", "    ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Publish generates the series for start and writes it to path.
func Publish(path string, p Params, start time.Time) ([]airquality.ForecastPoint, error) {
	points, err := Generate(p, start)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(path, points); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return points, nil
}
