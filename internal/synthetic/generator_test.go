package synthetic

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
)

func TestValues_Deterministic(t *testing.T) {
	p := DefaultParams()
	a := Values(p)
	b := Values(p)

	require.Len(t, a, 120)
	for i := range a {
		assert.Equal(t, math.Float64bits(a[i]), math.Float64bits(b[i]), "index %d", i)
	}
}

func TestValues_SeedChangesSeries(t *testing.T) {
	p := DefaultParams()
	q := p
	q.Seed = 7
	assert.NotEqual(t, Values(p), Values(q))
}

func TestValues_ClippedAndRounded(t *testing.T) {
	p := DefaultParams()
	for i, v := range Values(p) {
		assert.GreaterOrEqual(t, v, 30.0, "index %d", i)
		assert.LessOrEqual(t, v, 300.0, "index %d", i)
		assert.InDelta(t, v, math.Round(v*100)/100, 1e-9, "index %d", i)
	}
}

func TestValues_ClipBoundsApply(t *testing.T) {
	p := Params{Days: 50, Mean: 0, StdDev: 100, Seed: 1, Min: -5, Max: 5}
	var low, high bool
	for _, v := range Values(p) {
		low = low || v == -5
		high = high || v == 5
		assert.True(t, v >= -5 && v <= 5)
	}
	assert.True(t, low && high, "wide distribution should hit both bounds")
}

func TestGenerate_DatesShiftValuesDoNot(t *testing.T) {
	p := DefaultParams()
	day1 := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 3)

	a, err := Generate(p, day1)
	require.NoError(t, err)
	b, err := Generate(p, day2)
	require.NoError(t, err)

	assert.Equal(t, "2026-10-14", a[0].Date)
	assert.Equal(t, "2026-10-17", b[0].Date)
	assert.Equal(t, "2027-02-10", a[119].Date)
	for i := range a {
		assert.Equal(t, a[i].PredictedPM25, b[i].PredictedPM25)
	}
}

func TestGenerate_InvalidParams(t *testing.T) {
	for _, p := range []Params{
		{Days: 0, StdDev: 1, Min: 0, Max: 1},
		{Days: 1, StdDev: -1, Min: 0, Max: 1},
		{Days: 1, StdDev: 1, Min: 2, Max: 1},
	} {
		_, err := Generate(p, time.Now())
		assert.Error(t, err)
	}
}

func TestPublish_WritesArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "static", "forecast.json")
	start := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

	points, err := Publish(path, DefaultParams(), start)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []airquality.ForecastPoint
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, points, got)

	// Same day, same bytes.
	_, err = Publish(path, DefaultParams(), start)
	require.NoError(t, err)
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}
