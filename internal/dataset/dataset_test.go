package dataset

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
)

const sample = `T,TM,Tm,SLP,H,VV,V,VM,PM 2.5
7.4,9.8,4.8,1017.6,93,0.5,4.3,9.4,219.72
7.8,12.7,4.4,1018.5,87,0.6,4.4,11.1,182.19
6.7,13.4,2.4,1019.4,82,0.6,4.8,11.1,
8.6,15.5,3.3,1018.7,72,NaN,8.1,20.6,154.04
12.4,20.9,4.4,1017.3,61,1.3,8.7,22.2,223.21
`

func TestParse_DropsIncompleteRows(t *testing.T) {
	tbl, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Len(t, tbl.Rows(), 3)
	assert.Equal(t, 2, tbl.Dropped())
	assert.Equal(t, []string{"T", "TM", "Tm", "SLP", "H", "VV", "V", "VM", "PM 2.5"}, tbl.Columns())

	first := tbl.Rows()[0]
	assert.Equal(t, 9, first.Len())
	v, ok := first.Get("T")
	assert.True(t, ok)
	assert.Equal(t, 7.4, v)
	v, _ = first.Get("PM 2.5")
	assert.Equal(t, 219.72, v)
	_, ok = first.Get("Ozone")
	assert.False(t, ok)
}

func TestFeatureMeans(t *testing.T) {
	tbl, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	means, err := tbl.FeatureMeans(airquality.FeatureNames)
	require.NoError(t, err)

	assert.InDelta(t, (7.4+7.8+12.4)/3, means["T"], 1e-9)
	assert.InDelta(t, (1017.6+1018.5+1017.3)/3, means["SLP"], 1e-9)
	assert.InDelta(t, (4.3+4.4+8.7)/3, means["V"], 1e-9)
	assert.Len(t, means, 6)
}

func TestFeatureMeans_UnknownColumn(t *testing.T) {
	tbl, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	_, err = tbl.FeatureMeans([]string{"T", "Ozone"})
	assert.ErrorContains(t, err, "Ozone")
}

func TestFeatureMeans_EmptyAfterDroppingNulls(t *testing.T) {
	tbl, err := Parse(strings.NewReader("T,TM,Tm,SLP,H,V\n1,2,,4,5,6\nNA,2,3,4,5,6\n"))
	require.NoError(t, err)
	assert.Empty(t, tbl.Rows())

	_, err = tbl.FeatureMeans(airquality.FeatureNames)
	assert.ErrorIs(t, err, airquality.ErrEmptyDataset)
}

func TestRowJSONKeepsHeaderOrder(t *testing.T) {
	tbl, err := Parse(strings.NewReader("V,T,PM 2.5,H,SLP,Tm,TM\n4.3,7.4,219.72,93,1017.6,4.8,9.8\n"))
	require.NoError(t, err)

	data, err := json.Marshal(tbl.Rows())
	require.NoError(t, err)
	assert.Equal(t, `[{"V":4.3,"T":7.4,"PM 2.5":219.72,"H":93,"SLP":1017.6,"Tm":4.8,"TM":9.8}]`, string(data))
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"missing feature": "T,TM,Tm,SLP,H\n1,2,3,4,5\n",
		"bad number":      "T,TM,Tm,SLP,H,V\n1,2,3,4,5,windy\n",
		"ragged row":      "T,TM,Tm,SLP,H,V\n1,2,3,4,5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(body))
			assert.Error(t, err)
		})
	}
}

func TestParse_HeaderWithBOM(t *testing.T) {
	tbl, err := Parse(strings.NewReader("\ufeffT,TM,Tm,SLP,H,V\n1,2,3,4,5,6\n"))
	require.NoError(t, err)
	assert.Len(t, tbl.Rows(), 1)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Real_Combine.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	tbl, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows(), 3)
}

func TestLoad_MissingFileIsStartupError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))

	var se *airquality.StartupError
	require.True(t, errors.As(err, &se))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
