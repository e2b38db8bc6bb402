package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
	"github.com/i474232898/pm25-dashboard/internal/common"
)

// nullTokens are cell values treated as missing.
var nullTokens = []string{"", "nan", "na", "n/a", "null", "-"}

// Table is an immutable in-memory copy of the historical dataset holding
// only complete rows.
type Table struct {
	columns []string
	rows    []airquality.Row
	dropped int
}

// Load reads the CSV file at path. The header must name every feature column.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &airquality.StartupError{Component: "dataset", Err: err}
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, &airquality.StartupError{Component: "dataset " + path, Err: err}
	}
	return t, nil
}

// Parse reads a CSV table from r.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if err := requireColumns(header, airquality.FeatureNames); err != nil {
		return nil, err
	}

	t := &Table{columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		values := make([]float64, len(header))
		complete := true
		for i, cell := range rec {
			if common.EqualFoldAny(cell, nullTokens...) {
				complete = false
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: invalid number %q", line, header[i], cell)
			}
			if !common.IsFinite(v) {
				complete = false
				continue
			}
			values[i] = v
		}
		if !complete {
			t.dropped++
			continue
		}
		t.rows = append(t.rows, airquality.NewRow(t.columns, values))
	}
	return t, nil
}

// Columns returns the header in file order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Rows returns the complete rows.
func (t *Table) Rows() []airquality.Row {
	return t.rows
}

// Dropped returns how many rows were excluded for containing nulls.
func (t *Table) Dropped() int {
	return t.dropped
}

// FeatureMeans returns the mean of each named column over complete rows.
func (t *Table) FeatureMeans(columns []string) (map[string]float64, error) {
	if err := requireColumns(t.columns, columns); err != nil {
		return nil, err
	}
	if len(t.rows) == 0 {
		return nil, airquality.ErrEmptyDataset
	}

	sums := make(map[string]float64, len(columns))
	for _, row := range t.rows {
		for _, c := range columns {
			v, _ := row.Get(c)
			sums[c] += v
		}
	}
	n := float64(len(t.rows))
	means := make(map[string]float64, len(columns))
	for _, c := range columns {
		means[c] = sums[c] / n
	}
	return means, nil
}

func requireColumns(have, want []string) error {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	var missing []string
	for _, w := range want {
		if _, ok := set[w]; !ok {
			missing = append(missing, w)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}
