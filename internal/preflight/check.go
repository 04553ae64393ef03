// Package preflight inspects an equipment CSV locally before it is uploaded,
// using the same column contract the analytics service enforces.
package preflight

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// RequiredColumns must all appear in the header.
var RequiredColumns = []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"}

// NumericColumns are coerced to numbers by the service; rows where any of
// them fails to parse are dropped before statistics are computed.
var NumericColumns = []string{"Flowrate", "Pressure", "Temperature"}

// Report is the outcome of a local check.
type Report struct {
	Name      string
	Delimiter rune
	Columns   []string
	Missing   []string
	Rows      int
	// Usable rows have a parseable value in every numeric column.
	Usable  int
	Skipped []SkippedRow
	Types   map[string]int
	Means   map[string]float64
}

// SkippedRow records a data row the service would drop.
type SkippedRow struct {
	Line   int
	Column string
	Value  string
}

// OK reports whether the file satisfies the column contract and has at least
// one usable row.
func (r *Report) OK() bool { return len(r.Missing) == 0 && r.Usable > 0 }

// Problems lists human-readable reasons the upload would be rejected or
// degraded.
func (r *Report) Problems() []string {
	var out []string
	if len(r.Missing) > 0 {
		out = append(out, "missing required columns: "+strings.Join(r.Missing, ", "))
	}
	if len(r.Missing) == 0 && r.Usable == 0 {
		out = append(out, "no rows with numeric Flowrate, Pressure and Temperature")
	}
	if n := len(r.Skipped); n > 0 {
		out = append(out, fmt.Sprintf("%d row(s) with non-numeric values will be dropped", n))
	}
	return out
}

// TypeNames returns the equipment types seen, sorted by count then name.
func (r *Report) TypeNames() []string {
	names := make([]string, 0, len(r.Types))
	for k := range r.Types {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if r.Types[names[i]] != r.Types[names[j]] {
			return r.Types[names[i]] > r.Types[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// CheckFile opens path and runs Check on it.
func CheckFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return Check(filepath.Base(path), f)
}

// Check reads a CSV stream and validates it against the column contract.
func Check(name string, in io.Reader) (*Report, error) {
	delim := sniffDelimiter(name)
	r := csv.NewReader(in)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	rep := &Report{
		Name:      name,
		Delimiter: delim,
		Types:     map[string]int{},
		Means:     map[string]float64{},
	}
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			rep.Missing = append(rep.Missing, RequiredColumns...)
			return rep, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		rep.Columns = append(rep.Columns, h)
		index[h] = i
	}
	for _, c := range RequiredColumns {
		if _, ok := index[c]; !ok {
			rep.Missing = append(rep.Missing, c)
		}
	}

	// running means via Welford, one per numeric column
	type acc struct {
		n    int
		mean float64
	}
	accs := make([]acc, len(NumericColumns))
	line := 1
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++
		rep.Rows++
		if len(rep.Missing) > 0 {
			continue
		}
		vals := make([]float64, len(NumericColumns))
		usable := true
		for i, c := range NumericColumns {
			raw := field(rec, index[c])
			f, ok := parseNumeric(raw)
			if !ok {
				rep.Skipped = append(rep.Skipped, SkippedRow{Line: line, Column: c, Value: raw})
				usable = false
				break
			}
			vals[i] = f
		}
		if !usable {
			continue
		}
		rep.Usable++
		rep.Types[field(rec, index["Type"])]++
		for i, v := range vals {
			a := &accs[i]
			a.n++
			a.mean += (v - a.mean) / float64(a.n)
		}
	}
	for i, c := range NumericColumns {
		if accs[i].n > 0 {
			rep.Means[c] = accs[i].mean
		}
	}
	return rep, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

// parseNumeric accepts what a plain numeric coercion accepts: decimal and
// scientific notation, no thousands separators or units.
func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
