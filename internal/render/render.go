// Package render draws dashboard state as terminal tables.
package render

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/cepv-cli/internal/api"
	"github.com/KaramelBytes/cepv-cli/internal/credstore"
	"github.com/KaramelBytes/cepv-cli/internal/dashboard"
	"github.com/KaramelBytes/cepv-cli/internal/preflight"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Empty-state messages.
const (
	NoSummary  = "Upload a CSV to view statistics"
	NoHistory  = "No uploaded datasets yet."
	NoOutliers = "No outliers detected"
	NoPreview  = "No preview available."
)

var metrics = []string{"Flowrate", "Pressure", "Temperature"}

// Renderer writes tables to w in the given theme.
type Renderer struct {
	w     io.Writer
	theme string
	color bool
}

// New returns a renderer. color enables ANSI colors; turn it off for pipes
// and tests.
func New(w io.Writer, theme string, color bool) *Renderer {
	if theme != credstore.ThemeDark {
		theme = credstore.ThemeLight
	}
	return &Renderer{w: w, theme: theme, color: color}
}

func (r *Renderer) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetTitle(title)
	switch {
	case r.theme == credstore.ThemeDark && r.color:
		t.SetStyle(table.StyleColoredDark)
	case r.theme == credstore.ThemeDark:
		t.SetStyle(table.StyleDouble)
	default:
		t.SetStyle(table.StyleLight)
	}
	return t
}

func (r *Renderer) line(s string) {
	fmt.Fprintln(r.w, s)
}

func (r *Renderer) paint(s string, c text.Colors) string {
	if !r.color || len(c) == 0 {
		return s
	}
	return c.Sprint(s)
}

// Summary draws the statistics cards, type distribution, correlation matrix,
// outliers and type-wise averages. Sections the server omitted are skipped.
func (r *Renderer) Summary(s *api.Summary) {
	if s == nil {
		r.line(NoSummary)
		return
	}
	stats := r.newTable("Statistics")
	stats.AppendHeader(table.Row{"Total Equipment", "Avg Flowrate", "Avg Pressure", "Avg Temperature"})
	stats.AppendRow(table.Row{s.TotalEquipment, fixed2(s.AvgFlowrate), fixed2(s.AvgPressure), fixed2(s.AvgTemperature)})
	stats.Render()

	r.TypeDistribution(s.TypeDistribution)
	if s.Correlation != nil {
		r.Correlation(s.Correlation)
	}
	if s.Outliers != nil {
		r.Outliers(s.Outliers)
	}
	if s.TypewiseAverages != nil {
		r.TypewiseAverages(s.TypewiseAverages)
	}
}

// TypeDistribution draws one row per equipment type with a share bar.
func (r *Renderer) TypeDistribution(dist map[string]int) {
	if len(dist) == 0 {
		return
	}
	total := 0
	for _, n := range dist {
		total += n
	}
	t := r.newTable("Equipment Type Distribution")
	t.AppendHeader(table.Row{"Type", "Count", "Share", ""})
	for _, k := range TypesByCount(dist) {
		share := 0.0
		if total > 0 {
			share = float64(dist[k]) / float64(total)
		}
		t.AppendRow(table.Row{k, dist[k], fmt.Sprintf("%.1f%%", share*100), bar(share, 20)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()
}

// Correlation draws the metric-by-metric coefficient matrix. Strong positive
// and negative coefficients are colored when color is enabled.
func (r *Renderer) Correlation(corr map[string]map[string]float64) {
	t := r.newTable("Correlation Heatmap")
	header := table.Row{""}
	for _, m := range metrics {
		header = append(header, m)
	}
	t.AppendHeader(header)
	for _, row := range metrics {
		cells := table.Row{row}
		for _, col := range metrics {
			v := corr[row][col]
			cells = append(cells, r.paint(fmt.Sprintf("%.2f", v), r.corrColor(v)))
		}
		t.AppendRow(cells)
	}
	t.Render()
}

func (r *Renderer) corrColor(v float64) text.Colors {
	a := math.Abs(v)
	switch {
	case a >= 0.7 && v > 0:
		if r.theme == credstore.ThemeDark {
			return text.Colors{text.FgHiRed, text.Bold}
		}
		return text.Colors{text.FgRed, text.Bold}
	case a >= 0.7:
		if r.theme == credstore.ThemeDark {
			return text.Colors{text.FgHiBlue, text.Bold}
		}
		return text.Colors{text.FgBlue, text.Bold}
	case a >= 0.3:
		return text.Colors{text.FgYellow}
	}
	return nil
}

// Outliers lists rows the server flagged as anomalous.
func (r *Renderer) Outliers(rows []api.Row) {
	if len(rows) == 0 {
		r.line(NoOutliers)
		return
	}
	t := r.newTable("Outlier Detection")
	t.AppendHeader(table.Row{"Equipment", "Type", "Flowrate", "Pressure", "Temperature"})
	for _, o := range rows {
		name := o["Equipment Name"]
		if name == nil {
			name = o["EquipmentName"]
		}
		t.AppendRow(table.Row{api.Text(name), api.Text(o["Type"]), api.Text(o["Flowrate"]), api.Text(o["Pressure"]), api.Text(o["Temperature"])})
	}
	t.Render()
}

// TypewiseAverages draws per-type metric means.
func (r *Renderer) TypewiseAverages(avg map[string]map[string]float64) {
	t := r.newTable("Type-wise Averages")
	t.AppendHeader(table.Row{"Type", "Avg Flowrate", "Avg Pressure", "Avg Temperature"})
	types := make([]string, 0, len(avg))
	for k := range avg {
		types = append(types, k)
	}
	sort.Strings(types)
	for _, k := range types {
		v := avg[k]
		t.AppendRow(table.Row{k, fixed2(v["Flowrate"]), fixed2(v["Pressure"]), fixed2(v["Temperature"])})
	}
	t.Render()
}

// History lists past uploads in the order given.
func (r *Renderer) History(entries []api.HistoryEntry) {
	if len(entries) == 0 {
		r.line(NoHistory)
		return
	}
	t := r.newTable(fmt.Sprintf("Upload History (Last %d)", len(entries)))
	t.AppendHeader(table.Row{"ID", "File", "Uploaded", "Total", "Avg Flow", "Avg Pressure", "Avg Temp", "Types"})
	for _, e := range entries {
		s := e.Summary
		if s == nil {
			s = &api.Summary{}
		}
		var types []string
		for _, k := range TypesByCount(s.TypeDistribution) {
			types = append(types, fmt.Sprintf("%s: %d", k, s.TypeDistribution[k]))
		}
		t.AppendRow(table.Row{e.ID, e.Filename, e.Uploaded, s.TotalEquipment, fixed2(s.AvgFlowrate), fixed2(s.AvgPressure), fixed2(s.AvgTemperature), strings.Join(types, ", ")})
	}
	t.Render()
}

// Dataset draws one entry's row preview. Sortable column headers carry ▲ when
// they hold the current ascending sort and ▼ otherwise.
func (r *Renderer) Dataset(id int64, st dashboard.DatasetState, sortState dashboard.SortState) {
	tbl, ok := st.Table()
	if !ok || tbl == nil {
		r.line(NoPreview)
		return
	}
	t := r.newTable(fmt.Sprintf("Dataset %d", id))
	header := table.Row{}
	for _, col := range tbl.Columns {
		if dashboard.IsSortable(col) {
			arrow := "▼"
			if sortState.Set && sortState.DatasetID == id && sortState.Column == col && sortState.Direction == dashboard.Ascending {
				arrow = "▲"
			}
			header = append(header, col+" "+arrow)
			continue
		}
		header = append(header, col)
	}
	t.AppendHeader(header)
	for _, row := range tbl.Rows {
		cells := make(table.Row, 0, len(tbl.Columns))
		for _, col := range tbl.Columns {
			cells = append(cells, api.Text(row[col]))
		}
		t.AppendRow(cells)
	}
	t.Render()
}

// Preflight draws a local CSV check.
func (r *Renderer) Preflight(rep *preflight.Report) {
	t := r.newTable("Preflight: " + rep.Name)
	t.AppendRow(table.Row{"Rows", rep.Rows})
	t.AppendRow(table.Row{"Usable rows", rep.Usable})
	for _, m := range preflight.NumericColumns {
		if v, ok := rep.Means[m]; ok {
			t.AppendRow(table.Row{"Mean " + m, fixed2(v)})
		}
	}
	for _, k := range rep.TypeNames() {
		t.AppendRow(table.Row{"Type " + k, rep.Types[k]})
	}
	t.Render()
	for _, p := range rep.Problems() {
		r.line(r.paint("⚠ "+p, text.Colors{text.FgYellow}))
	}
	if rep.OK() {
		r.line(r.paint("✓ Ready to upload", text.Colors{text.FgGreen}))
	}
}

// TypesByCount orders type names by descending count, then name.
func TypesByCount(dist map[string]int) []string {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if dist[keys[i]] != dist[keys[j]] {
			return dist[keys[i]] > dist[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func fixed2(v float64) string { return fmt.Sprintf("%.2f", v) }

func bar(share float64, width int) string {
	n := int(math.Round(share * float64(width)))
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}
