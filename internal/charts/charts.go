// Package charts renders summary statistics to PNG files.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/cepv-cli/internal/api"
	"github.com/KaramelBytes/cepv-cli/internal/credstore"
	"github.com/KaramelBytes/cepv-cli/internal/utils"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a chart has nothing to plot.
var ErrNoData = errors.New("no data to chart")

// Palette is the slice colour order of the type distribution chart.
var Palette = []string{"ffb300", "42a5f5", "ef5350", "8e24aa", "ffa726", "8d6e63", "26a69a", "5c6bc0"}

const (
	width  = 1024
	height = 640
)

type colors struct {
	background drawing.Color
	font       drawing.Color
	grid       drawing.Color
}

func themeColors(theme string) colors {
	if theme == credstore.ThemeDark {
		return colors{
			background: drawing.ColorFromHex("1e1e1e"),
			font:       drawing.ColorFromHex("e0e0e0"),
			grid:       drawing.ColorFromHex("444444"),
		}
	}
	return colors{
		background: drawing.ColorWhite,
		font:       drawing.ColorFromHex("333333"),
		grid:       drawing.ColorFromHex("efefef"),
	}
}

func sliceColor(i int) drawing.Color {
	return drawing.ColorFromHex(Palette[i%len(Palette)])
}

// typeOrder sorts types by descending count, then name.
func typeOrder(dist map[string]int) []string {
	keys := make([]string, 0, len(dist))
	for k, n := range dist {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if dist[keys[i]] != dist[keys[j]] {
			return dist[keys[i]] > dist[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// DistributionPie draws the equipment type distribution as a pie chart.
func DistributionPie(w io.Writer, dist map[string]int, theme string) error {
	keys := typeOrder(dist)
	if len(keys) == 0 {
		return ErrNoData
	}
	c := themeColors(theme)
	values := make([]chart.Value, 0, len(keys))
	for i, k := range keys {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", k, dist[k]),
			Value: float64(dist[k]),
			Style: chart.Style{
				FillColor:   sliceColor(i),
				StrokeColor: c.background,
				StrokeWidth: 2,
				FontColor:   c.font,
			},
		})
	}
	pie := chart.PieChart{
		Title:      "Equipment Type Distribution",
		TitleStyle: chart.Style{FontColor: c.font},
		Width:      height,
		Height:     height,
		Background: chart.Style{FillColor: c.background},
		Canvas:     chart.Style{FillColor: c.background},
		Values:     values,
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// TypewiseBar draws the average of one metric per equipment type.
func TypewiseBar(w io.Writer, avg map[string]map[string]float64, metric, theme string) error {
	types := make([]string, 0, len(avg))
	for k := range avg {
		types = append(types, k)
	}
	sort.Strings(types)
	var bars []chart.Value
	anyNonZero := false
	for i, k := range types {
		v, ok := avg[k][metric]
		if !ok {
			continue
		}
		if v != 0 {
			anyNonZero = true
		}
		bars = append(bars, chart.Value{
			Label: k,
			Value: v,
			Style: chart.Style{FillColor: sliceColor(i), StrokeColor: sliceColor(i)},
		})
	}
	if len(bars) == 0 || !anyNonZero {
		return ErrNoData
	}
	c := themeColors(theme)
	bar := chart.BarChart{
		Title:      "Average " + metric + " by Type",
		TitleStyle: chart.Style{FontColor: c.font},
		Width:      width,
		Height:     height,
		BarWidth:   60,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: c.background,
		},
		Canvas: chart.Style{FillColor: c.background},
		XAxis:  chart.Style{FontColor: c.font, StrokeColor: c.grid},
		YAxis: chart.YAxis{
			Name:      metric,
			NameStyle: chart.Style{FontColor: c.font},
			Style:     chart.Style{FontColor: c.font, StrokeColor: c.grid},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.1f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}
	if err := bar.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// DistributionLine draws type counts as a line across types. At least two
// types are needed to draw a line.
func DistributionLine(w io.Writer, dist map[string]int, theme string) error {
	keys := typeOrder(dist)
	if len(keys) < 2 {
		return ErrNoData
	}
	c := themeColors(theme)
	xs := make([]float64, len(keys))
	ys := make([]float64, len(keys))
	ticks := make([]chart.Tick, len(keys))
	for i, k := range keys {
		xs[i] = float64(i)
		ys[i] = float64(dist[k])
		ticks[i] = chart.Tick{Value: float64(i), Label: k}
	}
	graph := chart.Chart{
		Title:      "Equipment Count by Type",
		TitleStyle: chart.Style{FontColor: c.font},
		Width:      width,
		Height:     height,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: c.background,
		},
		Canvas: chart.Style{FillColor: c.background},
		XAxis: chart.XAxis{
			Style: chart.Style{FontColor: c.font, StrokeColor: c.grid},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:      "Count",
			NameStyle: chart.Style{FontColor: c.font},
			Style:     chart.Style{FontColor: c.font, StrokeColor: c.grid},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			&chart.ContinuousSeries{
				Name:    "Count",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: sliceColor(1),
					StrokeWidth: 3,
					DotColor:    sliceColor(0),
					DotWidth:    5,
				},
			},
		},
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}

// WriteAll renders every chart the summary has data for into dir and returns
// the written paths. Charts without data are skipped.
func WriteAll(dir string, s *api.Summary, theme string) ([]string, error) {
	if s == nil {
		return nil, ErrNoData
	}
	var written []string
	write := func(name string, draw func(io.Writer) error) error {
		var buf bytes.Buffer
		if err := draw(&buf); err != nil {
			if errors.Is(err, ErrNoData) {
				return nil
			}
			return err
		}
		p := filepath.Join(dir, name)
		if err := utils.SafeWriteFile(p, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, p)
		return nil
	}

	if err := write("type_distribution_pie.png", func(w io.Writer) error {
		return DistributionPie(w, s.TypeDistribution, theme)
	}); err != nil {
		return written, err
	}
	if err := write("type_distribution_line.png", func(w io.Writer) error {
		return DistributionLine(w, s.TypeDistribution, theme)
	}); err != nil {
		return written, err
	}
	for _, m := range []string{"Flowrate", "Pressure", "Temperature"} {
		metric := m
		name := "typewise_" + strings.ToLower(metric) + ".png"
		if err := write(name, func(w io.Writer) error {
			return TypewiseBar(w, s.TypewiseAverages, metric, theme)
		}); err != nil {
			return written, err
		}
	}
	if len(written) == 0 {
		return nil, ErrNoData
	}
	return written, nil
}
