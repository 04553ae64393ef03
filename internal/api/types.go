package api

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Summary holds the server-computed aggregate statistics for one dataset.
// Outliers are server-owned rows; only the equipment columns are rendered.
type Summary struct {
	TotalEquipment   int                           `json:"total_equipment"`
	AvgFlowrate      float64                       `json:"avg_flowrate"`
	AvgPressure      float64                       `json:"avg_pressure"`
	AvgTemperature   float64                       `json:"avg_temperature"`
	TypeDistribution map[string]int                `json:"type_distribution"`
	Correlation      map[string]map[string]float64 `json:"correlation,omitempty"`
	Outliers         []Row                         `json:"outliers,omitempty"`
	TypewiseAverages map[string]map[string]float64 `json:"typewise_averages,omitempty"`
}

// HistoryEntry is one past upload with its summary snapshot.
type HistoryEntry struct {
	ID       int64    `json:"id"`
	Filename string   `json:"filename"`
	Uploaded string   `json:"uploaded"`
	Summary  *Summary `json:"summary"`
}

// Row is one CSV record keyed by column name. Values are whatever the server
// encoded: numbers, strings or null.
type Row map[string]any

// DatasetTable is the row-level preview of one uploaded CSV.
type DatasetTable struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// UploadResult is the body returned by a successful upload.
type UploadResult struct {
	Message   string   `json:"message"`
	DatasetID int64    `json:"dataset_id"`
	Filename  string   `json:"filename"`
	Summary   *Summary `json:"summary"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Float parses a cell value as a number. Strings are trimmed and parsed;
// JSON numbers pass through.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Text formats a cell value for display.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
