package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"agri-assistant-be/pkg/store"
)

// regionColumns are the header names treated as location columns when
// counting region-matching rows.
var regionColumns = map[string]bool{
	"county": true, "region": true, "state": true, "zip": true, "zipcode": true,
}

// Engine summarizes CSV datasets for the pipeline. Files are organized
// under <dir>/<crop>/<region>/ with fallbacks up the tree.
type Engine struct {
	dir string
}

func NewEngine(dir string) *Engine {
	return &Engine{dir: dir}
}

// Summarize picks the most specific dataset for the context and returns
// row/column counts, region-matching row counts, and numeric column
// statistics. Returns an explanatory note when no dataset is found.
func (e *Engine) Summarize(message string, ctx store.Context) map[string]interface{} {
	path := e.pickFile(ctx)
	if path == "" {
		return map[string]interface{}{"summary": "No CSV datasets found.", "rows": 0}
	}

	f, err := os.Open(path)
	if err != nil {
		return map[string]interface{}{"dataset": path, "error": fmt.Sprintf("Failed to read CSV: %v", err)}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return map[string]interface{}{"dataset": path, "error": fmt.Sprintf("Failed to read CSV: %v", err)}
	}
	if len(records) == 0 {
		return map[string]interface{}{"dataset": filepath.Base(path), "rows": 0, "columns": []string{}}
	}

	header := records[0]
	rows := records[1:]

	out := map[string]interface{}{
		"dataset": filepath.Base(path),
		"rows":    len(rows),
		"columns": header,
	}

	if region := strings.ToLower(ctx[store.FieldRegion]); region != "" {
		for col, name := range header {
			if !regionColumns[strings.ToLower(name)] {
				continue
			}
			matched := 0
			for _, row := range rows {
				if col < len(row) && strings.Contains(strings.ToLower(row[col]), region) {
					matched++
				}
			}
			out["region_rows"] = matched
			break
		}
	}

	if summary := numericSummary(header, rows); len(summary) > 0 {
		out["numeric_summary"] = summary
	}

	return out
}

// pickFile chooses a CSV by walking from the most specific directory
// (crop/region) up to the dataset root, preferring a file whose name
// contains the crop.
func (e *Engine) pickFile(ctx store.Context) string {
	crop := strings.ToLower(ctx[store.FieldCrop])
	region := strings.ToLower(ctx[store.FieldRegion])

	searchDir := e.dir
	switch {
	case crop != "" && region != "":
		searchDir = filepath.Join(e.dir, crop, region)
	case crop != "":
		searchDir = filepath.Join(e.dir, crop)
	}
	if _, err := os.Stat(searchDir); err != nil {
		searchDir = e.dir
	}

	entries, err := os.ReadDir(searchDir)
	if err != nil {
		return ""
	}

	var csvFiles []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		csvFiles = append(csvFiles, entry.Name())
	}
	if len(csvFiles) == 0 {
		return ""
	}

	for _, name := range csvFiles {
		if crop != "" && strings.Contains(strings.ToLower(name), crop) {
			return filepath.Join(searchDir, name)
		}
	}
	return filepath.Join(searchDir, csvFiles[0])
}

// columnStats holds the descriptive statistics of one numeric column.
type columnStats struct {
	Count float64 `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// numericSummary computes stats for every column whose non-empty values
// all parse as numbers.
func numericSummary(header []string, rows [][]string) map[string]columnStats {
	summary := make(map[string]columnStats)

	for col, name := range header {
		var values []float64
		numeric := true
		for _, row := range rows {
			if col >= len(row) || row[col] == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				numeric = false
				break
			}
			values = append(values, v)
		}
		if !numeric || len(values) == 0 {
			continue
		}

		min, max, sum := values[0], values[0], 0.0
		for _, v := range values {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			sum += v
		}
		mean := sum / float64(len(values))

		variance := 0.0
		for _, v := range values {
			variance += (v - mean) * (v - mean)
		}
		std := 0.0
		if len(values) > 1 {
			std = math.Sqrt(variance / float64(len(values)-1))
		}

		summary[name] = columnStats{
			Count: float64(len(values)),
			Mean:  mean,
			Std:   std,
			Min:   min,
			Max:   max,
		}
	}

	return summary
}
