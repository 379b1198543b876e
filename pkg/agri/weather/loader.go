package weather

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"agri-assistant-be/pkg/store"
)

// Loader resolves a weather record from local JSON files. Resolution
// order: region file, then state file, then default.json.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Lookup returns the first readable weather record for the context, or
// a note when none is found. It never fails; a missing or corrupt file
// just falls through to the next candidate.
func (l *Loader) Lookup(ctx store.Context) map[string]interface{} {
	region := slugify(ctx[store.FieldRegion])
	state := slugify(ctx[store.FieldState])

	var candidates []string
	if region != "" {
		candidates = append(candidates, filepath.Join(l.dir, region+".json"))
	}
	if state != "" {
		candidates = append(candidates, filepath.Join(l.dir, state+".json"))
	}
	candidates = append(candidates, filepath.Join(l.dir, "default.json"))

	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var record map[string]interface{}
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		return record
	}

	return map[string]interface{}{
		"note": "No weather file found; add JSON to the weather data dir (region.json or state.json).",
	}
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}
