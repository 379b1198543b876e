package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Seeds the on-disk data roots with a small working set: agronomy notes
// for the retriever, a yield CSV for the dataset engine, and weather
// records for california, texas, and the default fallback. Existing
// files are left untouched so local edits survive reruns.

var docs = map[string]string{
	"rice_basics.md": `# Rice Cultivation Basics

Rice grows best in flooded paddies with daytime temperatures between
25 and 35 degrees Celsius. Transplanting seedlings at 20 to 25 days
gives more uniform stands than direct seeding in most regions.

Nitrogen should be split across three applications: basal, tillering,
and panicle initiation. Over-application at tillering encourages
lodging in long-duration varieties.

Ratoon cropping is viable where the main harvest leaves at least 60
frost-free days. Cut high, around 30 cm, to preserve viable buds.`,
	"irrigation_notes.txt": `Irrigation scheduling for row crops.

Alternate wetting and drying (AWD) can cut rice water use by 20-30%
without yield loss when the field is reflooded before the water table
drops 15 cm below the surface.

For wheat and sorghum, deficit irrigation during grain fill trades a
small yield penalty for large water savings. Corn is far less
forgiving: stress at silking costs yield disproportionately.`,
	"texas_crop_calendar.txt": `Texas planting windows.

Rice along the Gulf Coast is planted mid-March through April and
harvested late July into August. A ratoon crop is commonly taken in
October. Sorghum in the High Plains goes in from May to mid-June.
Cotton planting follows soil temperature, usually April to early May.`,
}

var riceDataset = `variety,region,yield_kg_ha,days_to_maturity,irrigation_mm
Presidio,Texas,8200,118,880
Antonio,Texas,7900,112,860
Colorado,California,8600,128,950
M-206,California,8400,124,930
Jupiter,Louisiana,7600,120,900
CLXL745,Texas,8900,115,870
`

var weather = map[string]string{
	"texas.json": `{
  "region": "Texas",
  "season_outlook": "Warm spring with above-average Gulf moisture",
  "avg_temp_c": 24.5,
  "rainfall_mm": 610,
  "frost_free_days": 270,
  "notes": "Hurricane season may complicate late ratoon harvests."
}
`,
	"california.json": `{
  "region": "California",
  "season_outlook": "Dry spring, irrigation-dependent season",
  "avg_temp_c": 21.0,
  "rainfall_mm": 320,
  "frost_free_days": 240,
  "notes": "Surface water allocations may be curtailed in drought years."
}
`,
	"default.json": `{
  "region": "unspecified",
  "season_outlook": "No regional forecast available",
  "notes": "Using generic climate assumptions; provide a region for a localized outlook."
}
`,
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	docsDir := envOr("DOCS_DIR", "data/docs")
	datasetsDir := envOr("DATASETS_DIR", "data/datasets")
	weatherDir := envOr("WEATHER_DIR", "data/weather")

	log.Println("Seeding knowledge-base documents...")
	for name, content := range docs {
		writeIfAbsent(filepath.Join(docsDir, name), content)
	}

	log.Println("Seeding yield datasets...")
	writeIfAbsent(filepath.Join(datasetsDir, "rice", "rice_yields.csv"), riceDataset)

	log.Println("Seeding weather records...")
	for name, content := range weather {
		writeIfAbsent(filepath.Join(weatherDir, name), content)
	}

	log.Println("Seeding completed!")
}

func writeIfAbsent(path, content string) {
	if _, err := os.Stat(path); err == nil {
		log.Printf("File '%s' already exists, skipping...", path)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatalf("Error creating directory for '%s': %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Fatalf("Error writing '%s': %v", path, err)
	}
	log.Printf("Created: %s", path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
