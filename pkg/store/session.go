package store

// Context holds the structured facts accumulated about the user's
// farming scenario. Recognized keys: crop, region, state, season,
// soil, water, planting_method. Only crop is mandatory.
type Context map[string]string

// Field names recognized by the pipeline
const (
	FieldCrop           = "crop"
	FieldRegion         = "region"
	FieldState          = "state"
	FieldSeason         = "season"
	FieldSoil           = "soil"
	FieldWater          = "water"
	FieldPlantingMethod = "planting_method"
)

// Clone returns an independent copy so callers can mutate freely.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge overlays non-empty values from other on top of c, returning a
// new Context. Empty strings are treated as absent so a caller cannot
// accidentally clobber accumulated state.
func (c Context) Merge(other Context) Context {
	out := c.Clone()
	for k, v := range other {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// CanSimulate reports whether the crop-simulation stage has its
// required inputs (crop AND region).
func (c Context) CanSimulate() bool {
	return c[FieldCrop] != "" && c[FieldRegion] != ""
}

// Document represents a retrieved knowledge-base snippet
type Document struct {
	Content  string                 `json:"content"`
	Score    float64                `json:"score,omitempty"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Exchange is one stored (user message, assistant reply) pair used as
// short-term conversational memory.
type Exchange struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// HistoryCapacity bounds the per-session exchange memory. The oldest
// exchange is evicted first once the bound is exceeded.
const HistoryCapacity = 4

// Session represents the per-session state held in memory: the latest
// accumulated context plus the bounded exchange history.
type Session struct {
	ID      string     `json:"id"`
	Context Context    `json:"context"`
	History []Exchange `json:"history"`
}
