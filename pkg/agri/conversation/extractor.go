package conversation

import (
	"fmt"
	"strings"

	"agri-assistant-be/pkg/store"
)

// critical lists the fields that must be present before the pipeline is
// considered complete. Only crop for now; region and season can be
// asked for later.
var critical = []string{store.FieldCrop}

// cropVocabulary is scanned in fixed order; the first unset match wins.
// "rice" is kept literal, "maize" is deliberately not folded into corn.
var cropVocabulary = []string{"rice", "wheat", "corn", "maize", "soy", "soybean", "cotton", "sorghum"}

// usState maps a recognized state name to its two-letter abbreviation.
// Only California and Texas are in model scope for now.
type usState struct {
	Name string
	Abbr string
}

var usStates = []usState{
	{"california", "CA"},
	{"texas", "TX"},
}

var springKeywords = []string{"spring", "march", "april", "may"}
var fallKeywords = []string{"fall", "autumn", "sept", "oct"}

// followupPrompts must cover every field that can appear in critical.
var followupPrompts = map[string]string{
	store.FieldCrop: "Which crop are you asking about?",
}

// Extract merges heuristic detection from the message underneath the
// caller-supplied context, then reports which critical fields are still
// missing and the follow-up question to ask for the first one.
// Pure; neither input is mutated.
func Extract(message string, prior store.Context) (store.Context, []string, string) {
	ctx := heuristicExtract(message, prior)
	missing := findMissing(ctx)
	return ctx, missing, nextFollowup(missing)
}

// heuristicExtract detects crop, region/state and season from the
// message text. Already-set fields are never overwritten.
func heuristicExtract(message string, prior store.Context) store.Context {
	out := prior.Clone()
	msg := strings.ToLower(message)

	for _, c := range cropVocabulary {
		if strings.Contains(msg, c) && out[store.FieldCrop] == "" {
			out[store.FieldCrop] = c
		}
	}

	for _, s := range usStates {
		if strings.Contains(msg, s.Name) && out[store.FieldRegion] == "" {
			// Region and state are set together, never one without the other
			out[store.FieldRegion] = titleCase(s.Name)
			out[store.FieldState] = s.Abbr
			break
		}
	}

	// Spring check precedes fall: a message naming both yields spring.
	if containsAny(msg, springKeywords) && out[store.FieldSeason] == "" {
		out[store.FieldSeason] = "spring"
	}
	if containsAny(msg, fallKeywords) && out[store.FieldSeason] == "" {
		out[store.FieldSeason] = "fall"
	}

	return out
}

func findMissing(ctx store.Context) []string {
	missing := []string{}
	for _, f := range critical {
		if ctx[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// nextFollowup returns the clarifying question for the first missing
// field. A critical field without a prompt is a programming error, not
// a user-facing condition.
func nextFollowup(missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	prompt, ok := followupPrompts[missing[0]]
	if !ok {
		panic(fmt.Sprintf("conversation: no follow-up prompt registered for critical field %q", missing[0]))
	}
	return prompt
}

func containsAny(msg string, keywords []string) bool {
	for _, w := range keywords {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
