package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"agri-assistant-be/pkg/agri/simulation"
	"agri-assistant-be/pkg/llm"
	"agri-assistant-be/pkg/store"
)

// systemInstruction fixes the assistant's role and tone for synthesis.
const systemInstruction = "You are an agronomy assistant. Merge knowledge-base insights, dataset findings, " +
	"weather context, and crop-simulation outputs. Provide a concise, practical recommendation " +
	"for a farmer. If inputs are missing, state assumptions and ask ONE clarifying question."

// docPreviewLength caps each retrieved snippet fed to generation.
const docPreviewLength = 500

// maxSectionDocs bounds how many documents appear in the structured answer.
const maxSectionDocs = 3

// Generation bounds: recommendations should be focused and short.
const (
	replyTemperature = 0.2
	maxReplyTokens   = 1024
)

// simulationSkipNote is the fixed section content when the simulation
// stage was bypassed.
var simulationSkipNote = map[string]interface{}{
	"note": "Simulation skipped until crop and region are provided.",
}

// Sections is the structured portion of the answer, organized by source.
type Sections struct {
	RagInsights     []store.Document         `json:"rag_insights"`
	CsvFindings     map[string]interface{}   `json:"csv_findings"`
	WeatherContext  map[string]interface{}   `json:"weather_context"`
	CsmResults      map[string]interface{}   `json:"csm_results"`
	Recommendations *string                  `json:"recommendations"`
	Assumptions     map[string]interface{}   `json:"assumptions"`
	Sources         []map[string]interface{} `json:"sources"`
}

// Input carries everything the synthesis stage consumes.
type Input struct {
	Message    string
	Context    store.Context
	Missing    []string
	Followup   string
	Documents  []store.Document
	Analytics  map[string]interface{}
	Weather    map[string]interface{}
	Simulation simulation.Outcome
	History    []store.Exchange
}

// Composer builds the reply text and structured sections from all stage
// outputs. Generation failures degrade to a literal explanatory reply;
// the composer itself never fails.
type Composer struct {
	provider llm.LLMProvider
}

func NewComposer(provider llm.LLMProvider) *Composer {
	return &Composer{provider: provider}
}

// Compose invokes generation over the merged stage data and assembles
// the structured sections.
func (c *Composer) Compose(ctx context.Context, in Input) (string, *Sections) {
	history := make([]llm.Message, 0, len(in.History)*2+1)
	for _, ex := range in.History {
		history = append(history,
			llm.Message{Role: "user", Content: ex.User},
			llm.Message{Role: "assistant", Content: ex.Bot},
		)
	}
	history = append(history, llm.Message{Role: "user", Content: c.buildPrompt(in)})

	messages := append([]llm.Message{{Role: "system", Content: systemInstruction}}, history...)

	reply, err := c.provider.Chat(ctx, messages,
		llm.WithTemperature(replyTemperature),
		llm.WithMaxTokens(maxReplyTokens),
	)
	if err != nil {
		reply = fmt.Sprintf("I hit an issue synthesizing the answer: %v. Here are the findings from docs and data.", err)
	}

	if in.Followup != "" {
		reply = fmt.Sprintf("%s\n\nQuick question to tailor the advice: %s", reply, in.Followup)
	}

	return reply, c.buildSections(in)
}

func (c *Composer) buildPrompt(in Input) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "User question: %s\n", in.Message)
	fmt.Fprintf(&sb, "Context: %s\n", asJSON(in.Context))
	fmt.Fprintf(&sb, "Dataset findings: %s\n", asJSON(in.Analytics))
	fmt.Fprintf(&sb, "Weather: %s\n", asJSON(in.Weather))

	if in.Simulation.Skipped {
		fmt.Fprintf(&sb, "Simulation: skipped (%s)\n", in.Simulation.Reason)
	} else {
		fmt.Fprintf(&sb, "Simulation: %s\n", asJSON(in.Simulation.Result))
	}

	sb.WriteString("Docs:\n")
	for _, d := range in.Documents {
		fmt.Fprintf(&sb, "- %s\n\n", preview(d.Content, docPreviewLength))
	}

	return sb.String()
}

func (c *Composer) buildSections(in Input) *Sections {
	docs := in.Documents
	if len(docs) > maxSectionDocs {
		docs = docs[:maxSectionDocs]
	}

	csm := simulationSkipNote
	if in.Simulation.Skipped {
		if in.Simulation.Reason != "" {
			csm = map[string]interface{}{"note": "Simulation skipped: " + in.Simulation.Reason}
		}
	} else {
		csm = map[string]interface{}{
			"sim_id":          in.Simulation.Result.SimID,
			"yield_kg_ha":     in.Simulation.Result.YieldKgHa,
			"planting_date":   in.Simulation.Result.PlantingDate,
			"maturity_date":   in.Simulation.Result.MaturityDate,
			"irrigation_mm":   in.Simulation.Result.IrrigationMm,
			"ratoon_possible": in.Simulation.Result.RatoonPossible,
			"notes":           in.Simulation.Result.Notes,
		}
	}

	sources := make([]map[string]interface{}, 0, len(in.Documents))
	for _, d := range in.Documents {
		m := d.Metadata
		if m == nil {
			m = map[string]interface{}{}
		}
		source, _ := m["source"].(string)
		sources = append(sources, map[string]interface{}{
			"source": source,
			"page":   m["page"],
		})
	}

	missing := in.Missing
	if missing == nil {
		missing = []string{}
	}

	return &Sections{
		RagInsights:    docs,
		CsvFindings:    in.Analytics,
		WeatherContext: in.Weather,
		CsmResults:     csm,
		Assumptions:    map[string]interface{}{"missing": missing},
		Sources:        sources,
	}
}

func asJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
