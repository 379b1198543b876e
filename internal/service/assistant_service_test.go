package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"agri-assistant-be/internal/dto"
	"agri-assistant-be/internal/repository/memory"
	"agri-assistant-be/pkg/agri/compose"
	"agri-assistant-be/pkg/agri/simulation"
	"agri-assistant-be/pkg/llm"
	"agri-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

type fakeRetriever struct {
	docs    []store.Document
	nilDocs bool
	delay   time.Duration
}

func (f *fakeRetriever) Retrieve(query string, k int) []store.Document {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.nilDocs || f.docs == nil {
		return nil
	}
	return f.docs
}

type fakeAnalyzer struct {
	data  map[string]interface{}
	panic bool
}

func (f *fakeAnalyzer) Summarize(message string, ctx store.Context) map[string]interface{} {
	if f.panic {
		panic("analyzer exploded")
	}
	if f.data == nil {
		return map[string]interface{}{"summary": "No CSV datasets found.", "rows": 0}
	}
	return f.data
}

type fakeWeather struct {
	data map[string]interface{}
}

func (f *fakeWeather) Lookup(ctx store.Context) map[string]interface{} {
	if f.data == nil {
		return map[string]interface{}{"note": "no weather"}
	}
	return f.data
}

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, nil, options...)
}

type testHarness struct {
	service IAssistantService
	repo    *memory.SessionRepository
	runner  *simulation.Runner
}

func newHarness(provider llm.LLMProvider, retriever DocumentRetriever, analyzer DatasetAnalyzer, weather WeatherProvider) *testHarness {
	repo := memory.NewSessionRepository()
	runner := simulation.NewRunner(0)
	svc := NewAssistantService(
		repo,
		retriever,
		analyzer,
		weather,
		runner,
		compose.NewComposer(provider),
		nil, // no event bus in unit tests
		noopLogger{},
		5,
		time.Second,
	)
	return &testHarness{service: svc, repo: repo, runner: runner}
}

func defaultHarness() *testHarness {
	return newHarness(
		&fakeLLM{reply: "Here is my advice."},
		&fakeRetriever{},
		&fakeAnalyzer{},
		&fakeWeather{},
	)
}

// --- Scenarios ---

func TestSendChatCropAndSeasonWithoutRegion(t *testing.T) {
	h := defaultHarness()

	res, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
		SessionId: "s1",
		Message:   "What rice variety works in spring?",
	})
	require.NoError(t, err)

	ctx := h.repo.GetContext("s1")
	assert.Equal(t, "rice", ctx["crop"])
	assert.Equal(t, "spring", ctx["season"])

	assert.Empty(t, res.Followup)
	assert.Equal(t, []string{}, res.Sections.Assumptions["missing"])

	// No region: simulation bypassed with a skip note
	assert.Contains(t, res.Sections.CsmResults, "note")
	_, computes := h.runner.Stats()
	assert.Zero(t, computes)
}

func TestSendChatFullContextRunsSimulation(t *testing.T) {
	h := defaultHarness()

	res, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
		SessionId: "s1",
		Message:   "Rice in Texas for spring",
	})
	require.NoError(t, err)

	ctx := h.repo.GetContext("s1")
	assert.Equal(t, "rice", ctx["crop"])
	assert.Equal(t, "Texas", ctx["region"])
	assert.Equal(t, "TX", ctx["state"])
	assert.Equal(t, "spring", ctx["season"])

	require.Contains(t, res.Sections.CsmResults, "sim_id")
	assert.Equal(t, 7800, res.Sections.CsmResults["yield_kg_ha"])
	_, computes := h.runner.Stats()
	assert.Equal(t, int64(1), computes)
}

func TestSendChatAccumulatesContextAcrossTurns(t *testing.T) {
	h := defaultHarness()

	_, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
		SessionId: "s1",
		Message:   "I want to grow rice",
	})
	require.NoError(t, err)

	_, err = h.service.SendChat(context.Background(), &dto.ChatRequest{
		SessionId: "s1",
		Message:   "I'm in texas",
	})
	require.NoError(t, err)

	ctx := h.repo.GetContext("s1")
	assert.Equal(t, "rice", ctx["crop"], "crop from the first turn survives")
	assert.Equal(t, "Texas", ctx["region"], "region from the second turn accumulated")
}

func TestSendChatMissingCropAsksFollowup(t *testing.T) {
	h := defaultHarness()

	res, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
		SessionId: "s1",
		Message:   "How should I irrigate my field?",
	})
	require.NoError(t, err)

	assert.Equal(t, "Which crop are you asking about?", res.Followup)
	assert.True(t, strings.HasSuffix(res.Reply, "Quick question to tailor the advice: Which crop are you asking about?"))
	assert.Equal(t, []string{"crop"}, res.Sections.Assumptions["missing"])
}

func TestSendChatCallerContextTakesPrecedence(t *testing.T) {
	h := defaultHarness()

	_, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
		SessionId: "s1",
		Message:   "Thinking about wheat actually",
		Context:   store.Context{"crop": "sorghum"},
	})
	require.NoError(t, err)

	assert.Equal(t, "sorghum", h.repo.GetContext("s1")["crop"],
		"caller-supplied context wins over heuristic extraction")
}

func TestSendChatGenerationFailureStillReplies(t *testing.T) {
	h := newHarness(
		&fakeLLM{err: errors.New("model offline")},
		&fakeRetriever{},
		&fakeAnalyzer{},
		&fakeWeather{},
	)

	res, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
		SessionId: "s1",
		Message:   "Rice in Texas",
	})
	require.NoError(t, err)

	assert.Contains(t, res.Reply, "I hit an issue synthesizing the answer")
	assert.Contains(t, res.Reply, "model offline")
	require.NotNil(t, res.Sections)
	assert.Contains(t, res.Sections.CsmResults, "sim_id", "sections keep the stage data that succeeded")
}

func TestSendChatSourcePanicDegradesGracefully(t *testing.T) {
	h := newHarness(
		&fakeLLM{reply: "ok"},
		&fakeRetriever{},
		&fakeAnalyzer{panic: true},
		&fakeWeather{},
	)

	res, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
		SessionId: "s1",
		Message:   "rice question",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Diagnostics)
	assert.NotNil(t, res.Sections.CsvFindings)
}

func TestSendChatNilRetrieverResultIsNotAFailure(t *testing.T) {
	h := newHarness(
		&fakeLLM{reply: "ok"},
		&fakeRetriever{nilDocs: true},
		&fakeAnalyzer{},
		&fakeWeather{},
	)

	res, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
		SessionId: "s1",
		Message:   "rice question",
	})
	require.NoError(t, err)

	// A source that answered nil is empty, not unavailable
	assert.Empty(t, res.Diagnostics)
	assert.NotNil(t, res.Sections.RagInsights)
	assert.Empty(t, res.Sections.RagInsights)
}

func TestSendChatSlowSourceTimesOut(t *testing.T) {
	repo := memory.NewSessionRepository()
	svc := NewAssistantService(
		repo,
		&fakeRetriever{delay: 500 * time.Millisecond},
		&fakeAnalyzer{},
		&fakeWeather{},
		simulation.NewRunner(0),
		compose.NewComposer(&fakeLLM{reply: "ok"}),
		nil,
		noopLogger{},
		5,
		50*time.Millisecond,
	)

	started := time.Now()
	res, err := svc.SendChat(context.Background(), &dto.ChatRequest{
		SessionId: "s1",
		Message:   "rice question",
	})
	require.NoError(t, err)

	assert.Less(t, time.Since(started), 400*time.Millisecond, "turn is bounded by the source timeout")
	assert.Contains(t, strings.Join(res.Diagnostics, " "), "retrieval unavailable")
}

func TestSendChatStoresExchanges(t *testing.T) {
	h := defaultHarness()

	for i := 0; i < 5; i++ {
		_, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
			SessionId: "s1",
			Message:   "rice question",
		})
		require.NoError(t, err)
	}

	history, err := h.service.GetChatHistory(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, history.History, store.HistoryCapacity)
	assert.Equal(t, "Here is my advice.", history.History[0].Bot)
}

func TestSendChatConcurrentSameSession(t *testing.T) {
	h := defaultHarness()

	messages := []string{
		"I want to grow rice",
		"I'm farming in texas",
		"planting in spring",
	}

	var wg sync.WaitGroup
	for _, msg := range messages {
		wg.Add(1)
		go func(m string) {
			defer wg.Done()
			_, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
				SessionId: "s1",
				Message:   m,
			})
			assert.NoError(t, err)
		}(msg)
	}
	wg.Wait()

	// No lost updates: every turn's extracted fields survive
	ctx := h.repo.GetContext("s1")
	assert.Equal(t, "rice", ctx["crop"])
	assert.Equal(t, "Texas", ctx["region"])
	assert.Equal(t, "spring", ctx["season"])
	assert.Len(t, h.repo.GetHistory("s1"), 3)
}

func TestGetChatHistoryDuringActiveTurns(t *testing.T) {
	h := defaultHarness()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
				SessionId: "s1",
				Message:   "Rice in Texas for spring",
			})
			assert.NoError(t, err)
		}
	}()

	// History reads race the turns; they hold no turn lock
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				res, err := h.service.GetChatHistory(context.Background(), "s1")
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(res.History), store.HistoryCapacity)
			}
		}()
	}
	wg.Wait()

	res, err := h.service.GetChatHistory(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, res.History, store.HistoryCapacity)
}

func TestSendChatSimulationResultCached(t *testing.T) {
	h := defaultHarness()

	for i := 0; i < 3; i++ {
		_, err := h.service.SendChat(context.Background(), &dto.ChatRequest{
			SessionId: "s1",
			Message:   "Rice in Texas for spring",
		})
		require.NoError(t, err)
	}

	_, computes := h.runner.Stats()
	assert.Equal(t, int64(1), computes, "identical parameters simulate once")
}
