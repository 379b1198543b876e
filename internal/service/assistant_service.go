package service

import (
	"context"
	"fmt"
	"time"

	"agri-assistant-be/internal/dto"
	"agri-assistant-be/internal/pkg/logger"
	"agri-assistant-be/internal/repository/memory"
	"agri-assistant-be/pkg/agri/compose"
	"agri-assistant-be/pkg/agri/conversation"
	"agri-assistant-be/pkg/agri/simulation"
	"agri-assistant-be/pkg/store"

	"github.com/google/uuid"
)

// DocumentRetriever returns ranked knowledge-base snippets for a query.
// An empty corpus yields an empty slice, not an error.
type DocumentRetriever interface {
	Retrieve(query string, k int) []store.Document
}

// DatasetAnalyzer summarizes the tabular dataset selected by context.
type DatasetAnalyzer interface {
	Summarize(message string, ctx store.Context) map[string]interface{}
}

// WeatherProvider resolves a weather record for the context.
type WeatherProvider interface {
	Lookup(ctx store.Context) map[string]interface{}
}

// IAssistantService is the sole operation exposed to the transport layer.
type IAssistantService interface {
	SendChat(ctx context.Context, request *dto.ChatRequest) (*dto.ChatResponse, error)
	GetChatHistory(ctx context.Context, sessionId string) (*dto.ChatHistoryResponse, error)
}

// assistantService orchestrates the multi-source answer pipeline:
// context extraction, concurrent source fan-out, the conditional
// simulation stage, synthesis, and session persistence.
type assistantService struct {
	sessionRepo *memory.SessionRepository
	retriever   DocumentRetriever
	analyzer    DatasetAnalyzer
	weather     WeatherProvider
	simRunner   *simulation.Runner
	composer    *compose.Composer
	publisher   IPublisherService
	logger      logger.ILogger

	retrievalK    int
	sourceTimeout time.Duration
}

func NewAssistantService(
	sessionRepo *memory.SessionRepository,
	retriever DocumentRetriever,
	analyzer DatasetAnalyzer,
	weather WeatherProvider,
	simRunner *simulation.Runner,
	composer *compose.Composer,
	publisher IPublisherService,
	sysLogger logger.ILogger,
	retrievalK int,
	sourceTimeout time.Duration,
) IAssistantService {
	return &assistantService{
		sessionRepo:   sessionRepo,
		retriever:     retriever,
		analyzer:      analyzer,
		weather:       weather,
		simRunner:     simRunner,
		composer:      composer,
		publisher:     publisher,
		logger:        sysLogger,
		retrievalK:    retrievalK,
		sourceTimeout: sourceTimeout,
	}
}

// pipelineState is the per-request record threaded through the stages.
// Owned by exactly one turn; never shared.
type pipelineState struct {
	message     string
	sessionId   string
	context     store.Context
	missing     []string
	followup    string
	docs        []store.Document
	analytics   map[string]interface{}
	weather     map[string]interface{}
	simulation  simulation.Outcome
	reply       string
	sections    *compose.Sections
	diagnostics []string
}

// SendChat runs one turn of the pipeline. Concurrent turns for the same
// session serialize on the session lock; every turn yields a best-effort
// reply even when individual sources fail.
func (s *assistantService) SendChat(ctx context.Context, request *dto.ChatRequest) (*dto.ChatResponse, error) {
	started := time.Now()

	unlock := s.sessionRepo.Lock(request.SessionId)
	defer unlock()

	state := &pipelineState{
		message:   request.Message,
		sessionId: request.SessionId,
	}

	// Stage 1: context extraction over prior session state + caller context
	prior := s.sessionRepo.GetContext(request.SessionId)
	merged := prior.Merge(request.Context)
	state.context, state.missing, state.followup = conversation.Extract(request.Message, merged)

	// Stage 2: independent sources fan out concurrently
	s.gatherSources(ctx, state)

	// Stage 3: conditional simulation
	state.simulation = s.runSimulation(state.context)

	// Stage 4: synthesis
	history := s.sessionRepo.GetHistory(request.SessionId)
	state.reply, state.sections = s.composer.Compose(ctx, compose.Input{
		Message:    state.message,
		Context:    state.context,
		Missing:    state.missing,
		Followup:   state.followup,
		Documents:  state.docs,
		Analytics:  state.analytics,
		Weather:    state.weather,
		Simulation: state.simulation,
		History:    history,
	})

	// Stage 5: persist and notify
	s.sessionRepo.PutContext(request.SessionId, state.context)
	s.sessionRepo.AppendExchange(request.SessionId, request.Message, state.reply)

	if s.publisher != nil {
		s.publisher.PublishTurnCompleted(dto.TurnCompletedMessage{
			TurnId:     uuid.New().String(),
			SessionId:  request.SessionId,
			Crop:       state.context[store.FieldCrop],
			Region:     state.context[store.FieldRegion],
			Simulated:  !state.simulation.Skipped,
			DurationMs: time.Since(started).Milliseconds(),
		})
	}

	s.logger.Info("assistant", "turn completed", map[string]interface{}{
		"session_id":  request.SessionId,
		"missing":     state.missing,
		"simulated":   !state.simulation.Skipped,
		"diagnostics": state.diagnostics,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	return &dto.ChatResponse{
		SessionId:   request.SessionId,
		Reply:       state.reply,
		Followup:    state.followup,
		Sections:    state.sections,
		Diagnostics: state.diagnostics,
	}, nil
}

// GetChatHistory exposes the stored per-session memory.
func (s *assistantService) GetChatHistory(ctx context.Context, sessionId string) (*dto.ChatHistoryResponse, error) {
	return &dto.ChatHistoryResponse{
		SessionId: sessionId,
		Context:   s.sessionRepo.GetContext(sessionId),
		History:   s.sessionRepo.GetHistory(sessionId),
	}, nil
}

// gatherSources dispatches retrieval, dataset analytics, and weather
// lookup concurrently. Each call is bounded by the source timeout; a
// failure or timeout degrades that source to an empty/default value and
// is recorded as a diagnostic.
func (s *assistantService) gatherSources(ctx context.Context, state *pipelineState) {
	type docsResult struct {
		docs     []store.Document
		panicked bool
	}
	type mapResult struct {
		data     map[string]interface{}
		panicked bool
	}

	docsCh := make(chan docsResult, 1)
	analyticsCh := make(chan mapResult, 1)
	weatherCh := make(chan mapResult, 1)

	go func() {
		defer recoverInto(docsCh, docsResult{panicked: true})
		docsCh <- docsResult{docs: s.retriever.Retrieve(state.message, s.retrievalK)}
	}()
	go func() {
		defer recoverInto(analyticsCh, mapResult{panicked: true})
		analyticsCh <- mapResult{data: s.analyzer.Summarize(state.message, state.context)}
	}()
	go func() {
		defer recoverInto(weatherCh, mapResult{panicked: true})
		weatherCh <- mapResult{data: s.weather.Lookup(state.context)}
	}()

	deadline := time.NewTimer(s.sourceTimeout)
	defer deadline.Stop()

	// A source that answers nil is still a response; only timeouts and
	// panics count as unavailable.
	var docsOK, analyticsOK, weatherOK bool

	pending := 3
	for pending > 0 {
		select {
		case r := <-docsCh:
			state.docs = r.docs
			docsOK = !r.panicked
			pending--
		case r := <-analyticsCh:
			state.analytics = r.data
			analyticsOK = !r.panicked
			pending--
		case r := <-weatherCh:
			state.weather = r.data
			weatherOK = !r.panicked
			pending--
		case <-deadline.C:
			pending = 0
		case <-ctx.Done():
			pending = 0
		}
	}

	if !docsOK {
		state.diagnostics = append(state.diagnostics, "retrieval unavailable, proceeding without documents")
	}
	if !analyticsOK {
		state.diagnostics = append(state.diagnostics, "dataset analytics unavailable, proceeding without findings")
	}
	if !weatherOK {
		state.diagnostics = append(state.diagnostics, "weather lookup unavailable, proceeding without weather")
	}

	if state.docs == nil {
		state.docs = []store.Document{}
	}
	if state.analytics == nil {
		state.analytics = map[string]interface{}{}
	}
	if state.weather == nil {
		state.weather = map[string]interface{}{}
	}

	for _, d := range state.diagnostics {
		s.logger.Warn("assistant", d, map[string]interface{}{"session_id": state.sessionId})
	}
}

// runSimulation evaluates the branch predicate and either delegates to
// the cached runner or returns an explicit skip marker.
func (s *assistantService) runSimulation(ctx store.Context) simulation.Outcome {
	if !ctx.CanSimulate() {
		reason := "crop not provided"
		if ctx[store.FieldCrop] != "" {
			reason = "region not provided"
		}
		return simulation.SkippedOutcome(reason)
	}

	result, err := s.simRunner.Run(ctx)
	if err != nil {
		// Encoding failures are treated like the precondition branch,
		// with a distinguishing note
		return simulation.SkippedOutcome(fmt.Sprintf("parameter encoding failed: %v", err))
	}
	return simulation.Simulated(result)
}

// recoverInto swallows a panicking source goroutine and delivers the
// fallback result so the join loop still completes.
func recoverInto[T any](ch chan T, fallback T) {
	if r := recover(); r != nil {
		select {
		case ch <- fallback:
		default:
		}
	}
}
