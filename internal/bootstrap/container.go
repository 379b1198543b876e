package bootstrap

import (
	"log"

	"agri-assistant-be/internal/config"
	"agri-assistant-be/internal/controller"
	"agri-assistant-be/internal/pkg/logger"
	"agri-assistant-be/internal/repository/memory"
	"agri-assistant-be/internal/service"
	"agri-assistant-be/pkg/agri/compose"
	"agri-assistant-be/pkg/agri/dataset"
	"agri-assistant-be/pkg/agri/retrieval"
	"agri-assistant-be/pkg/agri/simulation"
	"agri-assistant-be/pkg/agri/weather"
	"agri-assistant-be/pkg/llm/factory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const turnCompletedTopic = "TURN_COMPLETED"

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	turnLogger := logger.NewIsolatedLogger("logs/turns.log")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Data sources
	retriever := retrieval.NewRetriever(cfg.Data.DocsDir)
	log.Printf("[INFO] Knowledge base indexed: %d chunks from %s", retriever.Size(), cfg.Data.DocsDir)

	datasetEngine := dataset.NewEngine(cfg.Data.DatasetsDir)
	weatherLoader := weather.NewLoader(cfg.Data.WeatherDir)
	simRunner := simulation.NewRunner(cfg.Pipeline.SimulationDelay)

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFaceKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Initialize In-Memory Session Storage
	sessionRepo := memory.NewSessionRepository()

	// 4. Services
	publisherService := service.NewPublisherService(turnCompletedTopic, pubSub)
	consumerService := service.NewConsumerService(pubSub, turnCompletedTopic, turnLogger)

	composer := compose.NewComposer(llmProvider)
	assistantService := service.NewAssistantService(
		sessionRepo,
		retriever,
		datasetEngine,
		weatherLoader,
		simRunner,
		composer,
		publisherService,
		sysLogger,
		cfg.Pipeline.RetrievalK,
		cfg.Pipeline.SourceTimeout,
	)

	// 5. Controllers
	return &Container{
		ChatController:  controller.NewChatController(assistantService),
		ConsumerService: consumerService,
	}
}
