package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Data     DataConfig
	Ai       AIConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type DataConfig struct {
	DocsDir     string
	DatasetsDir string
	WeatherDir  string
}

type AIConfig struct {
	LLMProvider    string // "ollama" or "huggingface"
	LLMModel       string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL  string
	HuggingFaceKey string
}

type PipelineConfig struct {
	RetrievalK      int
	SourceTimeout   time.Duration // per-collaborator bound for docs/dataset/weather
	SimulationDelay time.Duration // artificial model-call latency
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8501"),
		},
		Data: DataConfig{
			DocsDir:     getEnv("DOCS_DIR", "data/docs"),
			DatasetsDir: getEnv("DATASETS_DIR", "data/datasets"),
			WeatherDir:  getEnv("WEATHER_DIR", "data/weather"),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:       getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceKey: getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Pipeline: PipelineConfig{
			RetrievalK:      getEnvAsInt("RETRIEVAL_K", 5),
			SourceTimeout:   time.Duration(getEnvAsInt("SOURCE_TIMEOUT_MS", 5000)) * time.Millisecond,
			SimulationDelay: time.Duration(getEnvAsInt("SIM_DELAY_MS", 300)) * time.Millisecond,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
