package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	LLM    LLMConfig
	OCR    OCRConfig
	Vision VisionConfig
	Index  IndexConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string
	MaxUploadBytes int64
}

// LLMConfig holds remote LLM configuration
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Temperature    float32
	Timeout        time.Duration

	// ForceLocalOnly disables every remote LLM call regardless of credentials.
	ForceLocalOnly bool
	// UseOpenAIOnly changes the summarizer's fallback wording and return path.
	UseOpenAIOnly bool

	// OllamaModel is recognized for compatibility with older deployments; the
	// effective code paths no longer call Ollama.
	OllamaModel string
}

// OCRConfig holds OCR engine configuration
type OCRConfig struct {
	Tesseract      string
	TesseractLang  string
	TessdataDir    string
	EasyOCR        string
	EasyOCRLang    string
	DisableEasyOCR bool
	GoogleCreds    string
}

// VisionConfig holds the doc-VQA sidecar configuration
type VisionConfig struct {
	ServerURL    string
	Model        string
	DisableDonut bool
	Timeout      time.Duration
}

// IndexConfig holds vector index configuration
type IndexConfig struct {
	// DBPath is the SQLite location backing the per-session index.
	// Empty means a private in-memory database.
	DBPath string
	TopK   int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 32)) << 20,
		},
		LLM: LLMConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Temperature:    getEnvAsFloat32("OPENAI_TEMPERATURE", 0.1),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			ForceLocalOnly: getEnvAsBool("FORCE_LOCAL_ONLY", false),
			UseOpenAIOnly:  getEnvAsBool("USE_OPENAI_ONLY", false),
			OllamaModel:    getEnv("OLLAMA_MODEL", "mistral:latest"),
		},
		OCR: OCRConfig{
			Tesseract:      getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:  getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:    getEnv("TESSDATA_PREFIX", ""),
			EasyOCR:        getEnv("EASYOCR_BIN", "easyocr"),
			EasyOCRLang:    getEnv("EASYOCR_LANG", "en"),
			DisableEasyOCR: getEnvAsBool("DISABLE_EASYOCR", false),
			GoogleCreds:    getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Vision: VisionConfig{
			ServerURL:    getEnv("DOCVQA_URL", "http://localhost:8642"),
			Model:        getEnv("DOCVQA_MODEL", "naver-clova-ix/donut-base-finetuned-docvqa"),
			DisableDonut: getEnvAsBool("DISABLE_DONUT", false),
			Timeout:      getEnvAsDuration("DOCVQA_TIMEOUT", 60*time.Second),
		},
		Index: IndexConfig{
			DBPath: getEnv("VECTOR_DB_PATH", ""),
			TopK:   getEnvAsInt("RETRIEVAL_TOP_K", 3),
		},
	}
}

// CanUseOpenAI reports whether remote LLM calls are permitted.
func (c *Config) CanUseOpenAI() bool {
	return !c.LLM.ForceLocalOnly && c.LLM.APIKey != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
