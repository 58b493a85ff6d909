package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	OllamaURL        string
	EmbeddingModel   string
	EmbeddingVersion string

	LexicalIndexURL string
	RerankerURL     string
	RerankerModel   string
	GeneratorURL    string
	GeneratorModel  string

	// RetrievalConfigPath points at the optional YAML file carrying
	// weight presets and budgets. Empty means built-in defaults.
	RetrievalConfigPath string

	APIToken       string
	RateLimitRPS   float64
	RateLimitBurst int

	AnswerMaxChunks int
	AnswerMaxTokens int

	EmbedTimeoutSeconds    int
	RerankTimeoutSeconds   int
	GenerateTimeoutSeconds int
	LexicalTimeoutSeconds  int
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		DBHost:     getEnv("DB_HOST", "retrieval-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "retrieval_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "retrieval_password"),
		DBName:     getEnv("DB_NAME", "retrieval_db"),

		OllamaURL:        getEnv("OLLAMA_URL", "http://ollama:11434"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "embeddinggemma"),
		EmbeddingVersion: getEnv("EMBEDDING_VERSION", "v1"),

		LexicalIndexURL: getEnv("LEXICAL_INDEX_URL", "http://search-indexer:9300"),
		RerankerURL:     getEnv("RERANKER_URL", "http://reranker:8001"),
		RerankerModel:   getEnv("RERANKER_MODEL", "bge-reranker-v2-m3"),
		GeneratorURL:    getEnv("GENERATOR_URL", "http://ollama:11434"),
		GeneratorModel:  getEnv("GENERATOR_MODEL", "gpt-oss20b-cpu"),

		RetrievalConfigPath: getEnv("RETRIEVAL_CONFIG_PATH", ""),

		APIToken:       getSecret("API_TOKEN", "API_TOKEN_FILE", ""),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		AnswerMaxChunks: getEnvInt("ANSWER_MAX_CHUNKS", 5),
		AnswerMaxTokens: getEnvInt("ANSWER_MAX_TOKENS", 768),

		EmbedTimeoutSeconds:    getEnvInt("EMBED_TIMEOUT_SECONDS", 30),
		RerankTimeoutSeconds:   getEnvInt("RERANK_TIMEOUT_SECONDS", 10),
		GenerateTimeoutSeconds: getEnvInt("GENERATE_TIMEOUT_SECONDS", 120),
		LexicalTimeoutSeconds:  getEnvInt("LEXICAL_TIMEOUT_SECONDS", 5),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
