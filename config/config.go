// Package config loads runtime settings from environment variables.
//
// A .env file in the working directory is loaded first when present, then
// the process environment wins. Validation happens once at startup: missing
// required variables are reported together in a single *Error so operators
// fix them in one pass instead of one restart at a time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	ai "github.com/smartsource/agentloop"
	"github.com/smartsource/agentloop/deployment"
)

// Error reports missing required settings.
type Error struct {
	Missing []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: missing required settings: %s", strings.Join(e.Missing, ", "))
}

// Settings holds the runtime configuration.
type Settings struct {
	// Azure OpenAI connection. When Endpoint is empty the plain OpenAI API
	// is used with OpenAIAPIKey instead.
	APIKey     string
	Endpoint   string
	APIVersion string

	// Plain OpenAI fallback and the optional Anthropic backend.
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Deployment names per logical model.
	GPT4oDeployment     string
	GPT4oMiniDeployment string
	GPT41Deployment     string
	GPT41MiniDeployment string
	GPT41NanoDeployment string
	EmbeddingDeployment string
	AnthropicModelName  string

	// Runtime knobs.
	PoolSize      int
	Port          string
	LogLevel      string
	MaxIterations int
}

// Load reads settings from the environment, loading a .env file if present.
func Load() (*Settings, error) {
	godotenv.Load() // Load .env file if present

	s := &Settings{
		APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
		Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
		APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		GPT4oDeployment:     getEnvOrDefault("GPT4O_DEPLOYMENT_NAME", "gpt-4o"),
		GPT4oMiniDeployment: getEnvOrDefault("GPT4O_MINI_DEPLOYMENT_NAME", "gpt-4o-mini"),
		GPT41Deployment:     getEnvOrDefault("GPT41_DEPLOYMENT_NAME", "gpt-4.1"),
		GPT41MiniDeployment: getEnvOrDefault("GPT41_MINI_DEPLOYMENT_NAME", "gpt-4.1-mini"),
		GPT41NanoDeployment: getEnvOrDefault("GPT41_NANO_DEPLOYMENT_NAME", "gpt-4.1-nano"),
		EmbeddingDeployment: getEnvOrDefault("EMBEDDING_DEPLOYMENT_NAME", "text-embedding-3-small"),
		AnthropicModelName:  os.Getenv("ANTHROPIC_MODEL_NAME"),

		PoolSize:      getEnvIntOrDefault("POOL_SIZE", 5),
		Port:          getEnvOrDefault("PORT", "8000"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		MaxIterations: getEnvIntOrDefault("MAX_ITERATIONS", 10),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that required settings are present. Azure needs both a
// key and an endpoint; without an endpoint the plain OpenAI key suffices.
func (s *Settings) Validate() error {
	var missing []string

	if s.Endpoint != "" {
		if s.APIKey == "" {
			missing = append(missing, "AZURE_OPENAI_API_KEY")
		}
	} else if s.OpenAIAPIKey == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT or OPENAI_API_KEY")
	}

	if len(missing) > 0 {
		return &Error{Missing: missing}
	}
	return nil
}

// OpenAIKey returns the key for the active OpenAI backend: the Azure key
// when an endpoint is configured, the plain OpenAI key otherwise.
func (s *Settings) OpenAIKey() string {
	if s.Endpoint != "" {
		return s.APIKey
	}
	return s.OpenAIAPIKey
}

// DeploymentMap builds the logical model name to deployment mapping.
// Anthropic routing is only added when an Anthropic key is configured.
func (s *Settings) DeploymentMap() deployment.Map {
	m := deployment.Map{
		"gpt-4o":                 {Provider: ai.ProviderOpenAI, Name: s.GPT4oDeployment},
		"gpt-4o-mini":            {Provider: ai.ProviderOpenAI, Name: s.GPT4oMiniDeployment},
		"gpt-4.1":                {Provider: ai.ProviderOpenAI, Name: s.GPT41Deployment},
		"gpt-4.1-mini":           {Provider: ai.ProviderOpenAI, Name: s.GPT41MiniDeployment},
		"gpt-4.1-nano":           {Provider: ai.ProviderOpenAI, Name: s.GPT41NanoDeployment},
		"text-embedding-3-small": {Provider: ai.ProviderOpenAI, Name: s.EmbeddingDeployment},
	}
	if s.AnthropicAPIKey != "" && s.AnthropicModelName != "" {
		m["claude"] = deployment.Deployment{Provider: ai.ProviderAnthropic, Name: s.AnthropicModelName}
	}
	return m
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
