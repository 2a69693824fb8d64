package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Provider names accepted by AI_PROVIDER.
const (
	ProviderArk       = "ark"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Log: logCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	// SnapshotLimit caps the in-memory snapshot store; below one is unbounded.
	SnapshotLimit int
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	snapshotLimit := 1000
	if override, err := parseOptionalIntEnv("SNAPSHOT_LIMIT"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		snapshotLimit = *override
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins, SnapshotLimit: snapshotLimit}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins, SnapshotLimit: snapshotLimit}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       string
	Model          string
	FallbackModel  string
	Temperature    float64
	MaxTokens      int
	StreamResponse bool

	// Ark credentials
	APIKey    string
	AccessKey string
	SecretKey string
	BaseURL   string
	Region    string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	AnthropicAPIKey  string
	AnthropicBaseURL string
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	if c.Model == "" {
		return false
	}
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	case ProviderAnthropic:
		return c.AnthropicAPIKey != ""
	case ProviderArk:
		return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
	default:
		return false
	}
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if c.Provider != ProviderArk || !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + AI_MODEL 或 AK/SK 组合")
	}

	temperature := float32(c.Temperature)
	maxTokens := c.MaxTokens

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	openAIKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	anthropicKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))

	defaultProvider := ProviderArk
	switch {
	case openAIKey != "":
		defaultProvider = ProviderOpenAI
	case anthropicKey != "":
		defaultProvider = ProviderAnthropic
	}
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", defaultProvider))

	var defaultModel string
	switch provider {
	case ProviderOpenAI:
		defaultModel = "gpt-3.5-turbo"
	case ProviderAnthropic:
		defaultModel = "claude-3-5-haiku-latest"
	case ProviderArk:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	temperature := 0.7
	if override, err := parseOptionalFloatEnv("AI_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		temperature = *override
	}

	maxTokens := 800
	if override, err := parseOptionalIntEnv("AI_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AIConfig{}, fmt.Errorf("invalid AI_MAX_TOKENS value %d", *override)
		}
		maxTokens = *override
	}

	stream, err := parseBoolEnv("AI_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	model := getEnvOrDefault("AI_MODEL", defaultModel)

	return AIConfig{
		Provider:         provider,
		Model:            model,
		FallbackModel:    getEnvOrDefault("AI_FALLBACK_MODEL", fallbackFor(provider, model)),
		Temperature:      temperature,
		MaxTokens:        maxTokens,
		StreamResponse:   stream,
		APIKey:           strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:        strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:        strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		BaseURL:          getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:           getEnvOrDefault("ARK_REGION", "cn-beijing"),
		OpenAIAPIKey:     openAIKey,
		OpenAIBaseURL:    strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		AnthropicAPIKey:  anthropicKey,
		AnthropicBaseURL: strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")),
	}, nil
}

// fallbackFor picks the retry model when AI_FALLBACK_MODEL is unset. Ark has no
// universally available model, so it retries the configured one.
func fallbackFor(provider, model string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-3.5-turbo"
	case ProviderAnthropic:
		return "claude-3-haiku-20240307"
	default:
		return model
	}
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() (LogConfig, error) {
	format := strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json"))
	if format != "json" && format != "console" {
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value %q", format)
	}
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: format,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
