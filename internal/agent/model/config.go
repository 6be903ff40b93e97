package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ================ Config ================

// AuthConfig holds the client-credential settings used to reach the directory.
type AuthConfig struct {
	ClientID  string `envconfig:"CLIENT_ID" required:"true"`
	Authority string `envconfig:"AUTHORITY" required:"true"`
	Secret    string `envconfig:"SECRET" required:"true"`
	Scope     string `envconfig:"SCOPE" default:"https://graph.microsoft.com/.default"`
}

// Scopes splits SCOPE on commas. A bracketed, quoted list such as
// `["https://graph.microsoft.com/.default"]` is accepted too.
func (c AuthConfig) Scopes() []string {
	raw := strings.TrimSpace(c.Scope)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.Trim(strings.TrimSpace(s), `"'`)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Tenant splits AUTHORITY into the authority host and the tenant segment,
// e.g. https://login.microsoftonline.com/contoso.onmicrosoft.com.
func (c AuthConfig) Tenant() (host string, tenant string, err error) {
	u, err := url.Parse(strings.TrimSpace(c.Authority))
	if err != nil {
		return "", "", fmt.Errorf("parse authority: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("authority %q is not an absolute URL", c.Authority)
	}
	tenant = strings.Trim(u.Path, "/")
	if i := strings.Index(tenant, "/"); i >= 0 {
		tenant = tenant[:i]
	}
	if tenant == "" {
		return "", "", fmt.Errorf("authority %q has no tenant segment", c.Authority)
	}
	return u.Scheme + "://" + u.Host + "/", tenant, nil
}

type GraphConfig struct {
	BaseURL string        `envconfig:"GRAPH_BASE_URL" default:"https://graph.microsoft.com/v1.0"`
	Timeout time.Duration `envconfig:"GRAPH_TIMEOUT" default:"30s"`
}

const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

// ChatModelConfig selects and authenticates the chat completion backend.
type ChatModelConfig struct {
	Provider        string `envconfig:"MODEL_PROVIDER" default:"azure"`
	AzureEndpoint   string `envconfig:"AOAI_ENDPOINT"`
	AzureKey        string `envconfig:"AOAI_KEY"`
	AzureDeployment string `envconfig:"AOAI_DEPLOYMENT"`
	AzureAPIVersion string `envconfig:"AOAI_API_VERSION" default:"2024-02-15-preview"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL   string `envconfig:"GEMINI_BASE_URL"`
}

type IntentModelConfig struct {
	Model       string  `envconfig:"INTENT_MODEL" default:"gpt-4o-mini"`
	MaxTokens   int     `envconfig:"INTENT_MAX_TOKENS" default:"100"`
	Temperature float32 `envconfig:"INTENT_TEMPERATURE" default:"0"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gpt-4o-mini"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"225"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.3"`
}

const (
	FetchParallel  = "parallel"
	FetchSelective = "selective"
)

type ConversationConfig struct {
	MemoryLimit      int           `envconfig:"CONVERSATION_MEMORY_LIMIT" default:"10"`
	HistoryWindow    int           `envconfig:"CONVERSATION_HISTORY_WINDOW" default:"6"`
	FetchMode        string        `envconfig:"FETCH_MODE" default:"parallel"`
	ResponseCacheTTL time.Duration `envconfig:"FINAL_RESPONSE_CACHE_TTL" default:"60s"`
	StreamChunkSize  int           `envconfig:"STREAM_CHUNK_SIZE" default:"10"`
	CitationsEnabled bool          `envconfig:"CITATIONS_ENABLED" default:"true"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type StoreConfig struct {
	Backend string `envconfig:"STORE_BACKEND" default:"memory"`
}
