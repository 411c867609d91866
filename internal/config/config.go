package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Ollama  OllamaConfig
	YouTube YouTubeConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	GenModel   string
	EmbedModel string
}

type OllamaConfig struct {
	BaseURL    string
	GenModel   string
	EmbedModel string
}

type YouTubeConfig struct {
	APIKey  string
	BaseURL string
}

// StorageConfig selects the vector index backend. "sqlite" keeps everything
// local under DataDir; "chroma" talks to a remote Chroma server.
type StorageConfig struct {
	Backend          string
	DataDir          string
	ChromaURL        string
	ChromaCollection string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Gemini: GeminiConfig{
			GenModel:   "gemini-2.0-flash",
			EmbedModel: "text-embedding-004",
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			GenModel:   "llama3.2",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			Backend:          "sqlite",
			DataDir:          defaultDataDir(),
			ChromaURL:        "http://localhost:8000",
			ChromaCollection: "videos-collection",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".vidrank")
	}
	return ".vidrank"
}

// Load reads configuration from defaults, a .env file in the working
// directory (if present), and VIDRANK_* environment variables, in that
// order of increasing precedence. godotenv never overrides variables
// already set in the environment, so real env vars always win.
func Load() (Config, error) {
	// Best-effort: absence of a .env file is the common case.
	_ = godotenv.Load()
	return loadWith(os.LookupEnv)
}

func loadWith(lookup func(string) (string, bool)) (Config, error) {
	cfg := defaults()

	setString(lookup, "VIDRANK_API_TOKEN", &cfg.Server.APIToken)
	setString(lookup, "VIDRANK_GEMINI_API_KEY", &cfg.Gemini.APIKey)
	setString(lookup, "VIDRANK_GEMINI_BASE_URL", &cfg.Gemini.BaseURL)
	setString(lookup, "VIDRANK_GEMINI_MODEL", &cfg.Gemini.GenModel)
	setString(lookup, "VIDRANK_GEMINI_EMBED_MODEL", &cfg.Gemini.EmbedModel)
	setString(lookup, "VIDRANK_OLLAMA_BASE_URL", &cfg.Ollama.BaseURL)
	setString(lookup, "VIDRANK_OLLAMA_MODEL", &cfg.Ollama.GenModel)
	setString(lookup, "VIDRANK_OLLAMA_EMBED_MODEL", &cfg.Ollama.EmbedModel)
	setString(lookup, "VIDRANK_YOUTUBE_API_KEY", &cfg.YouTube.APIKey)
	setString(lookup, "VIDRANK_YOUTUBE_BASE_URL", &cfg.YouTube.BaseURL)
	setString(lookup, "VIDRANK_STORAGE_BACKEND", &cfg.Storage.Backend)
	setString(lookup, "VIDRANK_DATA_DIR", &cfg.Storage.DataDir)
	setString(lookup, "VIDRANK_CHROMA_URL", &cfg.Storage.ChromaURL)
	setString(lookup, "VIDRANK_CHROMA_COLLECTION", &cfg.Storage.ChromaCollection)
	setString(lookup, "VIDRANK_LOG_LEVEL", &cfg.Log.Level)

	if v, ok := lookup("VIDRANK_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid VIDRANK_PORT %q", v)
		}
		cfg.Server.Port = port
	}

	if cfg.Storage.Backend != "sqlite" && cfg.Storage.Backend != "chroma" {
		return Config{}, fmt.Errorf("invalid VIDRANK_STORAGE_BACKEND %q (want sqlite or chroma)", cfg.Storage.Backend)
	}

	return cfg, nil
}

func setString(lookup func(string) (string, bool), key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

// UseGemini reports whether the cloud provider is configured; without a
// Gemini key the server falls back to local Ollama.
func (c Config) UseGemini() bool {
	return c.Gemini.APIKey != ""
}
