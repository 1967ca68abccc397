package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/kottzoltan/aivio/pkg/logger"
	"github.com/kottzoltan/aivio/pkg/utils"
)

// Config main configuration structure
type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Database DatabaseConfig   `mapstructure:"database"`
	Log      logger.LogConfig `mapstructure:"log"`
	Services ServicesConfig   `mapstructure:"services"`
	Session  SessionConfig    `mapstructure:"session"`
	Storage  StorageConfig    `mapstructure:"storage"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Name      string `env:"SERVER_NAME"`
	Addr      string `env:"ADDR"`
	Mode      string `env:"MODE"`
	StaticDir string `env:"STATIC_DIR"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER"`
	DSN    string `env:"DSN"`
}

// ServicesConfig external collaborator configuration
type ServicesConfig struct {
	LLM LLMConfig `mapstructure:"llm"`
	TTS TTSConfig `mapstructure:"tts"`
	STT STTConfig `mapstructure:"stt"`
	CRM CRMConfig `mapstructure:"crm"`
}

// LLMConfig text-generation service configuration
type LLMConfig struct {
	Provider    string        `env:"LLM_PROVIDER"` // openai, qwen, etc.
	APIKey      string        `env:"LLM_API_KEY"`
	BaseURL     string        `env:"LLM_BASE_URL"`
	Model       string        `env:"LLM_MODEL"`
	Temperature float32       `env:"LLM_TEMPERATURE"`
	MaxTokens   int           `env:"LLM_MAX_TOKENS"`
	Timeout     time.Duration `env:"LLM_TIMEOUT"`
}

// TTSConfig speech-synthesis service configuration
type TTSConfig struct {
	Provider string        `env:"TTS_PROVIDER"` // elevenlabs, polly
	APIKey   string        `env:"TTS_API_KEY"`
	BaseURL  string        `env:"TTS_BASE_URL"`
	VoiceID  string        `env:"TTS_VOICE_ID"`
	ModelID  string        `env:"TTS_MODEL_ID"`
	Region   string        `env:"TTS_REGION"` // polly only
	Timeout  time.Duration `env:"TTS_TIMEOUT"`
}

// STTConfig transcription service configuration
type STTConfig struct {
	Provider string        `env:"STT_PROVIDER"` // whisper, deepgram
	APIKey   string        `env:"STT_API_KEY"`
	BaseURL  string        `env:"STT_BASE_URL"`
	Model    string        `env:"STT_MODEL"`
	Language string        `env:"STT_LANGUAGE"` // hu, en, etc.
	Timeout  time.Duration `env:"STT_TIMEOUT"`
}

// CRMConfig CRM/ERP backend configuration. An empty BaseURL disables
// synchronization without failing conversational turns.
type CRMConfig struct {
	BaseURL string        `env:"CRM_BASE_URL"`
	APIKey  string        `env:"CRM_API_KEY"`
	Timeout time.Duration `env:"CRM_TIMEOUT"`
}

// SessionConfig call-session registry configuration
type SessionConfig struct {
	MaxAge        time.Duration `env:"SESSION_MAX_AGE"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL"`
	HistoryWindow int           `env:"SESSION_HISTORY_WINDOW"`
}

// StorageConfig persona-override persistence configuration
type StorageConfig struct {
	OverrideBackend string `env:"OVERRIDE_BACKEND"` // file, db
	OverrideFile    string `env:"OVERRIDE_FILE"`
}

var GlobalConfig *Config

func Load() error {
	// 1. Load .env file based on environment (don't error if it doesn't exist, use default values)
	env := os.Getenv("APP_ENV")
	err := utils.LoadEnv(env)
	if err != nil {
		// Only log when .env file doesn't exist, don't affect startup
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}

	// 2. Load global configuration
	GlobalConfig = &Config{
		Server: ServerConfig{
			Name:      getStringOrDefault("SERVER_NAME", "aivio"),
			Addr:      getStringOrDefault("ADDR", ":8080"),
			Mode:      getStringOrDefault("MODE", "development"),
			StaticDir: getStringOrDefault("STATIC_DIR", "./web/ui"),
		},
		Database: DatabaseConfig{
			Driver: getStringOrDefault("DB_DRIVER", "sqlite"),
			DSN:    getStringOrDefault("DSN", "./aivio.db"),
		},
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		Services: ServicesConfig{
			LLM: LLMConfig{
				Provider:    getStringOrDefault("LLM_PROVIDER", "openai"),
				APIKey:      getStringOrDefault("LLM_API_KEY", ""),
				BaseURL:     getStringOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
				Model:       getStringOrDefault("LLM_MODEL", "gpt-4o-mini"),
				Temperature: float32(getFloatOrDefault("LLM_TEMPERATURE", 0.6)),
				MaxTokens:   getIntOrDefault("LLM_MAX_TOKENS", 2000),
				Timeout:     parseDuration(getStringOrDefault("LLM_TIMEOUT", "30s"), 30*time.Second),
			},
			TTS: TTSConfig{
				Provider: getStringOrDefault("TTS_PROVIDER", "elevenlabs"),
				APIKey:   getStringOrDefault("TTS_API_KEY", ""),
				BaseURL:  getStringOrDefault("TTS_BASE_URL", "https://api.elevenlabs.io"),
				VoiceID:  getStringOrDefault("TTS_VOICE_ID", "7B7mSWflzRSaO1yGeJH6"),
				ModelID:  getStringOrDefault("TTS_MODEL_ID", "eleven_multilingual_v2"),
				Region:   getStringOrDefault("TTS_REGION", "eu-central-1"),
				Timeout:  parseDuration(getStringOrDefault("TTS_TIMEOUT", "30s"), 30*time.Second),
			},
			STT: STTConfig{
				Provider: getStringOrDefault("STT_PROVIDER", "whisper"),
				APIKey:   getStringOrDefault("STT_API_KEY", ""),
				BaseURL:  getStringOrDefault("STT_BASE_URL", ""),
				Model:    getStringOrDefault("STT_MODEL", "whisper-1"),
				Language: getStringOrDefault("STT_LANGUAGE", "hu"),
				Timeout:  parseDuration(getStringOrDefault("STT_TIMEOUT", "30s"), 30*time.Second),
			},
			CRM: CRMConfig{
				BaseURL: getStringOrDefault("CRM_BASE_URL", ""),
				APIKey:  getStringOrDefault("CRM_API_KEY", ""),
				Timeout: parseDuration(getStringOrDefault("CRM_TIMEOUT", "10s"), 10*time.Second),
			},
		},
		Session: SessionConfig{
			MaxAge:        parseDuration(getStringOrDefault("SESSION_MAX_AGE", "30m"), 30*time.Minute),
			SweepInterval: parseDuration(getStringOrDefault("SESSION_SWEEP_INTERVAL", "5m"), 5*time.Minute),
			HistoryWindow: getIntOrDefault("SESSION_HISTORY_WINDOW", 10),
		},
		Storage: StorageConfig{
			OverrideBackend: getStringOrDefault("OVERRIDE_BACKEND", "file"),
			OverrideFile:    getStringOrDefault("OVERRIDE_FILE", "./data/robot_overrides.json"),
		},
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate database configuration
	if c.Database.DSN == "" {
		return errors.New("database DSN is required")
	}

	// Validate server configuration
	if c.Server.Addr == "" {
		return errors.New("server address is required")
	}

	if c.Session.HistoryWindow <= 0 {
		return errors.New("session history window must be positive")
	}
	return nil
}

// getStringOrDefault gets environment variable value, returns default if empty
func getStringOrDefault(key, defaultValue string) string {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolOrDefault gets boolean environment variable value, returns default if empty
func getBoolOrDefault(key string, defaultValue bool) bool {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return utils.GetBoolEnv(key)
}

// getIntOrDefault gets integer environment variable value, returns default if empty
func getIntOrDefault(key string, defaultValue int) int {
	value := utils.GetIntEnv(key)
	if value == 0 {
		return defaultValue
	}
	return int(value)
}

// getFloatOrDefault gets float environment variable value, returns default if empty
func getFloatOrDefault(key string, defaultValue float64) float64 {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return defaultValue
}

// parseDuration parses duration string with default fallback
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
