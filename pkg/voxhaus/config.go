package voxhaus

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/voxhaus/voxhaus/pkg/configutil"
)

type Config struct {
	Environment     string                  `mapstructure:"environment"`
	LogLevel        string                  `mapstructure:"log_level"`
	LogFormat       string                  `mapstructure:"log_format"`
	DefaultLanguage string                  `mapstructure:"default_language"`
	ServerAddr      string                  `mapstructure:"server_addr"`
	Transcoder      TranscoderConfig        `mapstructure:"transcoder"`
	Recognition     RecognitionConfig       `mapstructure:"recognition"`
	Vendors         map[string]VendorConfig `mapstructure:"vendors"`
	Telegram        TelegramConfig          `mapstructure:"telegram"`
}

// VendorConfig binds an STT entity id to a provider and its free-form
// settings.
type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type TranscoderConfig struct {
	FFmpegPath     string `mapstructure:"ffmpeg_path"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type RecognitionConfig struct {
	ChunkSize      int `mapstructure:"chunk_size"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type TelegramConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	BotToken           string `mapstructure:"bot_token"`
	ChatIDs            string `mapstructure:"chat_ids"`
	STTEntityID        string `mapstructure:"stt_entity_id"`
	SendReply          bool   `mapstructure:"send_reply"`
	MaxDurationSeconds int    `mapstructure:"max_duration_seconds"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("default_language", "en")
	v.SetDefault("server_addr", ":8099")
	v.SetDefault("transcoder.ffmpeg_path", "ffmpeg")
	v.SetDefault("transcoder.timeout_seconds", 60)
	v.SetDefault("recognition.chunk_size", 4096)
	v.SetDefault("recognition.timeout_seconds", 60)
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.send_reply", true)
	v.SetDefault("telegram.max_duration_seconds", 180)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := configutil.RequireString(c.DefaultLanguage, "default_language"); err != nil {
		return err
	}
	for entityID, vendor := range c.Vendors {
		if err := configutil.RequireString(vendor.Provider, fmt.Sprintf("vendors.%s.provider", entityID)); err != nil {
			return err
		}
	}
	if c.Telegram.Enabled {
		if target := strings.TrimSpace(c.Telegram.STTEntityID); target != "" {
			if _, ok := c.Vendors[target]; !ok {
				return fmt.Errorf("telegram.stt_entity_id %q is not a configured vendor", target)
			}
		}
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	cfg.DefaultLanguage = os.ExpandEnv(cfg.DefaultLanguage)
	cfg.ServerAddr = os.ExpandEnv(cfg.ServerAddr)
	cfg.Transcoder.FFmpegPath = os.ExpandEnv(cfg.Transcoder.FFmpegPath)
	cfg.Telegram.BotToken = os.ExpandEnv(cfg.Telegram.BotToken)
	cfg.Telegram.ChatIDs = os.ExpandEnv(cfg.Telegram.ChatIDs)
	cfg.Telegram.STTEntityID = os.ExpandEnv(cfg.Telegram.STTEntityID)
	for id, vendor := range cfg.Vendors {
		vendor.Settings = expandSettings(vendor.Settings)
		cfg.Vendors[id] = vendor
	}
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}
