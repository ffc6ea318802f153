package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Log      Log      `yaml:"log"`
	Upstream Upstream `yaml:"upstream"`
	Chat     Chat     `yaml:"chat"`
	Pricing  Pricing  `yaml:"pricing"`
	DB       DB       `yaml:"db"`
}

type Server struct {
	// Listen address of the HTTP API
	Listen string `yaml:"listen" example:":8080"`
}

type Upstream struct {
	// Mode selects how assistant replies are produced:
	// "proxy" talks to the external chat proxy, "direct" talks to an
	// OpenAI-compatible model and extracts quote markup locally
	Mode string `yaml:"mode" example:"proxy" validate:"required,oneof=proxy direct"`

	Proxy  ProxyConfig `yaml:"proxy"`
	OpenAI ModelConfig `yaml:"openai"`
}

type ProxyConfig struct {
	// URL of the chat proxy endpoint
	URL string `yaml:"url" example:"https://example.functions.run/chat-with-ai"`
	// Bearer token for the proxy
	Token string `yaml:"token"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o-mini"`
}

type Chat struct {
	// Number of conversation turns sent upstream with each request
	HistoryLimit int `yaml:"history_limit" example:"20"`
	// Rate limit window in seconds
	RateWindowSeconds int `yaml:"rate_window_seconds" example:"60"`
	// Messages admitted per window
	RateMaxMessages int `yaml:"rate_max_messages" example:"10"`
}

type Pricing struct {
	// Agency rate in euros per hour
	HourlyRate int `yaml:"hourly_rate" example:"120"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

type DB struct {
	// SQLite database file path
	Path string `yaml:"path" example:"data/wertchat.db"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Server.Listen == "" {
		result.Server.Listen = ":8080"
	}
	if result.Chat.HistoryLimit == 0 {
		result.Chat.HistoryLimit = 20
	}
	if result.Chat.RateWindowSeconds == 0 {
		result.Chat.RateWindowSeconds = 60
	}
	if result.Chat.RateMaxMessages == 0 {
		result.Chat.RateMaxMessages = 10
	}
	if result.Pricing.HourlyRate == 0 {
		result.Pricing.HourlyRate = 120
	}
	if result.DB.Path == "" {
		result.DB.Path = "data/wertchat.db"
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	switch result.Upstream.Mode {
	case "proxy":
		if result.Upstream.Proxy.URL == "" {
			return nil, oops.Errorf("upstream.proxy.url is required in proxy mode")
		}
	case "direct":
		if result.Upstream.OpenAI.BaseURL == "" || result.Upstream.OpenAI.Token == "" || result.Upstream.OpenAI.Model == "" {
			return nil, oops.Errorf("upstream.openai.{base_url,token,model} are required in direct mode")
		}
	}

	return &result, nil
}
