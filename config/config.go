package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/capvalis/breakout/strategy"
)

// Config is the complete engine configuration.
type Config struct {
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Notify   NotifyConfig   `json:"notify" yaml:"notify"`
	Broker   BrokerConfig   `json:"broker" yaml:"broker"`
}

// StrategyConfig holds the breakout parameters.
type StrategyConfig struct {
	Symbol          string  `json:"symbol" yaml:"symbol"`
	Interval        int     `json:"interval" yaml:"interval"` // minutes
	MinCandles      int     `json:"min_candles" yaml:"min_candles"`
	RangeStart      int     `json:"range_start" yaml:"range_start"`
	RangeEnd        int     `json:"range_end" yaml:"range_end"`
	MinRangeSize    float64 `json:"min_range_size" yaml:"min_range_size"`
	MaxTradesPerDay int     `json:"max_trades_per_day" yaml:"max_trades_per_day"`
	PositionSize    float64 `json:"position_size" yaml:"position_size"`
	RiskPercent     float64 `json:"risk_percent" yaml:"risk_percent"`
	Capital         float64 `json:"capital" yaml:"capital"`
}

// DataConfig holds normalizer parameters.
type DataConfig struct {
	Timezone string `json:"timezone" yaml:"timezone"`
}

type JournalConfig struct {
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type NotifyConfig struct {
	Enabled          bool   `json:"enabled" yaml:"enabled"`
	TelegramBotToken string `json:"telegram_bot_token,omitempty" yaml:"telegram_bot_token,omitempty"`
	TelegramChatID   string `json:"telegram_chat_id,omitempty" yaml:"telegram_chat_id,omitempty"`
}

type BrokerConfig struct {
	APIURL   string `json:"api_url,omitempty" yaml:"api_url,omitempty"`
	DataURL  string `json:"data_url,omitempty" yaml:"data_url,omitempty"`
	ClientID string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
}

// Params converts the strategy section into runtime parameters.
func (c *Config) Params() strategy.Params {
	return strategy.Params{
		MinCandles:      c.Strategy.MinCandles,
		RangeStart:      c.Strategy.RangeStart,
		RangeEnd:        c.Strategy.RangeEnd,
		MinRangeSize:    c.Strategy.MinRangeSize,
		MaxTradesPerDay: c.Strategy.MaxTradesPerDay,
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes the configuration; format follows the extension.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.Symbol == "" {
		return fmt.Errorf("strategy.symbol is required")
	}
	switch s.Interval {
	case 1, 5, 15, 30, 60:
	default:
		return fmt.Errorf("strategy.interval must be one of 1, 5, 15, 30, 60")
	}
	if s.MinCandles <= 0 {
		return fmt.Errorf("strategy.min_candles must be positive")
	}
	if s.RangeStart < 0 || s.RangeEnd <= s.RangeStart {
		return fmt.Errorf("strategy range window [%d, %d) is invalid", s.RangeStart, s.RangeEnd)
	}
	if s.RangeEnd > s.MinCandles {
		return fmt.Errorf("strategy.range_end %d exceeds min_candles %d", s.RangeEnd, s.MinCandles)
	}
	if s.MinRangeSize < 0 {
		return fmt.Errorf("strategy.min_range_size must not be negative")
	}
	if s.MaxTradesPerDay <= 0 {
		return fmt.Errorf("strategy.max_trades_per_day must be positive")
	}
	if s.PositionSize <= 0 {
		return fmt.Errorf("strategy.position_size must be positive")
	}
	if s.RiskPercent < 0 || s.RiskPercent > 1 {
		return fmt.Errorf("strategy.risk_percent must be between 0 and 1")
	}
	// Zero capital disables risk-based sizing; negative is a mistake.
	if s.Capital < 0 {
		return fmt.Errorf("strategy.capital must not be negative")
	}
	if c.Notify.Enabled && (c.Notify.TelegramBotToken == "" || c.Notify.TelegramChatID == "") {
		return fmt.Errorf("notify enabled but telegram bot token / chat id missing")
	}
	return nil
}

// Default returns a configuration with sensible defaults for a 5-minute
// Bank Nifty session (09:15 open, range window 09:45-10:00).
func Default() *Config {
	p := strategy.DefaultParams()
	return &Config{
		Strategy: StrategyConfig{
			Symbol:          "NSE:NIFTYBANK-INDEX",
			Interval:        5,
			MinCandles:      p.MinCandles,
			RangeStart:      p.RangeStart,
			RangeEnd:        p.RangeEnd,
			MinRangeSize:    p.MinRangeSize,
			MaxTradesPerDay: p.MaxTradesPerDay,
			PositionSize:    75,
			RiskPercent:     0.02,
			Capital:         100_000,
		},
		Data: DataConfig{
			Timezone: "Asia/Kolkata",
		},
		Journal: JournalConfig{
			DBPath: "./backtest.sqlite",
		},
		Notify: NotifyConfig{
			Enabled: false,
		},
	}
}
