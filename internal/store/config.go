package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"options-pilot/internal/types"
)

// ModeConfig is one operating mode's trading parameters. Instances are
// constant for the process lifetime; trading logic never mutates them.
type ModeConfig struct {
	Symbols           []string `yaml:"symbols"`
	Strategies        []string `yaml:"strategies"`
	DTEMin            int      `yaml:"dte_min"`
	DTEMax            int      `yaml:"dte_max"`
	MaxDailyTrades    int      `yaml:"max_daily_trades"`
	PositionScale     float64  `yaml:"position_scale"`
	CompoundThreshold int      `yaml:"compound_threshold"`
}

type Config struct {
	Mode        string  `yaml:"mode"`         // income or turbo
	BrokerMode  string  `yaml:"broker_mode"`  // DRY_RUN or LIVE
	DataSource  string  `yaml:"data_source"`  // STATIC or LIVE
	PollSeconds int     `yaml:"poll_seconds"` // cycle cadence
	Capital     float64 `yaml:"capital"`

	RiskPerTrade       float64 `yaml:"risk_per_trade"` // sizing fraction of capital
	ProfitTarget       float64 `yaml:"profit_target"`
	StopLossMultiplier float64 `yaml:"stop_loss_multiplier"`

	Risk struct {
		PerTradeLimit float64 `yaml:"per_trade_limit"`
		DailyLimit    float64 `yaml:"daily_limit"`
		WeeklyLimit   float64 `yaml:"weekly_limit"`
	} `yaml:"risk"`

	Market struct {
		Timezone string `yaml:"timezone"`
		Open     string `yaml:"open"`  // HH:MM exchange local time
		Close    string `yaml:"close"` // HH:MM exchange local time
	} `yaml:"market"`

	Edge struct {
		Gate           string  `yaml:"gate"` // RULES or MODEL
		DefaultAllow   bool    `yaml:"default_allow"`
		MinProbability float64 `yaml:"min_probability"`
		WeightsPath    string  `yaml:"weights_path"`
	} `yaml:"edge"`

	Income ModeConfig `yaml:"income"`
	Turbo  ModeConfig `yaml:"turbo"`

	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`

	Journal struct {
		Dir       string `yaml:"dir"`
		ReportDir string `yaml:"report_dir"`
	} `yaml:"journal"`
}

func (c *Config) Validate() error {
	if _, err := types.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.BrokerMode != "DRY_RUN" && c.BrokerMode != "LIVE" {
		return fmt.Errorf("invalid broker_mode '%s': must be 'DRY_RUN' or 'LIVE'", c.BrokerMode)
	}
	if c.DataSource != "STATIC" && c.DataSource != "LIVE" {
		return fmt.Errorf("invalid data_source '%s': must be 'STATIC' or 'LIVE'", c.DataSource)
	}
	if c.Capital <= 0 {
		return fmt.Errorf("capital must be positive, got %.2f", c.Capital)
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade > 1 {
		return fmt.Errorf("risk_per_trade must be in (0,1], got %.4f", c.RiskPerTrade)
	}
	for name, lim := range map[string]float64{
		"risk.per_trade_limit": c.Risk.PerTradeLimit,
		"risk.daily_limit":     c.Risk.DailyLimit,
		"risk.weekly_limit":    c.Risk.WeeklyLimit,
	} {
		if lim <= 0 || lim > 1 {
			return fmt.Errorf("%s must be in (0,1], got %.4f", name, lim)
		}
	}
	if c.Edge.Gate != "RULES" && c.Edge.Gate != "MODEL" {
		return fmt.Errorf("edge.gate must be 'RULES' or 'MODEL', got '%s'", c.Edge.Gate)
	}
	if c.Edge.MinProbability <= 0 || c.Edge.MinProbability >= 1 {
		return fmt.Errorf("edge.min_probability must be in (0,1), got %.3f", c.Edge.MinProbability)
	}
	for name, mc := range map[string]*ModeConfig{"income": &c.Income, "turbo": &c.Turbo} {
		if len(mc.Symbols) == 0 {
			return fmt.Errorf("%s.symbols cannot be empty", name)
		}
		if len(mc.Strategies) == 0 {
			return fmt.Errorf("%s.strategies cannot be empty", name)
		}
		if mc.MaxDailyTrades <= 0 {
			return fmt.Errorf("%s.max_daily_trades must be positive, got %d", name, mc.MaxDailyTrades)
		}
		if mc.DTEMin < 0 || mc.DTEMax < mc.DTEMin {
			return fmt.Errorf("%s dte range invalid: min=%d max=%d", name, mc.DTEMin, mc.DTEMax)
		}
		if mc.PositionScale <= 0 {
			return fmt.Errorf("%s.position_scale must be positive, got %.2f", name, mc.PositionScale)
		}
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = string(types.ModeIncome)
	}
	if c.BrokerMode == "" {
		c.BrokerMode = "DRY_RUN"
	}
	if c.DataSource == "" {
		c.DataSource = "STATIC"
	}
	if c.PollSeconds == 0 {
		c.PollSeconds = 60
	}
	if c.Capital == 0 {
		c.Capital = 5000
	}
	if c.RiskPerTrade == 0 {
		c.RiskPerTrade = 0.01
	}
	if c.ProfitTarget == 0 {
		c.ProfitTarget = 0.25
	}
	if c.StopLossMultiplier == 0 {
		c.StopLossMultiplier = 1.0
	}
	if c.Risk.PerTradeLimit == 0 {
		c.Risk.PerTradeLimit = 0.01
	}
	if c.Risk.DailyLimit == 0 {
		c.Risk.DailyLimit = 0.06
	}
	if c.Risk.WeeklyLimit == 0 {
		c.Risk.WeeklyLimit = 0.05
	}
	if c.Market.Timezone == "" {
		c.Market.Timezone = "America/New_York"
	}
	if c.Market.Open == "" {
		c.Market.Open = "09:30"
	}
	if c.Market.Close == "" {
		c.Market.Close = "16:00"
	}
	if c.Edge.Gate == "" {
		c.Edge.Gate = "RULES"
	}
	if c.Edge.MinProbability == 0 {
		c.Edge.MinProbability = 0.55
	}
	if len(c.Income.Symbols) == 0 {
		c.Income = ModeConfig{
			Symbols:        []string{"SPY", "QQQ", "IWM"},
			Strategies:     []string{"iron_condor", "credit_spread", "covered_call"},
			DTEMin:         1,
			DTEMax:         7,
			MaxDailyTrades: 2,
			PositionScale:  1.0,
		}
	}
	if len(c.Turbo.Symbols) == 0 {
		c.Turbo = ModeConfig{
			Symbols:           []string{"SPY"},
			Strategies:        []string{"iron_condor", "credit_spread"},
			DTEMin:            0,
			DTEMax:            0,
			MaxDailyTrades:    1,
			PositionScale:     1.0,
			CompoundThreshold: 3,
		}
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8000"
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "logs"
	}
	if c.Journal.ReportDir == "" {
		c.Journal.ReportDir = "reports"
	}
}
