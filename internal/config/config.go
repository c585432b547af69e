package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Report   ReportConfig   `mapstructure:"report"`
	Email    EmailConfig    `mapstructure:"email"`
	Retry    RetryConfig    `mapstructure:"retry"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Path        string        `mapstructure:"path"`
	JournalMode string        `mapstructure:"journal_mode"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	LockPath    string        `mapstructure:"lock_path"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

type TelegramConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Token         string `mapstructure:"token"`
	ChatID        int64  `mapstructure:"chat_id"`
	BlockTradeTag string `mapstructure:"block_trade_tag"`
	SpotPriceTag  string `mapstructure:"spot_price_tag"`
}

// AlertConfig is the single-trade threshold surface. Volume thresholds are
// per asset; the premium threshold is one USD constant for both.
type AlertConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	MonitoredExchange  string  `mapstructure:"monitored_exchange"`
	BTCVolumeThreshold float64 `mapstructure:"btc_volume_threshold"`
	ETHVolumeThreshold float64 `mapstructure:"eth_volume_threshold"`
	ETHVolumeTest      float64 `mapstructure:"eth_volume_threshold_test"`
	TestMode           bool    `mapstructure:"test_mode"`
	PremiumUSD         float64 `mapstructure:"premium_usd_threshold"`
}

type ReportConfig struct {
	Timezone    string        `mapstructure:"timezone"`
	AnchorHour  int           `mapstructure:"anchor_hour"`
	AnchorMin   int           `mapstructure:"anchor_minute"`
	WindowHours int           `mapstructure:"window_hours"`
	SendTime    string        `mapstructure:"send_time"`
	TopN        int           `mapstructure:"top_n"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
}

type EmailConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	SMTPHost       string   `mapstructure:"smtp_host"`
	SMTPPort       int      `mapstructure:"smtp_port"`
	Sender         string   `mapstructure:"sender"`
	Password       string   `mapstructure:"password"`
	Recipients     []string `mapstructure:"recipients"`
	TestRecipients []string `mapstructure:"test_recipients"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// SendHourMinute parses report.send_time ("HH:MM").
func (r ReportConfig) SendHourMinute() (int, int, error) {
	parts := strings.SplitN(r.SendTime, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("config: invalid send_time %q", r.SendTime)
	}
	var h, m int
	if _, err := fmt.Sscanf(r.SendTime, "%d:%d", &h, &m); err != nil {
		return 0, 0, fmt.Errorf("config: invalid send_time %q: %w", r.SendTime, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("config: send_time %q out of range", r.SendTime)
	}
	return h, m, nil
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.path", "data/reports.db")
	v.SetDefault("db.journal_mode", "WAL")
	v.SetDefault("db.busy_timeout", "10s")
	v.SetDefault("db.lock_path", "data/reports.lock")
	v.SetDefault("db.lock_timeout", "30s")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.block_trade_tag", "#block")
	v.SetDefault("telegram.spot_price_tag", "🏷️ Spot Prices")
	v.SetDefault("alert.enabled", true)
	v.SetDefault("alert.monitored_exchange", "Deribit")
	v.SetDefault("alert.btc_volume_threshold", 200)
	v.SetDefault("alert.eth_volume_threshold", 5000)
	v.SetDefault("alert.eth_volume_threshold_test", 1000)
	v.SetDefault("alert.test_mode", false)
	v.SetDefault("alert.premium_usd_threshold", 1_000_000)
	v.SetDefault("report.timezone", "Asia/Shanghai")
	v.SetDefault("report.anchor_hour", 16)
	v.SetDefault("report.anchor_minute", 0)
	v.SetDefault("report.window_hours", 24)
	v.SetDefault("report.send_time", "16:05")
	v.SetDefault("report.top_n", 3)
	v.SetDefault("report.heartbeat", "5m")
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.base_delay", "60s")
	v.SetDefault("retry.max_delay", "8m")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if _, _, err := cfg.Report.SendHourMinute(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
