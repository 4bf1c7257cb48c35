package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Treasury TreasuryConfig `mapstructure:"treasury"`
	Funding  FundingConfig  `mapstructure:"funding"`
	Notify   NotifyConfig   `mapstructure:"notify"`

	Settlement SettlementConfig `mapstructure:"settlement"`
	Vesting    VestingConfig    `mapstructure:"vesting"`
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
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend    string        `mapstructure:"backend"`
	RedisAddr  string        `mapstructure:"redis_addr"`
	RedisDB    int           `mapstructure:"redis_db"`
	BalanceTTL time.Duration `mapstructure:"balance_ttl"`
}

// TreasuryConfig carries the custody policy: allocation targets, multisig
// threshold, and the timelock tiers.
type TreasuryConfig struct {
	// AllocationBps maps category name to its target share in basis points.
	// Must sum to 10000; validated at startup and on every config update.
	AllocationBps map[string]int64 `mapstructure:"allocation_bps"`

	MultisigThreshold  int   `mapstructure:"multisig_threshold"`
	LargeWithdrawalBps int64 `mapstructure:"large_withdrawal_bps"`

	StandardDelay  time.Duration `mapstructure:"standard_delay"`
	LargeDelay     time.Duration `mapstructure:"large_delay"`
	EmergencyDelay time.Duration `mapstructure:"emergency_delay"`

	RecoveryRecipient string `mapstructure:"recovery_recipient"`

	// Programs seeds award programs at startup, keyed by program type.
	// Programs already in the store keep their current settings.
	Programs map[string]ProgramSeed `mapstructure:"programs"`
}

// ProgramSeed is one award program's startup configuration. Cap is a decimal
// string; a zero vesting duration means grants pay out immediately.
type ProgramSeed struct {
	Category string        `mapstructure:"category"`
	Cap      string        `mapstructure:"cap"`
	Vesting  time.Duration `mapstructure:"vesting"`
	Cliff    time.Duration `mapstructure:"cliff"`
}

type FundingConfig struct {
	SweepEnabled bool   `mapstructure:"sweep_enabled"`
	SweepSpec    string `mapstructure:"sweep_spec"`
}

type NotifyConfig struct {
	WebhookURL      string `mapstructure:"webhook_url"`
	TelegramToken   string `mapstructure:"telegram_token"`
	TelegramChatID  string `mapstructure:"telegram_chat_id"`
	ProjectName     string `mapstructure:"project_name"`
	DisableDispatch bool   `mapstructure:"disable_dispatch"`
}

type SettlementConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type VestingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRS")
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
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.balance_ttl", "30s")

	v.SetDefault("treasury.multisig_threshold", 2)
	v.SetDefault("treasury.large_withdrawal_bps", 1000)
	v.SetDefault("treasury.standard_delay", "48h")
	v.SetDefault("treasury.large_delay", "168h")
	v.SetDefault("treasury.emergency_delay", "24h")

	v.SetDefault("funding.sweep_enabled", true)
	v.SetDefault("funding.sweep_spec", "@every 5m")

	v.SetDefault("settlement.timeout", "15s")
	v.SetDefault("vesting.timeout", "15s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
