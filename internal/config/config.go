package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	DB          DBConfig          `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Cron        CronConfig        `mapstructure:"cron"`
	Scheduling  SchedulingConfig  `mapstructure:"scheduling"`
	SpecialDays SpecialDaysConfig `mapstructure:"special_days"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
	// Timezone decides what "today" means for the sweep and the indifferent search.
	Timezone string `mapstructure:"timezone"`
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

// RedisConfig is optional; an empty Addr keeps locks and caches in process.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	LifecycleSweep string `mapstructure:"lifecycle_sweep"`
	SpecialDaySync string `mapstructure:"special_day_sync"`
}

type SchedulingConfig struct {
	SearchHorizonDays  int `mapstructure:"search_horizon_days"`
	WorkloadWindowDays int `mapstructure:"workload_window_days"`
	MaxOccurrences     int `mapstructure:"max_occurrences"`
}

type SpecialDaysConfig struct {
	ICSURL       string        `mapstructure:"ics_url"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	// Liturgical adds the computed Good Friday / Holy Saturday blackout days.
	Liturgical bool `mapstructure:"liturgical"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.timezone", "Europe/Paris")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "10m")
	v.SetDefault("redis.cache_ttl", "1h")
	v.SetDefault("cron.enabled", true)
	// Six fields: the runner is created with seconds enabled.
	v.SetDefault("cron.lifecycle_sweep", "0 15 0 * * *")
	v.SetDefault("cron.special_day_sync", "0 0 3 * * *")
	v.SetDefault("scheduling.search_horizon_days", 30)
	v.SetDefault("scheduling.workload_window_days", 30)
	v.SetDefault("scheduling.max_occurrences", 1000)
	v.SetDefault("special_days.ics_url", "")
	v.SetDefault("special_days.fetch_timeout", "15s")
	v.SetDefault("special_days.liturgical", true)

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

// Location resolves App.Timezone, falling back to UTC for empty or unknown names.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.App.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
