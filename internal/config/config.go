package config

import (
	"fmt"
	"os"
	"time"

	"habitrack/pkg/config"
)

type StreakConfig struct {
	// Timezone names the IANA zone whose calendar defines a day.
	Timezone string `yaml:"timezone"`
}

type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

type Config struct {
	DB     config.DBConfig     `yaml:"db"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	Server config.ServerConfig `yaml:"server"`
	Streak StreakConfig        `yaml:"streak"`
	Outbox OutboxConfig        `yaml:"outbox"`
}

// Load 使用统一配置中心加载配置，环境变量覆盖优先级最高
func Load() (*Config, error) {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	var cfg Config
	if err := config.Decode(env, configDir, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	if tz := os.Getenv("STREAK_TIMEZONE"); tz != "" {
		cfg.Streak.Timezone = tz
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret must be set")
	}
	secrets := map[string]string{
		"jwt.secret":     cfg.JWT.Secret,
		"db.password":    cfg.DB.Password,
		"redis.password": cfg.Redis.Password,
		"mq.url":         cfg.MQ.URL,
	}
	for key, v := range secrets {
		if config.Unresolved(v) {
			return nil, fmt.Errorf("%s has an unresolved placeholder %q", key, v)
		}
	}
	return &cfg, nil
}

// Location resolves streak.timezone, UTC when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Streak.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Streak.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid streak.timezone %q: %w", c.Streak.Timezone, err)
	}
	return loc, nil
}
