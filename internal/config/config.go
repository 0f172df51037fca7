package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/medisched/clinic-api/internal/email"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Email     email.SMTPConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

func (c JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryHours) * time.Hour
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// SchedulerConfig holds the booking policy. ConflictWindowMinutes defaults
// to 30; BlockCancelledSlots keeps cancelled appointments blocking their
// old time, the conservative legacy behavior.
type SchedulerConfig struct {
	ConflictWindowMinutes int  `mapstructure:"conflict_window_minutes"`
	BlockCancelledSlots   bool `mapstructure:"block_cancelled_slots"`
}

func (c SchedulerConfig) ConflictWindow() time.Duration {
	return time.Duration(c.ConflictWindowMinutes) * time.Minute
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("scheduler.conflict_window_minutes", 30)
	viper.SetDefault("scheduler.block_cancelled_slots", false)
	viper.SetDefault("jwt.expiry_hours", 24)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
