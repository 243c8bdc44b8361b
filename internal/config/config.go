// Package config assembles runtime configuration from .scheduler.yaml,
// SCHED_* environment variables, and CLI flags (layered by viper, with CLI
// flags winning), and still offers the teacher's plain .env loader for
// local runs that only want environment variables.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every knob spec.md §6 lists under "Configuration surface",
// plus the connection strings for the optional persistence/eventing
// backends.
type Config struct {
	LateDelayDays     float64 `mapstructure:"late_part_delay_days"`
	Debug             bool    `mapstructure:"debug"`
	MinMechanics      int     `mapstructure:"min_mechanics"`
	MaxMechanics      int     `mapstructure:"max_mechanics"`
	MinQuality        int     `mapstructure:"min_quality"`
	MaxQuality        int     `mapstructure:"max_quality"`
	MaxIterations     int     `mapstructure:"max_iterations"`
	AllowLateDelivery bool    `mapstructure:"allow_late_delivery"`

	DatabaseURL  string   `mapstructure:"database_url"`
	RedisAddr    string   `mapstructure:"redis_addr"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	HTTPAddr     string   `mapstructure:"http_addr"`
}

// Load reads configuration from viper — .scheduler.yaml, SCHED_* env vars,
// and any flags bound by the caller — applying built-in defaults for
// anything left unset.
func Load() Config {
	viper.SetDefault("late_part_delay_days", 1.0)
	viper.SetDefault("debug", false)
	viper.SetDefault("min_mechanics", 1)
	viper.SetDefault("max_mechanics", 50)
	viper.SetDefault("min_quality", 1)
	viper.SetDefault("max_quality", 20)
	viper.SetDefault("max_iterations", 300)
	viper.SetDefault("allow_late_delivery", false)
	viper.SetDefault("database_url", "")
	viper.SetDefault("redis_addr", "")
	viper.SetDefault("kafka_brokers", []string{})
	viper.SetDefault("http_addr", ":8080")

	viper.SetConfigName(".scheduler")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetEnvPrefix("SCHED")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // absent config file is fine; defaults + env apply

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}

// LoadEnv loads environment variables from a .env file into the process
// environment, for callers that prefer the teacher's plain-dotenv style
// over a .scheduler.yaml. System environment variables already set take
// precedence over the file.
func LoadEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: error reading .env file: %v\n", err)
	}
}
