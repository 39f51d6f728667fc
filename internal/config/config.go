// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads novaprobe settings from a file, NOVAPROBE_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/novaprobe/pkg/controller"
	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/Thermoquad/novaprobe/pkg/session"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "NOVAPROBE"

type SerialConfig struct {
	Port     string        `mapstructure:"port"`
	Ports    []string      `mapstructure:"ports"`
	BaudRate int           `mapstructure:"baudrate"`
	Settle   time.Duration `mapstructure:"settle"`
	Pace     float64       `mapstructure:"pace"`
}

type WebSocketConfig struct {
	URL           string        `mapstructure:"url"`
	Username      string        `mapstructure:"username"`
	SkipSSLVerify bool          `mapstructure:"no_ssl_verify"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type TopologyConfig struct {
	ReceiverCards int      `mapstructure:"receiver_cards"`
	Modules       int      `mapstructure:"modules"`
	DataGroups    int      `mapstructure:"data_groups"`
	LANPorts      int      `mapstructure:"lan_ports"`
	IgnoredLines  []string `mapstructure:"ignored_lines"`
}

type FlashConfig struct {
	Wait time.Duration `mapstructure:"wait"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Workers  int           `mapstructure:"workers"`
}

type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
}

type Config struct {
	Serial    SerialConfig    `mapstructure:"serial"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Topology  TopologyConfig  `mapstructure:"topology"`
	Flash     FlashConfig     `mapstructure:"flash"`
	Poll      PollConfig      `mapstructure:"poll"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// FlagKeys maps command line flag names to the config keys they override
var FlagKeys = map[string]string{
	"port":          "serial.port",
	"baud":          "serial.baudrate",
	"settle":        "serial.settle",
	"url":           "websocket.url",
	"username":      "websocket.username",
	"no-ssl-verify": "websocket.no_ssl_verify",
	"log-level":     "logging.level",
}

// Load reads path (or ./novaprobe.yaml, ./configs/novaprobe.yaml when empty),
// applies NOVAPROBE_* environment overrides and then any changed flags in
// flags. A missing default config file is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("novaprobe")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.ports", []string{})
	v.SetDefault("serial.baudrate", session.DefaultBaudRate)
	v.SetDefault("serial.settle", session.DefaultSettle)
	v.SetDefault("serial.pace", 0)

	v.SetDefault("websocket.url", "")
	v.SetDefault("websocket.username", "")
	v.SetDefault("websocket.no_ssl_verify", false)
	v.SetDefault("websocket.timeout", "10s")

	v.SetDefault("topology.receiver_cards", 0)
	v.SetDefault("topology.modules", 4)
	v.SetDefault("topology.data_groups", 4)
	v.SetDefault("topology.lan_ports", 0)
	v.SetDefault("topology.ignored_lines", novastar.DefaultIgnoredLines)

	v.SetDefault("flash.wait", controller.DefaultFlashWait)

	v.SetDefault("poll.interval", "20m")
	v.SetDefault("poll.workers", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 7)
	v.SetDefault("logging.file.max_age", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("http.addr", ":9360")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "novaprobe:")
	v.SetDefault("redis.lock_ttl", "2m")
}

// Validate rejects settings no link or sweep can run with
func (c *Config) Validate() error {
	switch {
	case c.Serial.BaudRate <= 0:
		return fmt.Errorf("serial.baudrate must be positive, got %d", c.Serial.BaudRate)
	case c.Serial.Settle < 0:
		return fmt.Errorf("serial.settle must not be negative, got %v", c.Serial.Settle)
	case c.Topology.Modules <= 0:
		return fmt.Errorf("topology.modules must be positive, got %d", c.Topology.Modules)
	case c.Topology.DataGroups < 0:
		return fmt.Errorf("topology.data_groups must not be negative, got %d", c.Topology.DataGroups)
	case c.Topology.LANPorts > novastar.MaxLANPorts:
		return fmt.Errorf("topology.lan_ports must be at most %d, got %d", novastar.MaxLANPorts, c.Topology.LANPorts)
	case c.Poll.Interval <= 0:
		return fmt.Errorf("poll.interval must be positive, got %v", c.Poll.Interval)
	}
	for _, line := range c.Topology.IgnoredLines {
		if !isSignalLine(line) {
			return fmt.Errorf("topology.ignored_lines: unknown signal line %q", line)
		}
	}
	return nil
}

func isSignalLine(name string) bool {
	for _, l := range novastar.SignalLines {
		if l == name {
			return true
		}
	}
	return false
}

// SessionConfig returns the link parameters
func (c *Config) SessionConfig() session.Config {
	return session.Config{BaudRate: c.Serial.BaudRate, Settle: c.Serial.Settle, Pace: c.Serial.Pace}
}

// SweepTopology returns the installation layout the sweep is checked against
func (c *Config) SweepTopology() controller.Topology {
	return controller.Topology{
		ExpectedReceivers: c.Topology.ReceiverCards,
		LANPorts:          c.Topology.LANPorts,
		Modules:           c.Topology.Modules,
		DataGroups:        c.Topology.DataGroups,
		IgnoredLines:      append([]string(nil), c.Topology.IgnoredLines...),
	}
}
