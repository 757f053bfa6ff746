// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Pool configuration loaded from file and environment.

package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/momentics/hioload-pool/core/concurrency"
	"github.com/momentics/hioload-pool/internal/logging"
)

// PoolConfig contains all configuration for a pool process.
type PoolConfig struct {
	Pool    PoolSection    `mapstructure:"pool"`
	Logging LoggingSection `mapstructure:"logging"`
}

// PoolSection mirrors concurrency.Config in file form.
type PoolSection struct {
	Workers      int    `mapstructure:"workers"`
	IdleStrategy string `mapstructure:"idle_strategy"`
	Queue        string `mapstructure:"queue"`
	DrainOnClose bool   `mapstructure:"drain_on_close"`
	PinWorkers   bool   `mapstructure:"pin_workers"`
}

// LoggingSection contains logging-related configuration.
type LoggingSection struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadPoolConfig loads configuration from configPath.
// If configPath is empty, it looks for pool.yaml in ./config and the working directory.
// Environment variables with HIOLOAD_POOL_ prefix override file values.
func LoadPoolConfig(configPath string) (*PoolConfig, error) {
	v := viper.New()

	v.SetDefault("pool.workers", 0)
	v.SetDefault("pool.idle_strategy", "block")
	v.SetDefault("pool.queue", string(concurrency.QueueTwoLock))
	v.SetDefault("pool.drain_on_close", false)
	v.SetDefault("pool.pin_workers", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pool")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("HIOLOAD_POOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg PoolConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// PoolOptions converts the pool section to concurrency.Config.
func (c *PoolConfig) PoolOptions() (concurrency.Config, error) {
	idle, err := concurrency.ParseIdleStrategy(c.Pool.IdleStrategy)
	if err != nil {
		return concurrency.Config{}, err
	}
	if c.Pool.Workers < 0 {
		return concurrency.Config{}, fmt.Errorf("%w: %d", concurrency.ErrInvalidWorkerCount, c.Pool.Workers)
	}
	return concurrency.Config{
		Workers:      c.Pool.Workers,
		IdleStrategy: idle,
		DrainOnClose: c.Pool.DrainOnClose,
		PinWorkers:   c.Pool.PinWorkers,
		QueueKind:    concurrency.QueueKind(c.Pool.Queue),
	}, nil
}

// Logger builds the configured logger on stdout.
func (c *PoolConfig) Logger() (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewStdout(level, c.Logging.Format), nil
}
