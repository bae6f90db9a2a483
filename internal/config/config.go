package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	StateName         string
	Archive           string
	In                string

	Factory          string
	ReferenceToken   string
	AnchorToken      string
	PairSyncMinBlock uint64
	PinBlock         bool

	MetricsAddr string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("state-name", "lending")
	v.SetDefault("pair-sync-min-block", uint64(0))
	v.SetDefault("pin-block", true)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-max-size-mb", 100)
	v.SetDefault("log-max-backups", 5)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		BatchSize:         v.GetUint64("batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		StateName:         v.GetString("state-name"),
		Archive:           v.GetString("archive"),
		In:                v.GetString("in"),
		Factory:           v.GetString("factory"),
		ReferenceToken:    v.GetString("reference-token"),
		AnchorToken:       v.GetString("anchor-token"),
		PairSyncMinBlock:  v.GetUint64("pair-sync-min-block"),
		PinBlock:          v.GetBool("pin-block"),
		MetricsAddr:       v.GetString("metrics-addr"),
		LogLevel:          v.GetString("log-level"),
		LogFile:           v.GetString("log-file"),
		LogMaxSizeMB:      v.GetInt("log-max-size-mb"),
		LogMaxBackups:     v.GetInt("log-max-backups"),
	}

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.Factory == "" {
		return fmt.Errorf("factory address is required")
	}
	if c.ReferenceToken == "" {
		return fmt.Errorf("reference token address is required")
	}
	if c.AnchorToken == "" {
		return fmt.Errorf("anchor token address is required")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if c.ToBlock != 0 && c.ToBlock < c.FromBlock {
		return fmt.Errorf("to block must be >= from block")
	}
	if c.PGDSN == "" && c.CheckpointEnabled && c.Checkpoint == "" {
		return fmt.Errorf("checkpoint path is required when checkpointing without a database")
	}
	return nil
}
