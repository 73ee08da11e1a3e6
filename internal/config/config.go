package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRPCURL         = "http://127.0.0.1:8899"
	DefaultProgramID      = "Hus6vJsPgoTE86HUVzaJfJKZM8kfrk6y5LMwbGKhtr8H"
	DefaultTokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	DefaultKeypairPath    = "~/.config/solana/id.json"
)

type RPCConfig struct {
	URL          string        `yaml:"url"`
	Commitment   string        `yaml:"commitment"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimitRPS float64       `yaml:"rate_limit_rps"`
	RateBurst    int           `yaml:"rate_burst"`
}

type WalletConfig struct {
	KeypairPath  string `yaml:"keypair_path"`
	SecretKeyB58 string `yaml:"secret_key_b58"`
}

type ProgramConfig struct {
	ProgramID      string `yaml:"program_id"`
	TokenProgramID string `yaml:"token_program_id"`
}

type FeesConfig struct {
	PriorityMicrolamports uint64 `yaml:"priority_microlamports"`
	ComputeUnitLimit      uint32 `yaml:"compute_unit_limit"`
}

type ConfirmConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type WatchConfig struct {
	Interval  time.Duration `yaml:"interval"`
	JitterPct float64       `yaml:"jitter_pct"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|text
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type Config struct {
	RPC           RPCConfig     `yaml:"rpc"`
	Wallet        WalletConfig  `yaml:"wallet"`
	Program       ProgramConfig `yaml:"program"`
	Fees          FeesConfig    `yaml:"fees"`
	Confirm       ConfirmConfig `yaml:"confirm"`
	MaxRetries    int           `yaml:"max_retries"`
	SkipPreflight bool          `yaml:"skip_preflight"`
	Watch         WatchConfig   `yaml:"watch"`
	Logging       LoggingConfig `yaml:"logging"`
	Metrics       MetricsConfig `yaml:"metrics"`
}

// Load reads the YAML file at path, applies environment overrides and fills
// defaults. An empty path builds the config from defaults and environment only.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	// Anchor provider variables first; RPC_URL overrides them.
	if v := os.Getenv("ANCHOR_PROVIDER_URL"); v != "" {
		c.RPC.URL = v
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		c.RPC.URL = v
	}
	if v := os.Getenv("ANCHOR_WALLET"); v != "" {
		c.Wallet.KeypairPath = v
	}
	if v := os.Getenv("SECRET_KEY_B58"); v != "" {
		c.Wallet.SecretKeyB58 = v
	}
	if v := os.Getenv("RENTSOL_PROGRAM_ID"); v != "" {
		c.Program.ProgramID = v
	}
}

func (c *Config) applyDefaults() {
	if c.RPC.URL == "" {
		c.RPC.URL = DefaultRPCURL
	}
	if c.RPC.Commitment == "" {
		c.RPC.Commitment = "confirmed"
	}
	if c.RPC.Timeout == 0 {
		c.RPC.Timeout = 10 * time.Second
	}
	if c.RPC.RateLimitRPS == 0 {
		c.RPC.RateLimitRPS = 10
	}
	if c.RPC.RateBurst == 0 {
		c.RPC.RateBurst = 5
	}
	if c.Wallet.KeypairPath == "" && c.Wallet.SecretKeyB58 == "" {
		c.Wallet.KeypairPath = DefaultKeypairPath
	}
	if c.Program.ProgramID == "" {
		c.Program.ProgramID = DefaultProgramID
	}
	if c.Program.TokenProgramID == "" {
		c.Program.TokenProgramID = DefaultTokenProgramID
	}
	if c.Confirm.Timeout == 0 {
		c.Confirm.Timeout = 30 * time.Second
	}
	if c.Confirm.PollInterval == 0 {
		c.Confirm.PollInterval = time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Watch.Interval == 0 {
		c.Watch.Interval = 30 * time.Second
	}
	if c.Watch.JitterPct == 0 {
		c.Watch.JitterPct = 0.2
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the fields that would otherwise fail deep inside an RPC call.
func (c *Config) Validate() error {
	if c.RPC.URL == "" {
		return errors.New("rpc.url required")
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment: unsupported value %q", c.RPC.Commitment)
	}
	if _, err := solana.PublicKeyFromBase58(c.Program.ProgramID); err != nil {
		return fmt.Errorf("invalid program.program_id: %w", err)
	}
	if _, err := solana.PublicKeyFromBase58(c.Program.TokenProgramID); err != nil {
		return fmt.Errorf("invalid program.token_program_id: %w", err)
	}
	if c.Watch.JitterPct < 0 || c.Watch.JitterPct >= 1 {
		return fmt.Errorf("watch.jitter_pct must be in [0,1), got %v", c.Watch.JitterPct)
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries must not be negative")
	}
	return nil
}

// ProgramID returns the parsed program id. Validate must have passed.
func (c *Config) ProgramID() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.Program.ProgramID)
}

// TokenProgramID returns the parsed token program id. Validate must have passed.
func (c *Config) TokenProgramID() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.Program.TokenProgramID)
}
