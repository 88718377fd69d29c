package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/ghostconnect/internal/agent"
	"github.com/danmuck/ghostconnect/internal/tunnel"
)

// Config configures the supervisor runtime: which agent to invoke, how long
// to wait for it, and where the admin surface listens.
type Config struct {
	AgentPath    string
	AgentArgs    []string
	AgentTimeout time.Duration
	BusyPolicy   tunnel.BusyPolicy
	ListenAddr   string
	CorsOrigins  []string
	SSH          SSHConfig
}

// SSHConfig selects the remote agent runner when enabled. AgentPath then
// names the agent executable on the remote host.
type SSHConfig struct {
	Enabled                     bool
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	KeyPassphrase               string
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	DialTimeout                 time.Duration
}

// Runtime defaults: local agent resolved from PATH, bounded 30s wait,
// blocking busy policy, loopback admin listener.
func Default() Config {
	return Config{
		AgentPath:    "ghost-agent",
		AgentTimeout: 30 * time.Second,
		BusyPolicy:   tunnel.BusyBlock,
		ListenAddr:   "127.0.0.1:7420",
		CorsOrigins:  []string{},
		SSH: SSHConfig{
			DialTimeout: 10 * time.Second,
		},
	}
}

type fileConfig struct {
	AgentPath    string   `toml:"agent_path"`
	AgentArgs    []string `toml:"agent_args"`
	AgentTimeout string   `toml:"agent_timeout"`
	BusyPolicy   string   `toml:"busy_policy"`
	ListenAddr   string   `toml:"listen_addr"`
	CorsOrigins  []string `toml:"cors_origins"`

	SSHEnabled        bool   `toml:"ssh_enabled"`
	SSHHost           string `toml:"ssh_host"`
	SSHPort           string `toml:"ssh_port"`
	SSHUser           string `toml:"ssh_user"`
	SSHKeyPath        string `toml:"ssh_key_path"`
	SSHKeyPassphrase  string `toml:"ssh_key_passphrase"`
	SSHKnownHostsPath string `toml:"ssh_known_hosts"`
	SSHInsecure       bool   `toml:"ssh_insecure_skip_host_key_checking"`
	SSHDialTimeout    string `toml:"ssh_dial_timeout"`
}

// Load reads a TOML config and overlays defined keys onto the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("agent_path") {
		cfg.AgentPath = strings.TrimSpace(raw.AgentPath)
	}
	if meta.IsDefined("agent_args") {
		cfg.AgentArgs = normalizeList(raw.AgentArgs)
	}
	if meta.IsDefined("agent_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.AgentTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse agent_timeout: %w", err)
		}
		cfg.AgentTimeout = d
	}
	if meta.IsDefined("busy_policy") {
		cfg.BusyPolicy = tunnel.BusyPolicy(strings.TrimSpace(raw.BusyPolicy))
	}
	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}

	if meta.IsDefined("ssh_enabled") {
		cfg.SSH.Enabled = raw.SSHEnabled
	}
	if meta.IsDefined("ssh_host") {
		cfg.SSH.Host = strings.TrimSpace(raw.SSHHost)
	}
	if meta.IsDefined("ssh_port") {
		cfg.SSH.Port = strings.TrimSpace(raw.SSHPort)
	}
	if meta.IsDefined("ssh_user") {
		cfg.SSH.User = strings.TrimSpace(raw.SSHUser)
	}
	if meta.IsDefined("ssh_key_path") {
		cfg.SSH.KeyPath = strings.TrimSpace(raw.SSHKeyPath)
	}
	if meta.IsDefined("ssh_key_passphrase") {
		cfg.SSH.KeyPassphrase = raw.SSHKeyPassphrase
	}
	if meta.IsDefined("ssh_known_hosts") {
		cfg.SSH.KnownHostsPath = strings.TrimSpace(raw.SSHKnownHostsPath)
	}
	if meta.IsDefined("ssh_insecure_skip_host_key_checking") {
		cfg.SSH.InsecureSkipHostKeyChecking = raw.SSHInsecure
	}
	if meta.IsDefined("ssh_dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.SSHDialTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse ssh_dial_timeout: %w", err)
		}
		cfg.SSH.DialTimeout = d
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.AgentPath) == "" {
		return fmt.Errorf("config missing agent_path")
	}
	switch cfg.BusyPolicy {
	case tunnel.BusyBlock, tunnel.BusyReject:
	default:
		return fmt.Errorf("invalid busy_policy %q (want %q or %q)",
			cfg.BusyPolicy, tunnel.BusyBlock, tunnel.BusyReject)
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("config missing listen_addr")
	}
	if cfg.SSH.Enabled {
		if strings.TrimSpace(cfg.SSH.Host) == "" {
			return fmt.Errorf("ssh_host is required when ssh_enabled")
		}
		if strings.TrimSpace(cfg.SSH.User) == "" {
			return fmt.Errorf("ssh_user is required when ssh_enabled")
		}
		if strings.TrimSpace(cfg.SSH.KeyPath) == "" {
			return fmt.Errorf("ssh_key_path is required when ssh_enabled")
		}
	}
	return nil
}

// Runner builds the agent runner this config selects.
func (c Config) Runner() agent.Runner {
	if c.SSH.Enabled {
		runner := agent.SSHRunner{
			Host:                        c.SSH.Host,
			Port:                        c.SSH.Port,
			User:                        c.SSH.User,
			KeyPath:                     c.SSH.KeyPath,
			KnownHostsPath:              c.SSH.KnownHostsPath,
			InsecureSkipHostKeyChecking: c.SSH.InsecureSkipHostKeyChecking,
			DialTimeout:                 c.SSH.DialTimeout,
			Path:                        c.AgentPath,
			Args:                        c.AgentArgs,
		}
		if c.SSH.KeyPassphrase != "" {
			runner.Passphrase = []byte(c.SSH.KeyPassphrase)
		}
		return runner
	}
	return agent.ExecRunner{Path: c.AgentPath, Args: c.AgentArgs}
}

// Supervisor returns the tunnel policy slice of this config.
func (c Config) Supervisor() tunnel.Config {
	return tunnel.Config{
		AgentTimeout: c.AgentTimeout,
		Busy:         c.BusyPolicy,
	}
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
