package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config represents the complete swarmops orchestrator configuration.
type Config struct {
	DataDir       string `mapstructure:"data_dir"`
	ProjectsDir   string `mapstructure:"projects_dir"`
	DashboardPath string `mapstructure:"dashboard_path"`
	Port          int    `mapstructure:"port"`

	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Worktree WorktreeConfig `mapstructure:"worktree"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Review   ReviewConfig   `mapstructure:"review"`
}

// GatewayConfig controls how the orchestrator reaches the agent gateway
// (OpenClaw). Bound from OPENCLAW_GATEWAY_URL / OPENCLAW_GATEWAY_TOKEN.
type GatewayConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// WorktreeConfig controls worktree creation for dispatched workers.
type WorktreeConfig struct {
	// Root is the directory under which per-run/per-worker worktrees are
	// created: <root>/<runId>/<workerId>. Bound from SWARMOPS_WORKTREE_DIR.
	Root string `mapstructure:"root"`
	// CopyLocalFiles lists gitignored files (relative to the repo root) to
	// propagate into every new worktree, e.g. local agent instruction files.
	CopyLocalFiles []string             `mapstructure:"copy_local_files"`
	SparseCheckout SparseCheckoutConfig `mapstructure:"sparse_checkout"`
}

// SparseCheckoutConfig narrows a worker's checkout in large monorepos.
// Off by default.
type SparseCheckoutConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	ConeMode      bool     `mapstructure:"cone_mode"`
	Directories   []string `mapstructure:"directories"`
	AlwaysInclude []string `mapstructure:"always_include"`
}

// DispatchConfig controls the guarded gateway client: circuit breaker,
// rate limiter, and backoff discipline around agent spawn calls.
type DispatchConfig struct {
	// APIToken authenticates the orchestrator's own inbound callback
	// surface. Bound from SWARMOPS_API_TOKEN.
	APIToken string `mapstructure:"api_token"`

	MaxConsecutiveFailures int     `mapstructure:"max_consecutive_failures"`
	CircuitOpenDurationMs  int     `mapstructure:"circuit_open_duration_ms"`
	MaxConcurrentSpawns    int     `mapstructure:"max_concurrent_spawns"`
	SpawnWindowMs          int     `mapstructure:"spawn_window_ms"`
	BackoffBaseMs          int     `mapstructure:"backoff_base_ms"`
	BackoffMaxMs           int     `mapstructure:"backoff_max_ms"`
	BackoffMultiplier      float64 `mapstructure:"backoff_multiplier"`

	// SkipVerify disables post-spawn session verification. Default false.
	SkipVerify bool `mapstructure:"skip_verify"`
	// SpawnMaxRetries bounds verification retries before SPAWN_VERIFICATION_FAILED.
	SpawnMaxRetries int `mapstructure:"spawn_max_retries"`
}

// TrackerConfig controls the worker tracker's polling loop.
type TrackerConfig struct {
	// PollIntervalMs is the delay between successive sweeps of the tracked
	// session set.
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// MaxTrackTimeMs bounds how long a session may be tracked before it is
	// dropped with a warning rather than waited on forever.
	MaxTrackTimeMs int `mapstructure:"max_track_time_ms"`
}

// PollInterval returns the tracker poll interval as a time.Duration.
func (c *TrackerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// MaxTrackTime returns the tracker's hard tracking ceiling as a time.Duration.
func (c *TrackerConfig) MaxTrackTime() time.Duration {
	return time.Duration(c.MaxTrackTimeMs) * time.Millisecond
}

// LoggingConfig controls the structured logger and its rotation behavior.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// ReviewConfig controls the sequential review chain engine.
type ReviewConfig struct {
	// BaseChain is the reviewer role order before any conditional reviewer
	// is appended (default: ["reviewer", "security-reviewer"]).
	BaseChain []string `mapstructure:"base_chain"`
	// FrontendExtensions are file-name suffixes that trigger the optional
	// "designer" reviewer when present in a phase's changed-file set.
	FrontendExtensions []string `mapstructure:"frontend_extensions"`
	// FrontendPathMarkers are path substrings with the same effect.
	FrontendPathMarkers []string `mapstructure:"frontend_path_markers"`
	// RolePrompts holds per-role prompt template overrides; empty entries
	// fall back to the built-in role prompt.
	RolePrompts map[string]string `mapstructure:"role_prompts"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		DataDir:       filepath.Join(home, ".swarmops"),
		ProjectsDir:   filepath.Join(home, ".swarmops", "projects"),
		DashboardPath: "",
		Port:          8080,
		Gateway: GatewayConfig{
			URL:   "",
			Token: "",
		},
		Worktree: WorktreeConfig{
			Root:           filepath.Join(home, ".swarmops", "worktrees"),
			CopyLocalFiles: []string{},
			SparseCheckout: SparseCheckoutConfig{
				Enabled:       false,
				ConeMode:      true,
				Directories:   []string{},
				AlwaysInclude: []string{},
			},
		},
		Dispatch: DispatchConfig{
			APIToken:                "",
			MaxConsecutiveFailures:  5,
			CircuitOpenDurationMs:   60_000,
			MaxConcurrentSpawns:     5,
			SpawnWindowMs:           20_000,
			BackoffBaseMs:           2000,
			BackoffMaxMs:            60_000,
			BackoffMultiplier:       2,
			SkipVerify:              false,
			SpawnMaxRetries:         3,
		},
		Tracker: TrackerConfig{
			PollIntervalMs: 10_000,
			MaxTrackTimeMs: 30 * 60_000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		Review: ReviewConfig{
			BaseChain:           []string{"reviewer", "security-reviewer"},
			FrontendExtensions:  []string{".vue", ".tsx", ".jsx", ".css", ".scss"},
			FrontendPathMarkers: []string{"components/", "pages/", "layouts/", "assets/"},
			RolePrompts:         map[string]string{},
		},
	}
}

// CircuitOpenDuration returns the circuit-open duration as a time.Duration.
func (c *DispatchConfig) CircuitOpenDuration() time.Duration {
	return time.Duration(c.CircuitOpenDurationMs) * time.Millisecond
}

// SpawnWindow returns the rate-limit sliding window as a time.Duration.
func (c *DispatchConfig) SpawnWindow() time.Duration {
	return time.Duration(c.SpawnWindowMs) * time.Millisecond
}

// BackoffDelay returns the backoff delay before the nth retry (1-indexed),
// min(backoffBaseMs * backoffMultiplier^(failures-1), backoffMaxMs).
func (c *DispatchConfig) BackoffDelay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	delay := float64(c.BackoffBaseMs)
	for i := 1; i < failures; i++ {
		delay *= c.BackoffMultiplier
		if delay >= float64(c.BackoffMaxMs) {
			delay = float64(c.BackoffMaxMs)
			break
		}
	}
	return time.Duration(delay) * time.Millisecond
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("data_dir", defaults.DataDir)
	viper.SetDefault("projects_dir", defaults.ProjectsDir)
	viper.SetDefault("dashboard_path", defaults.DashboardPath)
	viper.SetDefault("port", defaults.Port)

	viper.SetDefault("gateway.url", defaults.Gateway.URL)
	viper.SetDefault("gateway.token", defaults.Gateway.Token)

	viper.SetDefault("worktree.root", defaults.Worktree.Root)
	viper.SetDefault("worktree.copy_local_files", defaults.Worktree.CopyLocalFiles)
	viper.SetDefault("worktree.sparse_checkout.enabled", defaults.Worktree.SparseCheckout.Enabled)
	viper.SetDefault("worktree.sparse_checkout.cone_mode", defaults.Worktree.SparseCheckout.ConeMode)
	viper.SetDefault("worktree.sparse_checkout.directories", defaults.Worktree.SparseCheckout.Directories)
	viper.SetDefault("worktree.sparse_checkout.always_include", defaults.Worktree.SparseCheckout.AlwaysInclude)

	viper.SetDefault("dispatch.api_token", defaults.Dispatch.APIToken)
	viper.SetDefault("dispatch.max_consecutive_failures", defaults.Dispatch.MaxConsecutiveFailures)
	viper.SetDefault("dispatch.circuit_open_duration_ms", defaults.Dispatch.CircuitOpenDurationMs)
	viper.SetDefault("dispatch.max_concurrent_spawns", defaults.Dispatch.MaxConcurrentSpawns)
	viper.SetDefault("dispatch.spawn_window_ms", defaults.Dispatch.SpawnWindowMs)
	viper.SetDefault("dispatch.backoff_base_ms", defaults.Dispatch.BackoffBaseMs)
	viper.SetDefault("dispatch.backoff_max_ms", defaults.Dispatch.BackoffMaxMs)
	viper.SetDefault("dispatch.backoff_multiplier", defaults.Dispatch.BackoffMultiplier)
	viper.SetDefault("dispatch.skip_verify", defaults.Dispatch.SkipVerify)
	viper.SetDefault("dispatch.spawn_max_retries", defaults.Dispatch.SpawnMaxRetries)

	viper.SetDefault("tracker.poll_interval_ms", defaults.Tracker.PollIntervalMs)
	viper.SetDefault("tracker.max_track_time_ms", defaults.Tracker.MaxTrackTimeMs)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	viper.SetDefault("review.base_chain", defaults.Review.BaseChain)
	viper.SetDefault("review.frontend_extensions", defaults.Review.FrontendExtensions)
	viper.SetDefault("review.frontend_path_markers", defaults.Review.FrontendPathMarkers)
	viper.SetDefault("review.role_prompts", defaults.Review.RolePrompts)

	// Environment variables are the authoritative configuration surface
	// (spec §6); bind them over the mapstructure keys above.
	_ = viper.BindEnv("data_dir", "ORCHESTRATOR_DATA_DIR")
	_ = viper.BindEnv("projects_dir", "PROJECTS_DIR")
	_ = viper.BindEnv("dashboard_path", "DASHBOARD_PATH")
	_ = viper.BindEnv("port", "PORT")
	_ = viper.BindEnv("gateway.url", "OPENCLAW_GATEWAY_URL")
	_ = viper.BindEnv("gateway.token", "OPENCLAW_GATEWAY_TOKEN")
	_ = viper.BindEnv("worktree.root", "SWARMOPS_WORKTREE_DIR")
	_ = viper.BindEnv("dispatch.api_token", "SWARMOPS_API_TOKEN")
}

// LoadFile merges the config file at path into viper's active configuration.
// YAML and TOML are both supported; TOML files are decoded with
// BurntSushi/toml and merged as a raw map, since viper's own TOML backend
// is keyed to a different parser than the one this format is grounded on.
func LoadFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var raw map[string]any
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return fmt.Errorf("failed to decode toml config %s: %w", path, err)
		}
		return viper.MergeConfigMap(raw)
	default:
		viper.SetConfigFile(path)
		return viper.MergeInConfig()
	}
}

// Load reads the configuration from viper into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (convenience function); falls back
// to defaults if unmarshaling fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// DataDirectory resolves the orchestrator's data directory, defaulting to
// ~/.swarmops when unset.
func DataDirectory() string {
	if dir := os.Getenv("ORCHESTRATOR_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swarmops"
	}
	return filepath.Join(home, ".swarmops")
}

// ConfigFile returns the path to the default config file searched for at
// startup: $ORCHESTRATOR_DATA_DIR/swarmops.yaml, falling back to
// ./swarmops.yaml.
func ConfigFile() string {
	candidate := filepath.Join(DataDirectory(), "swarmops.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return "swarmops.yaml"
}

// ValidReviewRoles returns the set of built-in reviewer role names.
func ValidReviewRoles() []string {
	return []string{"reviewer", "security-reviewer", "designer", "fixer", "conflict-resolver", "builder"}
}

// IsValidReviewRole checks if the given role is a recognized built-in.
// Operators may still configure custom roles via RolePrompts; this is
// advisory, used only to warn on typos in BaseChain.
func IsValidReviewRole(role string) bool {
	return slices.Contains(ValidReviewRoles(), role)
}
