package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}

	if cfg.Dispatch.MaxConsecutiveFailures != 5 {
		t.Errorf("Dispatch.MaxConsecutiveFailures = %d, want 5", cfg.Dispatch.MaxConsecutiveFailures)
	}
	if cfg.Dispatch.CircuitOpenDurationMs != 60_000 {
		t.Errorf("Dispatch.CircuitOpenDurationMs = %d, want 60000", cfg.Dispatch.CircuitOpenDurationMs)
	}
	if cfg.Dispatch.MaxConcurrentSpawns != 5 {
		t.Errorf("Dispatch.MaxConcurrentSpawns = %d, want 5", cfg.Dispatch.MaxConcurrentSpawns)
	}
	if cfg.Dispatch.SpawnWindowMs != 20_000 {
		t.Errorf("Dispatch.SpawnWindowMs = %d, want 20000", cfg.Dispatch.SpawnWindowMs)
	}
	if cfg.Dispatch.BackoffBaseMs != 2000 {
		t.Errorf("Dispatch.BackoffBaseMs = %d, want 2000", cfg.Dispatch.BackoffBaseMs)
	}
	if cfg.Dispatch.BackoffMaxMs != 60_000 {
		t.Errorf("Dispatch.BackoffMaxMs = %d, want 60000", cfg.Dispatch.BackoffMaxMs)
	}
	if cfg.Dispatch.BackoffMultiplier != 2 {
		t.Errorf("Dispatch.BackoffMultiplier = %v, want 2", cfg.Dispatch.BackoffMultiplier)
	}
	if cfg.Dispatch.SkipVerify {
		t.Error("Dispatch.SkipVerify should be false by default")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging.MaxSizeMB = %d, want 10", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging.MaxBackups = %d, want 3", cfg.Logging.MaxBackups)
	}

	wantChain := []string{"reviewer", "security-reviewer"}
	if len(cfg.Review.BaseChain) != len(wantChain) {
		t.Fatalf("Review.BaseChain = %v, want %v", cfg.Review.BaseChain, wantChain)
	}
	for i, role := range wantChain {
		if cfg.Review.BaseChain[i] != role {
			t.Errorf("Review.BaseChain[%d] = %q, want %q", i, cfg.Review.BaseChain[i], role)
		}
	}

	if !cfg.Worktree.SparseCheckout.ConeMode {
		t.Error("Worktree.SparseCheckout.ConeMode should be true by default")
	}
	if cfg.Worktree.SparseCheckout.Enabled {
		t.Error("Worktree.SparseCheckout.Enabled should be false by default")
	}
}

func TestDispatchConfig_CircuitOpenDuration(t *testing.T) {
	cfg := DispatchConfig{CircuitOpenDurationMs: 60_000}
	if got := cfg.CircuitOpenDuration(); got != 60*time.Second {
		t.Errorf("CircuitOpenDuration() = %v, want %v", got, 60*time.Second)
	}
}

func TestDispatchConfig_SpawnWindow(t *testing.T) {
	cfg := DispatchConfig{SpawnWindowMs: 20_000}
	if got := cfg.SpawnWindow(); got != 20*time.Second {
		t.Errorf("SpawnWindow() = %v, want %v", got, 20*time.Second)
	}
}

func TestDispatchConfig_BackoffDelay(t *testing.T) {
	cfg := DispatchConfig{
		BackoffBaseMs:     2000,
		BackoffMaxMs:      60_000,
		BackoffMultiplier: 2,
	}

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{10, 60 * time.Second}, // capped at BackoffMaxMs
	}

	for _, tt := range tests {
		if got := cfg.BackoffDelay(tt.failures); got != tt.want {
			t.Errorf("BackoffDelay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestValidReviewRoles(t *testing.T) {
	roles := ValidReviewRoles()
	for _, want := range []string{"reviewer", "security-reviewer", "designer", "fixer"} {
		found := false
		for _, r := range roles {
			if r == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("ValidReviewRoles() missing %q", want)
		}
	}
}

func TestIsValidReviewRole(t *testing.T) {
	tests := []struct {
		role  string
		valid bool
	}{
		{"reviewer", true},
		{"security-reviewer", true},
		{"designer", true},
		{"bogus-role", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidReviewRole(tt.role); got != tt.valid {
			t.Errorf("IsValidReviewRole(%q) = %v, want %v", tt.role, got, tt.valid)
		}
	}
}

func TestDataDirectory(t *testing.T) {
	t.Run("with ORCHESTRATOR_DATA_DIR set", func(t *testing.T) {
		original := os.Getenv("ORCHESTRATOR_DATA_DIR")
		defer func() { _ = os.Setenv("ORCHESTRATOR_DATA_DIR", original) }()

		_ = os.Setenv("ORCHESTRATOR_DATA_DIR", "/custom/data")
		if got := DataDirectory(); got != "/custom/data" {
			t.Errorf("DataDirectory() = %q, want %q", got, "/custom/data")
		}
	})

	t.Run("without ORCHESTRATOR_DATA_DIR falls back to home", func(t *testing.T) {
		original := os.Getenv("ORCHESTRATOR_DATA_DIR")
		defer func() { _ = os.Setenv("ORCHESTRATOR_DATA_DIR", original) }()

		_ = os.Setenv("ORCHESTRATOR_DATA_DIR", "")
		home, _ := os.UserHomeDir()
		want := filepath.Join(home, ".swarmops")
		if got := DataDirectory(); got != want {
			t.Errorf("DataDirectory() = %q, want %q", got, want)
		}
	})
}

func TestGet(t *testing.T) {
	viper.Reset()
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	if cfg.Dispatch.MaxConsecutiveFailures != 5 {
		t.Errorf("Get().Dispatch.MaxConsecutiveFailures = %d, want 5", cfg.Dispatch.MaxConsecutiveFailures)
	}
}

func TestSetDefaults_EnvBinding(t *testing.T) {
	viper.Reset()
	SetDefaults()

	original := os.Getenv("OPENCLAW_GATEWAY_URL")
	defer func() { _ = os.Setenv("OPENCLAW_GATEWAY_URL", original) }()

	_ = os.Setenv("OPENCLAW_GATEWAY_URL", "https://gateway.internal:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Gateway.URL != "https://gateway.internal:9000" {
		t.Errorf("Gateway.URL = %q, want %q", cfg.Gateway.URL, "https://gateway.internal:9000")
	}
}

func TestSetDefaults_DispatchOverride(t *testing.T) {
	viper.Reset()
	SetDefaults()

	viper.Set("dispatch.max_concurrent_spawns", 10)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Dispatch.MaxConcurrentSpawns != 10 {
		t.Errorf("Dispatch.MaxConcurrentSpawns = %d, want 10", cfg.Dispatch.MaxConcurrentSpawns)
	}
}

func TestLoadFile_TOML(t *testing.T) {
	viper.Reset()
	SetDefaults()

	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "swarmops.toml")
	contents := "port = 9090\n\n[gateway]\nurl = \"https://gateway.example.com\"\n"
	if err := os.WriteFile(tomlPath, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write toml fixture: %v", err)
	}

	if err := LoadFile(tomlPath); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Gateway.URL != "https://gateway.example.com" {
		t.Errorf("Gateway.URL = %q, want %q", cfg.Gateway.URL, "https://gateway.example.com")
	}
}

func TestLoadFile_YAML(t *testing.T) {
	viper.Reset()
	SetDefaults()

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "swarmops.yaml")
	contents := "port: 9191\nworktree:\n  root: /tmp/worktrees\n"
	if err := os.WriteFile(yamlPath, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write yaml fixture: %v", err)
	}

	if err := LoadFile(yamlPath); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port)
	}
	if cfg.Worktree.Root != "/tmp/worktrees" {
		t.Errorf("Worktree.Root = %q, want %q", cfg.Worktree.Root, "/tmp/worktrees")
	}
}
