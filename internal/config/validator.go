package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "dispatch.max_concurrent_spawns")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"DEBUG", "INFO", "WARN", "ERROR"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found. It never fails fast: every section is checked so a caller
// can report the full set of problems in one pass.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTopLevel()...)
	errors = append(errors, c.Gateway.validate()...)
	errors = append(errors, c.Worktree.validate()...)
	errors = append(errors, c.Dispatch.validate()...)
	errors = append(errors, c.Logging.validate()...)
	errors = append(errors, c.Review.validate()...)

	return errors
}

func (c *Config) validateTopLevel() []ValidationError {
	var errors []ValidationError

	if c.DataDir == "" {
		errors = append(errors, ValidationError{
			Field:   "data_dir",
			Value:   c.DataDir,
			Message: "must not be empty",
		})
	}

	if c.ProjectsDir == "" {
		errors = append(errors, ValidationError{
			Field:   "projects_dir",
			Value:   c.ProjectsDir,
			Message: "must not be empty",
		})
	}

	if c.Port < 0 || c.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "port",
			Value:   c.Port,
			Message: "must be between 0 and 65535",
		})
	}

	return errors
}

func (g *GatewayConfig) validate() []ValidationError {
	var errors []ValidationError

	if g.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "gateway.url",
			Value:   g.URL,
			Message: "must not be empty; set OPENCLAW_GATEWAY_URL",
		})
		return errors
	}

	parsed, err := url.Parse(g.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "gateway.url",
			Value:   g.URL,
			Message: "must be a valid absolute URL",
		})
	}

	return errors
}

func (w *WorktreeConfig) validate() []ValidationError {
	var errors []ValidationError

	if w.Root == "" {
		errors = append(errors, ValidationError{
			Field:   "worktree.root",
			Value:   w.Root,
			Message: "must not be empty; set SWARMOPS_WORKTREE_DIR",
		})
	}

	if w.SparseCheckout.Enabled && len(w.SparseCheckout.Directories) == 0 {
		errors = append(errors, ValidationError{
			Field:   "worktree.sparse_checkout.directories",
			Value:   w.SparseCheckout.Directories,
			Message: "must list at least one directory when sparse_checkout.enabled is true",
		})
	}

	errors = append(errors, checkDuplicateStrings("worktree.sparse_checkout.directories", w.SparseCheckout.Directories)...)

	return errors
}

func (d *DispatchConfig) validate() []ValidationError {
	var errors []ValidationError

	if d.MaxConsecutiveFailures <= 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.max_consecutive_failures",
			Value:   d.MaxConsecutiveFailures,
			Message: "must be positive",
		})
	}

	if d.CircuitOpenDurationMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.circuit_open_duration_ms",
			Value:   d.CircuitOpenDurationMs,
			Message: "must be positive",
		})
	}

	if d.MaxConcurrentSpawns <= 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.max_concurrent_spawns",
			Value:   d.MaxConcurrentSpawns,
			Message: "must be positive",
		})
	}

	if d.SpawnWindowMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.spawn_window_ms",
			Value:   d.SpawnWindowMs,
			Message: "must be positive",
		})
	}

	if d.BackoffBaseMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.backoff_base_ms",
			Value:   d.BackoffBaseMs,
			Message: "must be positive",
		})
	}

	if d.BackoffMaxMs < d.BackoffBaseMs {
		errors = append(errors, ValidationError{
			Field:   "dispatch.backoff_max_ms",
			Value:   d.BackoffMaxMs,
			Message: "must be greater than or equal to backoff_base_ms",
		})
	}

	if d.BackoffMultiplier <= 1 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.backoff_multiplier",
			Value:   d.BackoffMultiplier,
			Message: "must be greater than 1",
		})
	}

	if d.SpawnMaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.spawn_max_retries",
			Value:   d.SpawnMaxRetries,
			Message: "must not be negative",
		})
	}

	return errors
}

func (l *LoggingConfig) validate() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToUpper(l.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   l.Level,
			Message: fmt.Sprintf("must be one of %v", ValidLogLevels()),
		})
	}

	if l.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   l.MaxSizeMB,
			Message: "must not be negative",
		})
	}

	if l.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   l.MaxBackups,
			Message: "must not be negative",
		})
	}

	return errors
}

func (r *ReviewConfig) validate() []ValidationError {
	var errors []ValidationError

	if len(r.BaseChain) == 0 {
		errors = append(errors, ValidationError{
			Field:   "review.base_chain",
			Value:   r.BaseChain,
			Message: "must list at least one reviewer role",
		})
	}

	for i, role := range r.BaseChain {
		if role == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("review.base_chain[%d]", i),
				Value:   role,
				Message: "must not be empty",
			})
			continue
		}
		if !IsValidReviewRole(role) && r.RolePrompts[role] == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("review.base_chain[%d]", i),
				Value:   role,
				Message: fmt.Sprintf("not a recognized built-in role; add a role_prompts entry for custom roles (known roles: %v)", ValidReviewRoles()),
			})
		}
	}

	if slices.Contains(r.BaseChain, "designer") {
		errors = append(errors, ValidationError{
			Field:   "review.base_chain",
			Value:   r.BaseChain,
			Message: `"designer" is appended automatically when frontend files are detected and must not appear in base_chain`,
		})
	}

	errors = append(errors, validateExtensionList(r.FrontendExtensions)...)

	return errors
}

// validateExtensionList checks that every entry looks like a file extension
// (leading dot, no path separators).
func validateExtensionList(extensions []string) []ValidationError {
	var errors []ValidationError
	for i, ext := range extensions {
		if ext == "" || !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, "/\\") {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("review.frontend_extensions[%d]", i),
				Value:   ext,
				Message: `must be a file extension beginning with "." (e.g. ".tsx")`,
			})
		}
	}
	return errors
}

// checkDuplicateStrings reports a ValidationError for each value that
// appears more than once in values.
func checkDuplicateStrings(field string, values []string) []ValidationError {
	var errors []ValidationError
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   v,
				Message: "duplicate entry",
			})
			continue
		}
		seen[v] = true
	}
	return errors
}
