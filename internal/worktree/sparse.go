package worktree

import (
	"fmt"
	"os/exec"
	"strings"
)

// truncateOutput truncates s to maxLen characters, adding "..." if truncated.
func truncateOutput(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// EnableSparseCheckout configures sparse checkout for an existing worktree.
// If coneMode is true, git's cone mode is used (faster, directory-based
// patterns); otherwise gitignore-style patterns are used.
func (m *Manager) EnableSparseCheckout(path string, directories []string, coneMode bool) error {
	if len(directories) == 0 {
		return fmt.Errorf("at least one directory is required for sparse checkout")
	}

	initArgs := []string{"sparse-checkout", "init"}
	if coneMode {
		initArgs = []string{"sparse-checkout", "init", "--cone"}
	}

	initCmd := exec.Command("git", initArgs...)
	initCmd.Dir = path
	output, err := initCmd.CombinedOutput()
	m.logDebug("git command", "args", initArgs, "output", truncateOutput(string(output), 500))
	if err != nil {
		m.logWarn("git sparse-checkout init failed", "args", initArgs, "error", err, "stderr", string(output))
		return fmt.Errorf("failed to initialize sparse checkout: %w\n%s", err, string(output))
	}

	setArgs := append([]string{"sparse-checkout", "set"}, directories...)
	setCmd := exec.Command("git", setArgs...)
	setCmd.Dir = path
	output, err = setCmd.CombinedOutput()
	m.logDebug("git command", "args", setArgs, "output", truncateOutput(string(output), 500))
	if err != nil {
		m.logWarn("git sparse-checkout set failed", "args", setArgs, "error", err, "stderr", string(output))
		return fmt.Errorf("failed to set sparse checkout directories: %w\n%s", err, string(output))
	}

	m.logInfo("sparse checkout enabled", "path", path, "directories", directories, "cone_mode", coneMode)
	return nil
}

// DisableSparseCheckout disables sparse checkout for a worktree, restoring a full checkout.
func (m *Manager) DisableSparseCheckout(path string) error {
	cmd := exec.Command("git", "sparse-checkout", "disable")
	cmd.Dir = path
	output, err := cmd.CombinedOutput()
	if err != nil {
		m.logWarn("git sparse-checkout disable failed", "error", err, "stderr", string(output))
		return fmt.Errorf("failed to disable sparse checkout: %w\n%s", err, string(output))
	}
	m.logInfo("sparse checkout disabled", "path", path)
	return nil
}

// IsSparseCheckoutEnabled reports whether sparse checkout is active for a worktree.
func (m *Manager) IsSparseCheckoutEnabled(path string) (bool, error) {
	args := []string{"config", "--worktree", "--get", "core.sparseCheckout"}
	cmd := exec.Command("git", args...)
	cmd.Dir = path
	output, err := cmd.Output()
	if err != nil {
		args = []string{"config", "--local", "--get", "core.sparseCheckout"}
		cmd = exec.Command("git", args...)
		cmd.Dir = path
		output, err = cmd.Output()
		if err != nil {
			return false, nil
		}
	}
	return strings.TrimSpace(string(output)) == "true", nil
}

// GetSparseCheckoutPatterns returns the sparse checkout patterns currently
// configured for a worktree, or an empty slice if none are set.
func (m *Manager) GetSparseCheckoutPatterns(path string) ([]string, error) {
	cmd := exec.Command("git", "sparse-checkout", "list")
	cmd.Dir = path
	output, err := cmd.CombinedOutput()
	if err != nil {
		m.logDebug("sparse-checkout list returned error (may not be enabled)", "error", err)
		return []string{}, nil
	}

	lines := strings.TrimSpace(string(output))
	if lines == "" {
		return []string{}, nil
	}
	return strings.Split(lines, "\n"), nil
}
