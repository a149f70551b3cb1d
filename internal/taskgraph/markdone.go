package taskgraph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karlmjogila/swarmops/internal/errors"
)

// MarkDone flips the checkbox for taskId from "[ ]" to "[x]" in the task
// list at projectPath. The rewrite is atomic against concurrent writers: an
// exclusive file lock is held for the read-modify-write, and the new
// content is written to a temp file in the same directory and renamed into
// place.
func MarkDone(projectPath, taskID string) error {
	lock := newFileLock(projectPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire lock for %s: %w", projectPath, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(projectPath)
	if err != nil {
		return fmt.Errorf("read task list: %w", err)
	}

	graph, err := Parse(string(data))
	if err != nil {
		return fmt.Errorf("parse task list: %w", err)
	}

	task := graph.TaskByID(taskID)
	if task == nil {
		return errors.NewPhaseError("mark task done", errors.ErrTaskNotFound).WithTaskID(taskID)
	}

	lines := strings.Split(string(data), "\n")
	if task.line >= len(lines) {
		return fmt.Errorf("task %s line index out of range", taskID)
	}
	lines[task.line] = taskLineRe.ReplaceAllString(lines[task.line], "${1}x${3}${4}")

	return writeFileAtomic(projectPath, []byte(strings.Join(lines, "\n")))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	info, statErr := os.Stat(path)
	if statErr == nil {
		_ = os.Chmod(tmpPath, info.Mode())
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
