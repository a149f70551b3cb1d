package phase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store persists Phase records as one JSON file per (runId, phaseNumber)
// under dataDir/phases/. Writes are atomic (temp file + rename).
type Store struct {
	dataDir string

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
}

// NewStore creates a Store rooted at dataDir. The phases/ subdirectory is
// created if it does not already exist.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "phases")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create phases directory: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

// Path returns the file path for a given run/phase.
func (s *Store) Path(runID string, phaseNumber int) string {
	return filepath.Join(s.dataDir, "phases", fmt.Sprintf("%s-%d.json", runID, phaseNumber))
}

// Save atomically writes a Phase record to disk.
func (s *Store) Save(p *Phase) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal phase: %w", err)
	}

	target := s.Path(p.RunID, p.PhaseNumber)
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp-*")
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

	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Phase record from disk.
func (s *Store) Load(runID string, phaseNumber int) (*Phase, error) {
	data, err := os.ReadFile(s.Path(runID, phaseNumber))
	if err != nil {
		return nil, fmt.Errorf("read phase file: %w", err)
	}
	var p Phase
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal phase file: %w", err)
	}
	return &p, nil
}

// Watch starts an fsnotify watch on the phases directory and returns a
// channel of file paths that changed. This is an emit-only notifier: no
// external dashboard ships in this repository, but a future one can drive
// off this channel instead of polling the filesystem. Close stops the
// watch and closes the returned channel.
func (s *Store) Watch() (<-chan string, func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Join(s.dataDir, "phases")); err != nil {
		_ = watcher.Close()
		return nil, nil, fmt.Errorf("watch phases directory: %w", err)
	}

	s.watchMu.Lock()
	s.watcher = watcher
	s.watchMu.Unlock()

	out := make(chan string, 16)
	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					out <- event.Name
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	closeFn := func() error {
		return watcher.Close()
	}
	return out, closeFn, nil
}
