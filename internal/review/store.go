package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists ChainState records as one JSON file per (runId,
// phaseNumber) under dataDir/review-chains/, the same layout
// internal/phase.Store uses for phases.
type Store struct {
	dataDir string
}

// NewStore creates a Store rooted at dataDir.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "review-chains")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create review-chains directory: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

// Path returns the file path for a given run/phase.
func (s *Store) Path(runID string, phaseNumber int) string {
	return filepath.Join(s.dataDir, "review-chains", fmt.Sprintf("%s-%d.json", runID, phaseNumber))
}

// Save atomically writes a ChainState to disk.
func (s *Store) Save(c *ChainState) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chain state: %w", err)
	}

	target := s.Path(c.RunID, c.PhaseNumber)
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

// Load reads a ChainState from disk.
func (s *Store) Load(runID string, phaseNumber int) (*ChainState, error) {
	data, err := os.ReadFile(s.Path(runID, phaseNumber))
	if err != nil {
		return nil, fmt.Errorf("read chain state file: %w", err)
	}
	var c ChainState
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal chain state file: %w", err)
	}
	return &c, nil
}
