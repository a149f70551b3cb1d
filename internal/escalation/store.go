package escalation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists the full set of escalations as a single atomically
// rewritten document, matching the other top-level documents under the
// data root (task-registry.json, retry-state.json, and similar).
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store rooted at dataDir/escalations.json.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{path: filepath.Join(dataDir, "escalations.json")}, nil
}

// Raise creates a new open Escalation for the given run/phase/reason.
func (s *Store) Raise(runID string, phaseNumber int, reason string) (*Escalation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}

	e := Escalation{
		ID:          uuid.NewString(),
		RunID:       runID,
		PhaseNumber: phaseNumber,
		Reason:      reason,
		Status:      StatusOpen,
		CreatedAt:   time.Now(),
	}
	all = append(all, e)
	if err := s.save(all); err != nil {
		return nil, err
	}
	return &e, nil
}

// Resolve marks an escalation resolved or dismissed.
func (s *Store) Resolve(id string, status Status, resolvedBy, resolution string) (*Escalation, error) {
	if status != StatusResolved && status != StatusDismissed {
		return nil, fmt.Errorf("invalid resolution status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range all {
		if all[i].ID != id {
			continue
		}
		now := time.Now()
		all[i].Status = status
		all[i].ResolvedAt = &now
		all[i].ResolvedBy = resolvedBy
		all[i].Resolution = resolution
		if err := s.save(all); err != nil {
			return nil, err
		}
		return &all[i], nil
	}
	return nil, fmt.Errorf("escalation %q not found", id)
}

// List returns every escalation, open and resolved.
func (s *Store) List() ([]Escalation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Open returns every escalation with status "open".
func (s *Store) Open() ([]Escalation, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var open []Escalation
	for _, e := range all {
		if e.Status == StatusOpen {
			open = append(open, e)
		}
	}
	return open, nil
}

func (s *Store) load() ([]Escalation, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read escalations file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var all []Escalation
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("unmarshal escalations file: %w", err)
	}
	return all, nil
}

func (s *Store) save(all []Escalation) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal escalations: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
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
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
