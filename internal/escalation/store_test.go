package escalation

import (
	"testing"
)

func TestRaise_CreatesOpenEscalation(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	e, err := s.Raise("run-1", 2, "reviewer requested escalation")
	if err != nil {
		t.Fatalf("Raise() error = %v", err)
	}
	if e.ID == "" {
		t.Error("expected a generated ID")
	}
	if e.Status != StatusOpen {
		t.Errorf("Status = %v, want open", e.Status)
	}

	all, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len(all) = %d, want 1", len(all))
	}
}

func TestResolve_UpdatesStatus(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	e, err := s.Raise("run-1", 1, "timeout")
	if err != nil {
		t.Fatalf("Raise() error = %v", err)
	}

	resolved, err := s.Resolve(e.ID, StatusResolved, "alice", "retried manually")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Status != StatusResolved || resolved.ResolvedBy != "alice" {
		t.Errorf("resolved = %+v, want resolved/alice", resolved)
	}
	if resolved.ResolvedAt == nil {
		t.Error("expected ResolvedAt to be set")
	}
}

func TestResolve_UnknownID(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, err := s.Resolve("missing", StatusResolved, "alice", "n/a"); err == nil {
		t.Error("expected an error for an unknown escalation ID")
	}
}

func TestResolve_InvalidStatus(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	e, err := s.Raise("run-1", 1, "timeout")
	if err != nil {
		t.Fatalf("Raise() error = %v", err)
	}
	if _, err := s.Resolve(e.ID, StatusOpen, "alice", ""); err == nil {
		t.Error("expected an error when resolving to a non-terminal status")
	}
}

func TestOpen_FiltersToOpenOnly(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	e1, _ := s.Raise("run-1", 1, "a")
	_, _ = s.Raise("run-1", 2, "b")
	if _, err := s.Resolve(e1.ID, StatusDismissed, "bob", ""); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	open, err := s.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(open) != 1 || open[0].Reason != "b" {
		t.Errorf("Open() = %+v, want one entry for reason b", open)
	}
}

func TestList_EmptyStoreReturnsNoError(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	all, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("len(all) = %d, want 0", len(all))
	}
}
