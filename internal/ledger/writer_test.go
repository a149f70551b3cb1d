package ledger

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/karlmjogila/swarmops/internal/event"
)

func TestAppend_WritesOneJSONObjectPerLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	evt1 := event.NewWorkerSpawnedEvent("run-1", 1, "task-1", "w-1", "label-1", "/path", "branch")
	evt2 := event.NewPhaseCompletedEvent("run-1", 1, 3, 3)

	if err := w.Record(evt1); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := w.Record(evt2); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	_ = w.Close()

	entries, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Type != "worker.spawned" {
		t.Errorf("entries[0].Type = %q, want worker.spawned", entries[0].Type)
	}
	if entries[1].Type != "phase.completed" {
		t.Errorf("entries[1].Type = %q, want phase.completed", entries[1].Type)
	}

	var payload struct {
		RunID    string `json:"RunID"`
		WorkerID string `json:"WorkerID"`
	}
	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.RunID != "run-1" || payload.WorkerID != "w-1" {
		t.Errorf("payload = %+v, want RunID=run-1 WorkerID=w-1", payload)
	}
}

func TestSubscribe_RecordsPublishedEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	bus := event.NewBus()
	w.Subscribe(bus)

	bus.Publish(event.NewWorkerFailedEvent("run-1", 1, "task-1", "w-1", "SPAWN_ERROR", "connection refused"))
	_ = w.Close()

	entries, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Type != "worker.failed" {
		t.Fatalf("entries = %+v, want one worker.failed entry", entries)
	}
}

func TestReadAll_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = w.Close()

	entries, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestPath_IsDeterministic(t *testing.T) {
	got := Path("/data", "run-42")
	want := filepath.Join("/data", "project-runs", "run-42", "ledger.jsonl")
	if got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}
