package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/karlmjogila/swarmops/internal/event"
)

// Writer appends JSONL entries to a single run-scoped ledger file. Writes
// are append-only; rotation is an external operator concern, not this
// component's.
type Writer struct {
	mu   sync.Mutex
	file *os.File
}

// Open opens (creating if absent) the ledger file at path for appending.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	return &Writer{file: file}, nil
}

// Append writes one JSON object per line. Safe for concurrent use.
func (w *Writer) Append(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("write ledger entry: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// Record records a raw event into the ledger, translating it through
// newEntry first. Used directly by callers that do not go through the
// event bus (e.g. the conflict resolver dispatcher, which the merge
// engine invokes synchronously).
func (w *Writer) Record(e recordedEvent) error {
	entry, err := newEntry(e)
	if err != nil {
		return err
	}
	return w.Append(entry)
}

// Subscribe wires w to bus so every published event is recorded. Returns
// the subscription ID for later Unsubscribe.
func (w *Writer) Subscribe(bus *event.Bus) string {
	return bus.SubscribeAll(func(e event.Event) {
		if err := w.Record(e); err != nil {
			// The event bus recovers handler panics but not errors; there is
			// no good escalation path from inside a subscriber, so this is
			// swallowed deliberately. A failed ledger write does not affect
			// run correctness, only observability.
			return
		}
	})
}

// ReadAll reads every entry currently in the ledger file at path. Used by
// read paths (dashboards, CLI inspection) that need the full history
// rather than a live subscription.
func ReadAll(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("unmarshal ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger file: %w", err)
	}
	return entries, nil
}
