package taskgraph

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestMarkDone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.md")
	source := "- [ ] First @id(first)\n- [ ] Second @id(second) @depends(first)\n"
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := MarkDone(path, "first"); err != nil {
		t.Fatalf("MarkDone() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "- [x] First @id(first)") {
		t.Errorf("file content = %q, want first task checked", string(data))
	}
	if !strings.Contains(string(data), "- [ ] Second") {
		t.Errorf("file content = %q, want second task untouched", string(data))
	}
}

func TestMarkDone_UnknownTask(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.md")
	if err := os.WriteFile(path, []byte("- [ ] First @id(first)\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := MarkDone(path, "nonexistent"); err == nil {
		t.Error("MarkDone() should error on unknown task id")
	}
}

func TestMarkDone_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.md")
	var source strings.Builder
	const n = 20
	for i := 0; i < n; i++ {
		source.WriteString("- [ ] Task\n")
	}
	if err := os.WriteFile(path, []byte(source.String()), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(ordinal int) {
			defer wg.Done()
			id := "task-" + itoa(ordinal)
			if err := MarkDone(path, id); err != nil {
				t.Errorf("MarkDone(%s) error = %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if strings.Count(string(data), "[x]") != n {
		t.Errorf("expected all %d tasks marked done, got: %s", n, string(data))
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
