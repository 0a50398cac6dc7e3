package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestAppendFoldsMultilineMessages(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "logs", FileName))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.clock = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	book.Error("save failed:\n  backend offline")
	lines, total := book.Tail(10)
	if total != 1 {
		t.Fatalf("expected one entry, got %d", total)
	}
	want := "2025-03-01T09:00:00Z ERROR save failed: backend offline"
	if lines[0] != want {
		t.Fatalf("line = %q, want %q", lines[0], want)
	}
}

func TestTailOnMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	if lines, total := book.Tail(4); lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %v/%d", lines, total)
	}
	var nilBook *Logbook
	nilBook.Info("ignored")
	if lines, _ := nilBook.Tail(1); lines != nil {
		t.Fatalf("nil logbook must be inert")
	}
}
