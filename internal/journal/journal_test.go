package journal

import (
	"context"
	"path/filepath"
	"testing"
)

func TestJournal_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	j, err := Open(filepath.Join(t.TempDir(), "loot", "journal.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer j.Close()

	if err := j.Record(ctx, Entry{RunID: "r1", Driver: "mysql", Host: "db", Path: "/etc", Outcome: "dir"}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := j.Record(ctx, Entry{
		RunID: "r2", Driver: "mysql", Host: "db", Path: "/etc/passwd", Outcome: "stored",
		Size: 42, SHA256: "abc", Location: "/tmp/loot/etc/passwd",
	}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "r2" || entries[0].Size != 42 || entries[0].Location != "/tmp/loot/etc/passwd" {
		t.Errorf("unexpected newest entry: %+v", entries[0])
	}
	if entries[1].Outcome != "dir" || entries[1].SHA256 != "" {
		t.Errorf("unexpected oldest entry: %+v", entries[1])
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be parsed")
	}
}

func TestJournal_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := j.Record(ctx, Entry{RunID: "r1", Driver: "postgres", Host: "pg", Path: "/nope", Outcome: "error", Error: "no such file: /nope"}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer j.Close()

	entries, err := j.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 1 || entries[0].Error != "no such file: /nope" {
		t.Errorf("expected persisted error entry, got %+v", entries)
	}
}
