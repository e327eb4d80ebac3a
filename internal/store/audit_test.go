package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestAuditEntriesFlow(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	base := time.Now()

	if err := s.AddAuditEntry(ctx, AuditEntry{
		IncidentID: "inc-1",
		Action:     ActionStatusChange,
		Actor:      "ana@example.com",
		Details:    map[string]string{"from": "open", "to": "resolved"},
		Timestamp:  base,
	}); err != nil {
		t.Fatalf("AddAuditEntry error: %v", err)
	}
	if err := s.AddAuditEntry(ctx, AuditEntry{
		IncidentID: "inc-1",
		Action:     ActionStatusChangeFailed,
		Details:    map[string]string{"error": "status 500"},
		Timestamp:  base.Add(time.Second),
	}); err != nil {
		t.Fatalf("AddAuditEntry error: %v", err)
	}
	if err := s.AddAuditEntry(ctx, AuditEntry{
		IncidentID: "inc-2",
		Action:     ActionIngest,
		Timestamp:  base.Add(2 * time.Second),
	}); err != nil {
		t.Fatalf("AddAuditEntry error: %v", err)
	}

	entries, err := s.GetAuditEntries(ctx, "inc-1", 10)
	if err != nil {
		t.Fatalf("GetAuditEntries error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != ActionStatusChangeFailed {
		t.Fatalf("expected newest first, got %q", entries[0].Action)
	}
	if entries[0].Actor != "anonymous" {
		t.Fatalf("expected default actor, got %q", entries[0].Actor)
	}
	if entries[1].Details["to"] != "resolved" {
		t.Fatalf("expected details to=resolved, got %+v", entries[1].Details)
	}
	if entries[1].ID == "" {
		t.Fatalf("expected generated id")
	}

	all, err := s.GetAuditEntries(ctx, "", 0)
	if err != nil {
		t.Fatalf("GetAuditEntries(all) error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}

	limited, err := s.GetAuditEntries(ctx, "", 1)
	if err != nil {
		t.Fatalf("GetAuditEntries(limit) error: %v", err)
	}
	if len(limited) != 1 || limited[0].IncidentID != "inc-2" {
		t.Fatalf("unexpected limited result: %+v", limited)
	}
}
