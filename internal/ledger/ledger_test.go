package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testEntry(label string) Entry {
	return Entry{
		ManifestLabel:  label,
		InstanceID:     "xmp:iid:" + label,
		AssetPath:      "/photos/sunrise_tm.jpg",
		Title:          "sunrise.jpg",
		Format:         "image/jpeg",
		ClaimGenerator: "walkthrough/0.1",
		Algorithm:      "ps256",
		ContentDigest:  "deadbeef",
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 3; i++ {
		l, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		l.Close()
	}

	l, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer l.Close()

	var name string
	err = l.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='embeddings'",
	).Scan(&name)
	if err != nil {
		t.Errorf("embeddings table not found after idempotent opens: %v", err)
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	checks := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
	}
	for name, expected := range checks {
		if err := l.verifyPragma(name, expected); err != nil {
			t.Errorf("pragma check failed: %v", err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/ledger.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	e := testEntry("urn:uuid:one")
	e.ParentInstanceID = "xmp:iid:parent"
	e.RecordedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	inserted, err := l.Record(ctx, e)
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if !inserted {
		t.Error("first Record() should insert")
	}

	entries, err := l.ByAsset(ctx, e.AssetPath)
	if err != nil {
		t.Fatalf("ByAsset() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	got := entries[0]
	if got.ID == 0 {
		t.Error("ID should be assigned by the database")
	}
	if got.ManifestLabel != e.ManifestLabel ||
		got.InstanceID != e.InstanceID ||
		got.AssetPath != e.AssetPath ||
		got.Title != e.Title ||
		got.Format != e.Format ||
		got.ClaimGenerator != e.ClaimGenerator ||
		got.Algorithm != e.Algorithm ||
		got.ContentDigest != e.ContentDigest ||
		got.ParentInstanceID != e.ParentInstanceID {
		t.Errorf("round-trip mismatch: got %+v, want %+v", got, e)
	}
	if !got.RecordedAt.Equal(e.RecordedAt) {
		t.Errorf("recorded_at = %v, want %v", got.RecordedAt, e.RecordedAt)
	}
}

func TestRecord_DuplicateLabelIgnored(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	e := testEntry("urn:uuid:dup")

	if _, err := l.Record(ctx, e); err != nil {
		t.Fatalf("first Record() failed: %v", err)
	}

	// Same label again, even with different fields, is a no-op.
	e.AssetPath = "/elsewhere.jpg"
	inserted, err := l.Record(ctx, e)
	if err != nil {
		t.Fatalf("second Record() failed: %v", err)
	}
	if inserted {
		t.Error("duplicate label should not insert")
	}

	count, err := l.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestQuery_OrderAndScoping(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	labels := []string{"urn:uuid:a", "urn:uuid:b", "urn:uuid:c"}
	for i, label := range labels {
		e := testEntry(label)
		if i == 2 {
			e.AssetPath = "/photos/other_tm.jpg"
		}
		if _, err := l.Record(ctx, e); err != nil {
			t.Fatalf("Record(%q) failed: %v", label, err)
		}
	}

	all, err := l.All(ctx)
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("All() returned %d entries, want 3", len(all))
	}
	for i, label := range labels {
		if all[i].ManifestLabel != label {
			t.Errorf("All()[%d].ManifestLabel = %q, want %q (insertion order)", i, all[i].ManifestLabel, label)
		}
	}

	byAsset, err := l.ByAsset(ctx, "/photos/sunrise_tm.jpg")
	if err != nil {
		t.Fatalf("ByAsset() failed: %v", err)
	}
	if len(byAsset) != 2 {
		t.Errorf("ByAsset() returned %d entries, want 2", len(byAsset))
	}

	byInstance, err := l.ByInstance(ctx, "xmp:iid:urn:uuid:b")
	if err != nil {
		t.Fatalf("ByInstance() failed: %v", err)
	}
	if len(byInstance) != 1 || byInstance[0].ManifestLabel != "urn:uuid:b" {
		t.Errorf("ByInstance() = %+v, want the single b entry", byInstance)
	}
}

func TestQuery_EmptyResultsAreNotNil(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	entries, err := l.ByAsset(context.Background(), "/never-seen.jpg")
	if err != nil {
		t.Fatalf("ByAsset() failed: %v", err)
	}
	if entries == nil {
		t.Error("empty result should be an empty slice, not nil")
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestRecord_AssignsTimestampWhenZero(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	before := time.Now().Add(-2 * time.Second)
	if _, err := l.Record(ctx, testEntry("urn:uuid:now")); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	entries, err := l.All(ctx)
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].RecordedAt.Before(before) {
		t.Errorf("recorded_at %v predates the call", entries[0].RecordedAt)
	}
}
