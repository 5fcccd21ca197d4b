package db

import (
	"testing"
	"time"
)

func testWarnings() []Warning {
	return []Warning{
		{ClusterID: 1, Priority: 3, MeanDoppler: 0.3, PointCount: 12, CentroidX: -0.2, CentroidY: 2.4, CentroidZ: 0.5},
	}
}

func TestReplaceAndListWarnings(t *testing.T) {
	db := setupTestDB(t)
	run := createTestRun(t, db)

	if err := db.ReplaceWarnings(run.ID, 4, testWarnings()); err != nil {
		t.Fatalf("ReplaceWarnings failed: %v", err)
	}

	warnings, err := db.ListWarnings(run.ID, 0)
	if err != nil {
		t.Fatalf("ListWarnings failed: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}

	w := warnings[0]
	if w.RunID != run.ID || w.Position != 4 {
		t.Errorf("expected run %s position 4, got %s position %d", run.ID, w.RunID, w.Position)
	}
	if w.ClusterID != 1 || w.Priority != 3 {
		t.Errorf("expected cluster 1 priority 3, got cluster %d priority %d", w.ClusterID, w.Priority)
	}
	if w.CreatedAt.IsZero() {
		t.Error("expected ReplaceWarnings to stamp CreatedAt")
	}
	if w.ID == 0 {
		t.Error("expected the stored warning to carry its row id")
	}
}

func TestListWarningsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	run := createTestRun(t, db)

	for _, position := range []int{2, 8, 5} {
		if err := db.ReplaceWarnings(run.ID, position, testWarnings()); err != nil {
			t.Fatalf("ReplaceWarnings failed: %v", err)
		}
	}

	warnings, err := db.ListWarnings(run.ID, 0)
	if err != nil {
		t.Fatalf("ListWarnings failed: %v", err)
	}
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %d", len(warnings))
	}
	wantPositions := []int{8, 5, 2}
	for i, w := range warnings {
		if w.Position != wantPositions[i] {
			t.Errorf("warning %d: expected position %d, got %d", i, wantPositions[i], w.Position)
		}
	}

	limited, err := db.ListWarnings(run.ID, 2)
	if err != nil {
		t.Fatalf("ListWarnings failed: %v", err)
	}
	if len(limited) != 2 || limited[0].Position != 8 {
		t.Errorf("expected 2 newest warnings, got %d", len(limited))
	}
}

func TestReplaceWarningsReplaces(t *testing.T) {
	db := setupTestDB(t)
	run := createTestRun(t, db)

	if err := db.ReplaceWarnings(run.ID, 4, testWarnings()); err != nil {
		t.Fatalf("ReplaceWarnings failed: %v", err)
	}

	// The replayed frame cleared the zone.
	if err := db.ReplaceWarnings(run.ID, 4, nil); err != nil {
		t.Fatalf("empty ReplaceWarnings failed: %v", err)
	}

	warnings, err := db.ListWarnings(run.ID, 0)
	if err != nil {
		t.Fatalf("ListWarnings failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings after clearing, got %d", len(warnings))
	}
}

func TestReplaceWarningsKeepsExplicitCreatedAt(t *testing.T) {
	db := setupTestDB(t)
	run := createTestRun(t, db)

	created := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	warning := testWarnings()
	warning[0].CreatedAt = created
	if err := db.ReplaceWarnings(run.ID, 4, warning); err != nil {
		t.Fatalf("ReplaceWarnings failed: %v", err)
	}

	warnings, err := db.ListWarnings(run.ID, 0)
	if err != nil {
		t.Fatalf("ListWarnings failed: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].CreatedAt.Unix() != created.Unix() {
		t.Errorf("expected created_at %v, got %v", created, warnings[0].CreatedAt)
	}
}
