package db

import (
	"testing"
)

func testClusters() []Cluster {
	return []Cluster{
		{ClusterID: 0, CentroidX: 0.5, CentroidY: 2.0, CentroidZ: 0.4, MeanDoppler: -1.1, Priority: 1, PointCount: 4},
		{ClusterID: 1, CentroidX: -1.2, CentroidY: 5.5, CentroidZ: 0.6, MeanDoppler: 0.3, Priority: 3, PointCount: 12},
	}
}

func TestReplaceAndListClusters(t *testing.T) {
	db := setupTestDB(t)
	run := createTestRun(t, db)

	if err := db.ReplaceClusters(run.ID, 7, testClusters()); err != nil {
		t.Fatalf("ReplaceClusters failed: %v", err)
	}

	clusters, err := db.ListClusters(run.ID, 7)
	if err != nil {
		t.Fatalf("ListClusters failed: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}

	// Highest priority first.
	if clusters[0].Priority != 3 || clusters[0].ClusterID != 1 {
		t.Errorf("expected the priority-3 cluster first, got id %d priority %d",
			clusters[0].ClusterID, clusters[0].Priority)
	}
	if clusters[0].RunID != run.ID || clusters[0].Position != 7 {
		t.Errorf("expected run %s position 7, got %s position %d",
			run.ID, clusters[0].RunID, clusters[0].Position)
	}
	if clusters[1].PointCount != 4 {
		t.Errorf("expected point count 4, got %d", clusters[1].PointCount)
	}
}

func TestReplaceClustersReplaces(t *testing.T) {
	db := setupTestDB(t)
	run := createTestRun(t, db)

	if err := db.ReplaceClusters(run.ID, 7, testClusters()); err != nil {
		t.Fatalf("ReplaceClusters failed: %v", err)
	}

	// The replay saw only one cluster at this position.
	replacement := testClusters()[:1]
	if err := db.ReplaceClusters(run.ID, 7, replacement); err != nil {
		t.Fatalf("second ReplaceClusters failed: %v", err)
	}

	clusters, err := db.ListClusters(run.ID, 7)
	if err != nil {
		t.Fatalf("ListClusters failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected the replacement to win, got %d clusters", len(clusters))
	}
	if clusters[0].ClusterID != 0 {
		t.Errorf("expected cluster 0, got %d", clusters[0].ClusterID)
	}
}

func TestReplaceClustersEmptyClears(t *testing.T) {
	db := setupTestDB(t)
	run := createTestRun(t, db)

	if err := db.ReplaceClusters(run.ID, 7, testClusters()); err != nil {
		t.Fatalf("ReplaceClusters failed: %v", err)
	}
	if err := db.ReplaceClusters(run.ID, 7, nil); err != nil {
		t.Fatalf("empty ReplaceClusters failed: %v", err)
	}

	clusters, err := db.ListClusters(run.ID, 7)
	if err != nil {
		t.Fatalf("ListClusters failed: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("expected no clusters after clearing, got %d", len(clusters))
	}
}

func TestLatestClusters(t *testing.T) {
	db := setupTestDB(t)
	run := createTestRun(t, db)

	if err := db.ReplaceClusters(run.ID, 3, testClusters()); err != nil {
		t.Fatalf("ReplaceClusters failed: %v", err)
	}
	if err := db.ReplaceClusters(run.ID, 9, testClusters()[:1]); err != nil {
		t.Fatalf("ReplaceClusters failed: %v", err)
	}

	latest, err := db.LatestClusters(run.ID)
	if err != nil {
		t.Fatalf("LatestClusters failed: %v", err)
	}
	if len(latest) != 1 {
		t.Fatalf("expected 1 cluster at the newest position, got %d", len(latest))
	}
	if latest[0].Position != 9 {
		t.Errorf("expected position 9, got %d", latest[0].Position)
	}
}

func TestLatestClustersEmptyRun(t *testing.T) {
	db := setupTestDB(t)
	run := createTestRun(t, db)

	latest, err := db.LatestClusters(run.ID)
	if err != nil {
		t.Fatalf("LatestClusters failed: %v", err)
	}
	if len(latest) != 0 {
		t.Errorf("expected no clusters for an empty run, got %d", len(latest))
	}
}

func TestListRunClusters(t *testing.T) {
	db := setupTestDB(t)
	run := createTestRun(t, db)

	if err := db.ReplaceClusters(run.ID, 3, testClusters()); err != nil {
		t.Fatalf("ReplaceClusters failed: %v", err)
	}
	if err := db.ReplaceClusters(run.ID, 9, testClusters()[:1]); err != nil {
		t.Fatalf("ReplaceClusters failed: %v", err)
	}

	clusters, err := db.ListRunClusters(run.ID, 0)
	if err != nil {
		t.Fatalf("ListRunClusters failed: %v", err)
	}
	if len(clusters) != 3 {
		t.Fatalf("expected 3 clusters across the run, got %d", len(clusters))
	}

	// Stream order, then cluster id within a position.
	if clusters[0].Position != 3 || clusters[0].ClusterID != 0 {
		t.Errorf("expected position 3 cluster 0 first, got position %d cluster %d",
			clusters[0].Position, clusters[0].ClusterID)
	}
	if clusters[2].Position != 9 {
		t.Errorf("expected position 9 last, got %d", clusters[2].Position)
	}

	limited, err := db.ListRunClusters(run.ID, 2)
	if err != nil {
		t.Fatalf("ListRunClusters with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected limit 2 to cap the result, got %d", len(limited))
	}
}
