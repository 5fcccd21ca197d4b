package db

import (
	"strings"
	"testing"
	"time"
)

func TestCreateAndGetRun(t *testing.T) {
	db := setupTestDB(t)

	run := &Run{
		Source:     "serial:/dev/ttyUSB1",
		ConfigJSON: `{"snr_min":12}`,
	}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	if run.ID == "" {
		t.Fatal("expected CreateRun to assign an ID")
	}
	if len(run.ID) != 36 {
		t.Errorf("expected a uuid ID, got %q", run.ID)
	}
	if run.StartedAt.IsZero() {
		t.Error("expected CreateRun to stamp StartedAt")
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Source != run.Source {
		t.Errorf("expected source %q, got %q", run.Source, got.Source)
	}
	if got.ConfigJSON != run.ConfigJSON {
		t.Errorf("expected config %q, got %q", run.ConfigJSON, got.ConfigJSON)
	}
	if got.StartedAt.Unix() != run.StartedAt.Unix() {
		t.Errorf("expected started_at %v, got %v", run.StartedAt, got.StartedAt)
	}
	if got.EndedAt != nil {
		t.Error("expected a fresh run to have no end time")
	}
}

func TestCreateRunDefaultsConfig(t *testing.T) {
	db := setupTestDB(t)

	run := &Run{Source: "pcap:capture.pcap"}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.ConfigJSON != "{}" {
		t.Errorf("expected empty config snapshot, got %q", got.ConfigJSON)
	}
}

func TestGetRunNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetRun("b4b8c0de-0000-0000-0000-000000000000")
	if err == nil {
		t.Fatal("expected error for missing run")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := &Run{Source: "log:a.csv", StartedAt: base}
	newer := &Run{Source: "log:b.csv", StartedAt: base.Add(time.Hour)}
	if err := db.CreateRun(older); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := db.CreateRun(newer); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != newer.ID {
		t.Errorf("expected newest run first, got %s", runs[0].Source)
	}

	limited, err := db.ListRuns(1)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != newer.ID {
		t.Errorf("expected only the newest run, got %d runs", len(limited))
	}
}

func TestFinishRun(t *testing.T) {
	db := setupTestDB(t)

	run := &Run{Source: "udp://0.0.0.0:8080"}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	ended := time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)
	if err := db.FinishRun(run.ID, ended); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.EndedAt == nil {
		t.Fatal("expected EndedAt to be set")
	}
	if got.EndedAt.Unix() != ended.Unix() {
		t.Errorf("expected ended_at %v, got %v", ended, got.EndedAt)
	}
}

func TestFinishRunNotFound(t *testing.T) {
	db := setupTestDB(t)

	err := db.FinishRun("nope", time.Now())
	if err == nil {
		t.Fatal("expected error finishing a missing run")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}
