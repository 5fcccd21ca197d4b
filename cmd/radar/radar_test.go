package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/corvid-data/proximity.report/internal/serialmux"
	"github.com/corvid-data/proximity.report/internal/source"
)

func TestNewFrameSourceNoneSelected(t *testing.T) {
	src, _, err := newFrameSource(nil)
	if err == nil {
		src.Close()
		t.Fatal("expected an error with no source flags set")
	}
	if !strings.Contains(err.Error(), "-serial") {
		t.Errorf("error %q should name the source flags", err)
	}
}

func TestNewFrameSourceLogReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")
	rec, err := source.NewLogRecorder(path)
	if err != nil {
		t.Fatalf("failed to create frame log: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("failed to close frame log: %v", err)
	}

	old := *logFile
	*logFile = path
	defer func() { *logFile = old }()

	src, desc, err := newFrameSource(nil)
	if err != nil {
		t.Fatalf("newFrameSource: %v", err)
	}
	defer src.Close()

	if want := "log:" + path; desc != want {
		t.Errorf("source description = %q, want %q", desc, want)
	}
	if _, ok := src.(*source.LogSource); !ok {
		t.Errorf("source type = %T, want *source.LogSource", src)
	}
}

func TestNewFrameSourceBadLogExtension(t *testing.T) {
	old := *logFile
	*logFile = "run.txt"
	defer func() { *logFile = old }()

	if _, _, err := newFrameSource(nil); err == nil {
		t.Fatal("expected an error for a non-csv log path")
	}
}

func TestNewFrameSourceUDP(t *testing.T) {
	old := *udpListen
	*udpListen = "127.0.0.1:0"
	defer func() { *udpListen = old }()

	src, desc, err := newFrameSource(nil)
	if err != nil {
		t.Fatalf("newFrameSource: %v", err)
	}
	defer src.Close()

	if want := "udp:127.0.0.1:0"; desc != want {
		t.Errorf("source description = %q, want %q", desc, want)
	}
}

func TestNewCommandMuxDisabledByDefault(t *testing.T) {
	mux, err := newCommandMux()
	if err != nil {
		t.Fatalf("newCommandMux: %v", err)
	}
	defer mux.Close()

	if _, ok := mux.(*serialmux.DisabledSerialMux); !ok {
		t.Errorf("mux type = %T, want *serialmux.DisabledSerialMux", mux)
	}
}

func TestNewCommandMuxDevMode(t *testing.T) {
	old := *devMode
	*devMode = true
	defer func() { *devMode = old }()

	mux, err := newCommandMux()
	if err != nil {
		t.Fatalf("newCommandMux: %v", err)
	}
	defer mux.Close()

	// the mock acknowledges every command, so dev-mode bring-up succeeds
	if err := mux.SendCommand("sensorStart"); err != nil {
		t.Errorf("SendCommand on mock mux: %v", err)
	}
}

func TestNewCommandMuxMissingPort(t *testing.T) {
	old := *configPort
	*configPort = filepath.Join(t.TempDir(), "no-such-port")
	defer func() { *configPort = old }()

	if _, err := newCommandMux(); err == nil {
		t.Fatal("expected an error opening a missing serial port")
	}
}
