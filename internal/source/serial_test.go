package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStreamSourceReadsFrames(t *testing.T) {
	f1 := testFrame(t, 1)
	f2 := testFrame(t, 2)

	// Garbage before the first frame simulates joining a running stream
	stream := append([]byte{0xAA, 0xBB, 0xCC}, f1...)
	stream = append(stream, f2...)

	src := NewStreamSource(io.NopCloser(bytes.NewReader(stream)))
	defer src.Close()

	ctx := context.Background()
	for i, want := range [][]byte{f1, f2} {
		got, err := src.NextFrame(ctx)
		if err != nil {
			t.Fatalf("NextFrame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d does not match stream", i)
		}
	}
	if _, err := src.NextFrame(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at stream end, got %v", err)
	}
}

func TestStreamSourceContextCanceled(t *testing.T) {
	src := NewStreamSource(io.NopCloser(bytes.NewReader(testFrame(t, 1))))
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.NextFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoadConfigCommands(t *testing.T) {
	profile := strings.Join([]string{
		"% IWR6843 30fps profile",
		"",
		"sensorStop",
		"flushCfg",
		"frameCfg 0 1 32 0 100 1 0",
		"sensorStart",
	}, "\r\n")

	path := filepath.Join(t.TempDir(), "profile.cfg")
	if err := os.WriteFile(path, []byte(profile), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	commands, err := LoadConfigCommands(path)
	if err != nil {
		t.Fatalf("LoadConfigCommands: %v", err)
	}

	if len(commands) != 6 {
		t.Fatalf("expected 6 lines, got %d: %q", len(commands), commands)
	}
	if commands[0] != "% IWR6843 30fps profile" {
		t.Errorf("comment line altered: %q", commands[0])
	}
	if commands[2] != "sensorStop" {
		t.Errorf("command line altered: %q", commands[2])
	}
	for i, c := range commands {
		if strings.Contains(c, "\r") {
			t.Errorf("line %d retains carriage return: %q", i, c)
		}
	}
}

func TestLoadConfigCommandsRejectsExtension(t *testing.T) {
	if _, err := LoadConfigCommands("profile.json"); err == nil {
		t.Error("expected error for non-cfg extension")
	}
}

func TestLoadConfigCommandsMissingFile(t *testing.T) {
	if _, err := LoadConfigCommands(filepath.Join(t.TempDir(), "absent.cfg")); err == nil {
		t.Error("expected error for missing profile")
	}
}

func TestLoadConfigCommandsTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.cfg")
	if err := os.WriteFile(path, bytes.Repeat([]byte("a"), maxProfileSize+1), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadConfigCommands(path); err == nil {
		t.Error("expected error for oversized profile")
	}
}
