package main

import (
	"os"
	"path/filepath"
	"testing"

	"stepcore/host/trace"
)

func TestTraceFormat(t *testing.T) {
	tests := []struct {
		name, device string
		want         trace.Format
	}{
		{"", "", trace.Text},
		{"", "/dev/ttyACM0", trace.Binary},
		{"text", "/dev/ttyACM0", trace.Text},
		{"binary", "", trace.Binary},
	}
	for _, tt := range tests {
		got, err := traceFormat(tt.name, tt.device)
		if err != nil || got != tt.want {
			t.Errorf("traceFormat(%q, %q) = %v, %v; want %v", tt.name, tt.device, got, err, tt.want)
		}
	}
	if _, err := traceFormat("hex", ""); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestLoadConfigDefault(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Axes) != 3 {
		t.Errorf("default machine has %d axes, want 3", len(cfg.Axes))
	}
}

func TestReadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.txt")
	src := "speed 20\nmove 10 0\nmove 10 10\nwait\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cmds, err := readScript(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 4 {
		t.Errorf("parsed %d commands, want 4", len(cmds))
	}
}

func TestOpenTraceOff(t *testing.T) {
	w, closeFn, err := openTrace("", "", 0)
	if err != nil || w != nil {
		t.Fatalf("openTrace with no sink = %v, %v", w, err)
	}
	closeFn()
}

func TestReadGCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.gcode")
	src := "G21\nG90\nG1 X10 F1200 ; first edge\nG1 Y10\nM400\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cmds, err := readScript(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	// speed, move, move, wait
	if len(cmds) != 4 {
		t.Errorf("parsed %d commands, want 4", len(cmds))
	}
}
