package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

type artifact struct {
	RunID int64          `json:"run_id" yaml:"run_id"`
	Words map[string]int `json:"words" yaml:"words"`
}

func TestRunArtifactName(t *testing.T) {
	created := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	if got := RunArtifactName(7, created, "json"); got != "run-2026-10-18-7.json" {
		t.Errorf("RunArtifactName() = %q", got)
	}
}

func TestSaveJSONAndYAML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "runs")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	want := artifact{RunID: 3, Words: map[string]int{"the": 2, "cat": 1}}

	tests := []struct {
		name      string
		save      func(string, any) (string, error)
		unmarshal func([]byte, any) error
	}{
		{name: "run.json", save: s.SaveJSON, unmarshal: json.Unmarshal},
		{name: "run.yaml", save: s.SaveYAML, unmarshal: yaml.Unmarshal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := tt.save(tt.name, want)
			if err != nil {
				t.Fatalf("save error = %v", err)
			}
			if path != filepath.Join(dir, tt.name) {
				t.Errorf("path = %q", path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			var got artifact
			if err := tt.unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal error = %v", err)
			}
			if got.RunID != want.RunID || got.Words["the"] != 2 || got.Words["cat"] != 1 {
				t.Errorf("round trip = %+v, want %+v", got, want)
			}
		})
	}
}

func TestNew_DirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := New(filepath.Join(file, "runs")); err == nil {
		t.Error("New() error = nil when a parent is a file")
	}
}
