// Package storage writes run artifacts under an output directory.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Storage struct {
	dir string
}

// New creates dir if needed.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// RunArtifactName names the artifact of a run, e.g. run-2026-10-18-7.json.
func RunArtifactName(runID int64, createdAt time.Time, ext string) string {
	return fmt.Sprintf("run-%s-%d.%s", createdAt.Format("2006-01-02"), runID, ext)
}

// SaveFile writes content to name inside the storage directory and returns the full path.
func (s *Storage) SaveFile(name string, content []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

// SaveJSON writes v as indented JSON.
func (s *Storage) SaveJSON(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding JSON: %w", err)
	}
	return s.SaveFile(name, append(data, '\n'))
}

// SaveYAML writes v as YAML.
func (s *Storage) SaveYAML(name string, v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("error encoding YAML: %w", err)
	}
	return s.SaveFile(name, data)
}
