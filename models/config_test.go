package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  - host: worker-a
    port: 9001
  - host: worker-b
    port: 9002
retry:
  max_retries: 5
  retry_delay: 250ms
deadline: 1m
normalize: true
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(config.Endpoints) != 2 {
		t.Fatalf("len(Endpoints) = %d, want 2", len(config.Endpoints))
	}
	if got := config.Endpoints[1].Addr(); got != "worker-b:9002" {
		t.Errorf("Endpoints[1].Addr() = %q, want %q", got, "worker-b:9002")
	}
	if config.Retry.MaxRetries != 5 {
		t.Errorf("Retry.MaxRetries = %d, want 5", config.Retry.MaxRetries)
	}
	if config.Retry.RetryDelay != 250*time.Millisecond {
		t.Errorf("Retry.RetryDelay = %v, want 250ms", config.Retry.RetryDelay)
	}
	if config.Retry.ResponseTimeout != DefaultResponseTimeout {
		t.Errorf("Retry.ResponseTimeout = %v, want default %v", config.Retry.ResponseTimeout, DefaultResponseTimeout)
	}
	if config.Deadline != time.Minute {
		t.Errorf("Deadline = %v, want 1m", config.Deadline)
	}
	if !config.Normalize {
		t.Error("Normalize = false, want true")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "normalize: false\n")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(config.Endpoints) != len(DefaultPorts) {
		t.Errorf("len(Endpoints) = %d, want %d", len(config.Endpoints), len(DefaultPorts))
	}
	if config.Retry != DefaultRetryPolicy() {
		t.Errorf("Retry = %+v, want %+v", config.Retry, DefaultRetryPolicy())
	}
}

func TestLoadConfig_ZeroRetryDelay(t *testing.T) {
	path := writeConfig(t, "retry:\n  retry_delay: 0s\n")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Retry.RetryDelay != DefaultRetryDelay {
		t.Errorf("Retry.RetryDelay = %v, want %v", config.Retry.RetryDelay, DefaultRetryDelay)
	}
}

func TestRetryPolicy_WithDefaults(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
		want   RetryPolicy
	}{
		{name: "zero", policy: RetryPolicy{}, want: DefaultRetryPolicy()},
		{
			name:   "negative",
			policy: RetryPolicy{MaxRetries: -1, RetryDelay: -time.Second, ResponseTimeout: -time.Second},
			want:   DefaultRetryPolicy(),
		},
		{
			name:   "only retries set",
			policy: RetryPolicy{MaxRetries: 2},
			want:   RetryPolicy{MaxRetries: 2, RetryDelay: DefaultRetryDelay, ResponseTimeout: DefaultResponseTimeout},
		},
		{
			name:   "explicit values kept",
			policy: RetryPolicy{MaxRetries: 1, RetryDelay: time.Millisecond, ResponseTimeout: time.Second},
			want:   RetryPolicy{MaxRetries: 1, RetryDelay: time.Millisecond, ResponseTimeout: time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.WithDefaults(); got != tt.want {
				t.Errorf("WithDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig_InvalidEndpoint(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  - host: ""
    port: 9001
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() error = nil, want error for empty host")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() error = nil, want error for missing file")
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Endpoint
		wantErr bool
	}{
		{name: "host and port", raw: "localhost:18861", want: Endpoint{Host: "localhost", Port: 18861}},
		{name: "bare port", raw: ":9000", want: Endpoint{Host: "localhost", Port: 9000}},
		{name: "ipv6", raw: "[::1]:9000", want: Endpoint{Host: "::1", Port: 9000}},
		{name: "whitespace", raw: "  10.0.0.1:80 ", want: Endpoint{Host: "10.0.0.1", Port: 80}},
		{name: "missing port", raw: "localhost", wantErr: true},
		{name: "non numeric port", raw: "localhost:http", wantErr: true},
		{name: "port out of range", raw: "localhost:70000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndpoint(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEndpoint(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseEndpoint(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}
