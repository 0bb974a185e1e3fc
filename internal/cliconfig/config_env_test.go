package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"BULKSHIP_STORE_URL":       "http://env:9200",
				"BULKSHIP_INDEX":           "env-index",
				"BULKSHIP_MAX_BATCH_BYTES": "64KiB",
				"BULKSHIP_FLUSH_INTERVAL":  "2s",
				"BULKSHIP_MAX_IN_FLIGHT":   "8",
				"BULKSHIP_DISPATCH_RATE":   "2.5",
				"BULKSHIP_FOLLOW":          "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				StoreURL:      "http://env:9200",
				Index:         "env-index",
				MaxBatchBytes: 64 << 10,
				FlushInterval: 2 * time.Second,
				MaxInFlight:   8,
				DispatchRate:  2.5,
				Follow:        true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"BULKSHIP_STORE_URL": "http://env:9200",
				"BULKSHIP_INDEX":     "env-index",
			},
			changed:  map[string]bool{"store-url": true},
			initial:  Config{StoreURL: "http://flag:9200"},
			expected: Config{StoreURL: "http://flag:9200", Index: "env-index"},
		},
		{
			name:     "handles bool 'false' as false",
			envVars:  map[string]string{"BULKSHIP_FOLLOW": "false"},
			changed:  map[string]bool{},
			initial:  Config{Follow: true},
			expected: Config{Follow: false},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"BULKSHIP_FLUSH_INTERVAL": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"BULKSHIP_RETRIES": "not-a-number"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid float",
			envVars: map[string]string{"BULKSHIP_DISPATCH_RATE": "fast"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid size",
			envVars: map[string]string{"BULKSHIP_MAX_BATCH_BYTES": "huge"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BULKSHIP_TEST_INDEX=from-file\nBULKSHIP_TEST_KEEP=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BULKSHIP_TEST_KEEP", "from-env")
	t.Setenv("BULKSHIP_TEST_INDEX", "")
	os.Unsetenv("BULKSHIP_TEST_INDEX")

	if err := LoadEnvFile(path, true); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("BULKSHIP_TEST_INDEX"); got != "from-file" {
		t.Errorf("BULKSHIP_TEST_INDEX = %q, want from-file", got)
	}
	if got := os.Getenv("BULKSHIP_TEST_KEEP"); got != "from-env" {
		t.Errorf("BULKSHIP_TEST_KEEP = %q, want from-env (existing env wins)", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing"), false); err != nil {
		t.Errorf("missing default env file should be ignored: %v", err)
	}
	if err := LoadEnvFile(filepath.Join(dir, "missing"), true); err == nil {
		t.Error("missing explicit env file should fail")
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	fileConf := FileConfig{
		StoreURL: "http://file:9200",
		Index:    "file-index",
		Pipeline: "file-pipeline",
	}

	t.Setenv("BULKSHIP_STORE_URL", "http://env:9200")
	t.Setenv("BULKSHIP_INDEX", "env-index")

	changed := map[string]bool{"store-url": true}
	cfg := Config{StoreURL: "http://cli:9200"}

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.StoreURL != "http://cli:9200" {
		t.Errorf("StoreURL = %v, want http://cli:9200 (CLI should win)", cfg.StoreURL)
	}
	if cfg.Index != "env-index" {
		t.Errorf("Index = %v, want env-index (env should override file)", cfg.Index)
	}
	if cfg.Pipeline != "file-pipeline" {
		t.Errorf("Pipeline = %v, want file-pipeline (file should set)", cfg.Pipeline)
	}
}
