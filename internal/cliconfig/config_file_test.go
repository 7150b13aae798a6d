package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Port:              "/dev/ttyUSB1",
				Baud:              460800,
				LogDir:            "/data/can",
				FlushInterval:     "10s",
				StatusInterval:    "2s",
				Grace:             "1s",
				FlushOnStop:       &trueVal,
				QueueLimit:        100000,
				OverflowPolicy:    "drop-oldest",
				RetentionInterval: "30m",
				RetentionHigh:     2 << 30,
				RetentionLow:      1 << 30,
				Watch:             &trueVal,
				LogLevel:          "debug",
			},
			changed: map[string]bool{},
			expected: Config{
				Port:              "/dev/ttyUSB1",
				Baud:              460800,
				LogDir:            "/data/can",
				FlushInterval:     10 * time.Second,
				StatusInterval:    2 * time.Second,
				Grace:             time.Second,
				FlushOnStop:       true,
				QueueLimit:        100000,
				OverflowPolicy:    "drop-oldest",
				RetentionInterval: 30 * time.Minute,
				RetentionHigh:     2 << 30,
				RetentionLow:      1 << 30,
				Watch:             true,
				LogLevel:          "debug",
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Port: "COM1",
				Baud: 57600,
			},
			changed: map[string]bool{"baud": true},
			initial: Config{
				Port: "COM3",
				Baud: 115200,
			},
			expected: Config{
				Port: "COM1",
				Baud: 115200, // unchanged because flag was set
			},
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{Grace: "a bit"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() =\n%+v\nwant\n%+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
port = "/dev/ttyUSB0"
baud = 921600
flush_interval = "5s"
queue_limit = 65536
flush_on_stop = true
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Port != "/dev/ttyUSB0" {
		t.Errorf("Port = %v, want /dev/ttyUSB0", fc.Port)
	}
	if fc.Baud != 921600 {
		t.Errorf("Baud = %v, want 921600", fc.Baud)
	}
	if fc.FlushInterval != "5s" {
		t.Errorf("FlushInterval = %v, want 5s", fc.FlushInterval)
	}
	if fc.QueueLimit != 65536 {
		t.Errorf("QueueLimit = %v, want 65536", fc.QueueLimit)
	}
	if fc.FlushOnStop == nil || !*fc.FlushOnStop {
		t.Errorf("FlushOnStop = %v, want true", fc.FlushOnStop)
	}
	if fc.Watch != nil {
		t.Errorf("Watch = %v, want unset", fc.Watch)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
port = "COM3"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".canlog") {
		t.Errorf("DefaultConfigPath() = %v, should contain .canlog", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
