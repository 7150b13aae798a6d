package cliconfig

import (
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
				"CANLOG_PORT":            "/dev/ttyACM0",
				"CANLOG_BAUD":            "2000000",
				"CANLOG_LOG_DIR":         "/var/log/can",
				"CANLOG_FLUSH_INTERVAL":  "30s",
				"CANLOG_QUEUE_LIMIT":     "4096",
				"CANLOG_OVERFLOW_POLICY": "drop-newest",
				"CANLOG_RETENTION_HIGH":  "1073741824",
				"CANLOG_FLUSH_ON_STOP":   "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Port:           "/dev/ttyACM0",
				Baud:           2000000,
				LogDir:         "/var/log/can",
				FlushInterval:  30 * time.Second,
				QueueLimit:     4096,
				OverflowPolicy: "drop-newest",
				RetentionHigh:  1 << 30,
				FlushOnStop:    true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"CANLOG_PORT": "COM8",
				"CANLOG_BAUD": "9600",
			},
			changed: map[string]bool{"port": true},
			initial: Config{Port: "COM5"},
			expected: Config{
				Port: "COM5",
				Baud: 9600,
			},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"CANLOG_FLUSH_INTERVAL": "soon"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"CANLOG_BAUD": "fast"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int64",
			envVars: map[string]string{"CANLOG_RETENTION_LOW": "1GiB"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:     "handles bool '1' as true",
			envVars:  map[string]string{"CANLOG_WATCH": "1"},
			changed:  map[string]bool{},
			expected: Config{Watch: true},
		},
		{
			name:     "handles bool 'false' as false",
			envVars:  map[string]string{"CANLOG_FLUSH_ON_STOP": "false"},
			changed:  map[string]bool{},
			initial:  Config{FlushOnStop: true},
			expected: Config{FlushOnStop: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() =\n%+v\nwant\n%+v", cfg, tt.expected)
			}
		})
	}
}
