package cliconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SettingsFileName is the legacy settings file kept next to the executable.
const SettingsFileName = "config.ini"

// defaultSettings is written when no settings file exists.
const defaultSettings = "[Settings]\r\nPort=COM3\r\nBaud=115200"

// Settings are the serial parameters persisted in the legacy settings file.
type Settings struct {
	Port string
	Baud int
}

// DefaultSettingsPath returns config.ini in the executable's directory, or
// in the working directory when the executable path is unknown.
func DefaultSettingsPath() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), SettingsFileName)
	}
	return SettingsFileName
}

// EnsureSettingsFile creates path with Port=COM3 and Baud=115200 if it does
// not exist. It reports whether the file was created.
func EnsureSettingsFile(path string) (bool, error) {
	if FileExists(path) {
		return false, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, err
		}
	}
	if err := os.WriteFile(path, []byte(defaultSettings), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// LoadSettingsFile parses the Port= and Baud= lines of path. Other lines,
// including section headers, are ignored. Missing keys stay empty.
func LoadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	return parseSettings(b)
}

func parseSettings(b []byte) (Settings, error) {
	var st Settings
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "Port="):
			st.Port = strings.TrimSpace(strings.TrimPrefix(line, "Port="))
		case strings.HasPrefix(line, "Baud="):
			v := strings.TrimSpace(strings.TrimPrefix(line, "Baud="))
			baud, err := strconv.Atoi(v)
			if err != nil {
				return Settings{}, fmt.Errorf("parse Baud %q: %w", v, err)
			}
			st.Baud = baud
		}
	}
	return st, sc.Err()
}

// ApplySettings applies legacy settings to cfg, respecting explicitly set
// flags. It sits below the TOML file in precedence, so it must run first.
func ApplySettings(cfg *Config, st Settings, changed map[string]bool) {
	s := newConfigSetter(changed)
	s.setString("port", st.Port, &cfg.Port)
	s.setInt("baud", st.Baud, &cfg.Baud)
}
