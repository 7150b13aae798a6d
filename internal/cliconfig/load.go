package cliconfig

import "fmt"

// Load layers the configuration sources onto cfg, lowest precedence first:
// legacy settings file, TOML file, then CANLOG_* environment. Values of
// flags in changed are left alone. A missing settings file at the default
// location is created with the legacy defaults; an explicit configPath
// must exist.
func Load(cfg *Config, configPath string, changed map[string]bool) error {
	if cfg.SettingsPath != "" {
		if !changed["settings"] && cfg.SettingsPath == DefaultSettingsPath() {
			if _, err := EnsureSettingsFile(cfg.SettingsPath); err != nil {
				return fmt.Errorf("create settings file: %w", err)
			}
		}
		if FileExists(cfg.SettingsPath) {
			st, err := LoadSettingsFile(cfg.SettingsPath)
			if err != nil {
				return fmt.Errorf("load settings %s: %w", cfg.SettingsPath, err)
			}
			ApplySettings(cfg, st, changed)
		} else if changed["settings"] {
			return fmt.Errorf("settings file %s not found", cfg.SettingsPath)
		}
	}

	path := configPath
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if path != "" && (explicit || FileExists(path)) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		if err := ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	return ApplyEnvConfig(cfg, changed)
}
