package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/osiris/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int         `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string      `mapstructure:"state_dir" yaml:"state_dir"`
	Shell         ShellConfig `mapstructure:"shell" yaml:"shell"`
	HTTP          HTTPConfig  `mapstructure:"http" yaml:"http"`
	SSH           SSHConfig   `mapstructure:"ssh" yaml:"ssh"`
	Auth          AuthConfig  `mapstructure:"auth" yaml:"auth"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ShellConfig controls the interactive session engine.
type ShellConfig struct {
	HostLabel      string `mapstructure:"host_label" yaml:"host_label"`
	RestoreSession bool   `mapstructure:"restore_session" yaml:"restore_session"`
	DefaultTheme   string `mapstructure:"default_theme" yaml:"default_theme"`
	ActionDelayMS  int    `mapstructure:"action_delay_ms" yaml:"action_delay_ms"`
	MinPassword    int    `mapstructure:"min_password" yaml:"min_password"`
}

// HTTPConfig configures the browser terminal server.
type HTTPConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
	BasePath     string `mapstructure:"base_path" yaml:"base_path"`
	ClientCookie string `mapstructure:"client_cookie" yaml:"client_cookie"`
}

// SSHConfig configures the SSH server.
type SSHConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath string `mapstructure:"host_key_path" yaml:"host_key_path"`
}

// AuthConfig configures auth storage and seed users.
type AuthConfig struct {
	UserFile  string     `mapstructure:"user_file" yaml:"user_file"`
	SeedUsers []SeedUser `mapstructure:"seed_users" yaml:"seed_users"`
}

// SeedUser seeds a user record in the auth store.
type SeedUser struct {
	Email        string `mapstructure:"email" yaml:"email"`
	Username     string `mapstructure:"username" yaml:"username"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".osiris", "state"),
		Shell: ShellConfig{
			HostLabel:      "osiris",
			RestoreSession: false,
			DefaultTheme:   string(schema.DefaultTheme),
			ActionDelayMS:  300,
			MinPassword:    6,
		},
		HTTP: HTTPConfig{
			Addr:         ":27480",
			BaseURL:      "",
			BasePath:     "",
			ClientCookie: "osiris_client",
		},
		SSH: SSHConfig{
			Addr:        ":27422",
			HostKeyPath: filepath.Join(home, ".osiris", "ssh_host_key"),
		},
		Auth: AuthConfig{
			UserFile:  filepath.Join(home, ".osiris", "users.json"),
			SeedUsers: []SeedUser{},
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".osiris", "config.yaml"), nil
}
