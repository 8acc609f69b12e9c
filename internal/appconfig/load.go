package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/osiris/schema"
)

// Load reads configuration from path, or DefaultConfigPath when path is
// empty. A missing file yields the defaults; a present file must carry the
// current config_version.
func Load(path string) (Config, error) {
	path, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	defaults, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := registerDefaults(v, defaults); err != nil {
		return Config{}, err
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := checkVersion(v); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.Auth.UserFile = expandEnv(cfg.Auth.UserFile)

	if err := errors.Join(validateShellConfig(&cfg.Shell), validateHTTPConfig(cfg.HTTP)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultConfigPath()
}

// registerDefaults flattens the default config into dotted viper keys so a
// file only needs to name what it overrides.
func registerDefaults(v *viper.Viper, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	setDefaultTree(v, "", tree)
	return nil
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setDefaultTree(v, key, sub)
			continue
		}
		v.SetDefault(key, value)
	}
}

func checkVersion(v *viper.Viper) error {
	if !v.InConfig("config_version") {
		return fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
	}
	if got := v.GetInt("config_version"); got != CurrentConfigVersion {
		return fmt.Errorf("unsupported config_version %d; expected %d", got, CurrentConfigVersion)
	}
	return nil
}

func validateShellConfig(cfg *ShellConfig) error {
	var errs []error
	if cfg.ActionDelayMS < 0 {
		errs = append(errs, errors.New("shell.action_delay_ms must not be negative"))
	}
	if cfg.MinPassword < 1 {
		errs = append(errs, errors.New("shell.min_password must be at least 1"))
	}
	if name, ok := schema.NormalizeThemeName(cfg.DefaultTheme); ok {
		cfg.DefaultTheme = string(name)
	} else {
		errs = append(errs, fmt.Errorf("shell.default_theme %q: %w", cfg.DefaultTheme, schema.ErrInvalidTheme))
	}
	return errors.Join(errs...)
}

func validateHTTPConfig(cfg HTTPConfig) error {
	var errs []error
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, errors.New("http.base_url must include scheme and host (e.g. https://example.com)"))
		}
	}
	switch basePath := strings.TrimSpace(cfg.BasePath); {
	case strings.Contains(basePath, "://"):
		errs = append(errs, errors.New("http.base_path must be a path prefix, not a URL"))
	case strings.ContainsAny(basePath, "?#"):
		errs = append(errs, errors.New("http.base_path must not include query or fragment"))
	}
	if strings.TrimSpace(cfg.ClientCookie) == "" {
		errs = append(errs, errors.New("http.client_cookie is required"))
	}
	return errors.Join(errs...)
}

// expandEnv expands $VAR references, leaving unknown ones untouched. $UID
// and $GID resolve to the process ids when not set in the environment.
func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		switch key {
		case "":
			return ""
		case "UID":
			return strconv.Itoa(os.Getuid())
		case "GID":
			return strconv.Itoa(os.Getgid())
		}
		return "$" + key
	})
}

// WriteDefault writes the default config to path (DefaultConfigPath when
// empty) and returns where it went.
func WriteDefault(path string, overwrite bool) (string, error) {
	path, err := resolvePath(path)
	if err != nil {
		return "", err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}
	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
