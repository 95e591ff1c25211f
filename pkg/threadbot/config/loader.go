package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches environment variable references in config values:
//   - ${VAR}
//   - ${VAR:-default}
//   - ${VAR:?message}
//   - $VAR
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::(-|\?)([^}]*))?\}|\$([A-Z_][A-Z0-9_]*)`)

// envFiles are loaded before the config is parsed. Existing variables win.
var envFiles = []string{".env", ".env.local"}

// Load reads the config file at path. An empty path triggers discovery;
// when nothing is found the defaults are used. The returned path is the
// file actually read, or empty.
func Load(path string) (*Config, string, error) {
	loadEnvFiles()

	if path == "" {
		path = FindConfigFile()
	}
	if path == "" {
		cfg := DefaultConfig()
		return cfg, "", cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	resolveRelativePaths(cfg, path)
	return cfg, path, nil
}

// Parse expands environment references in data and overlays it on the
// defaults.
func Parse(data []byte) (*Config, error) {
	expanded, err := expandEnvVars(string(data))
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRaw reads the config file at path as written: environment
// references stay unexpanded and storage.path stays relative. Use it to
// edit and re-save a config; use Load to run with one.
func LoadRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: parsing config YAML: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML with owner-only permissions. The file is
// replaced atomically; an existing file is kept as <path>.bak. Save does
// not resolve anything, so cfg should come from LoadRaw or DefaultConfig.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if existing, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(path+".bak", existing, 0o600)
	}

	tmp, err := os.CreateTemp(dir, ".threadbot-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}

// FindConfigFile searches the standard locations.
func FindConfigFile() string {
	candidates := []string{
		"threadbot.yaml",
		"threadbot.yml",
		"config.yaml",
		"config.yml",
		"configs/threadbot.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func loadEnvFiles() {
	for _, f := range envFiles {
		// godotenv.Load does NOT overwrite existing env vars.
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces environment references. Unset variables without
// a modifier keep their placeholder; ${VAR:?message} with VAR unset is an
// error.
func expandEnvVars(input string) (string, error) {
	var firstErr error
	out := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, modifier, value, bare := sub[1], sub[2], sub[3], sub[4]

		if bare != "" {
			if val, ok := os.LookupEnv(bare); ok {
				return val
			}
			return match
		}
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		switch modifier {
		case "-":
			return value
		case "?":
			if firstErr == nil {
				if value == "" {
					value = "required environment variable not set"
				}
				firstErr = fmt.Errorf("config error: %s - %s", name, value)
			}
			return ""
		}
		return match
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// resolveRelativePaths anchors the storage path at the config file's
// directory so the bot can be started from anywhere.
func resolveRelativePaths(cfg *Config, configPath string) {
	p := cfg.Storage.Path
	if p == "" || filepath.IsAbs(p) {
		return
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Storage.Path = filepath.Join(home, p[2:])
		}
		return
	}
	cfg.Storage.Path = filepath.Join(filepath.Dir(configPath), p)
}

// IsEnvReference reports whether s is still an unexpanded ${VAR} placeholder.
func IsEnvReference(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}")
}
