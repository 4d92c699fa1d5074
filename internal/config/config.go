package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config represents the Plugdeck configuration
type Config struct {
	// Installer settings
	PythonExe      string   `json:"python_exe"`
	CondaPrefix    string   `json:"conda_prefix"`
	DefaultTool    string   `json:"default_tool"`
	Channels       []string `json:"channels"`
	ExtraIndexURLs []string `json:"extra_index_urls"`
	CriticalPins   []string `json:"critical_pins"`

	// Catalog settings
	CatalogURL string `json:"catalog_url"`

	// UI preferences
	Theme string `json:"theme"`
	Debug bool   `json:"debug"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		PythonExe:      "", // resolved at runtime
		CondaPrefix:    "",
		DefaultTool:    "", // auto-detect from the environment
		Channels:       []string{"conda-forge"},
		ExtraIndexURLs: nil,
		CriticalPins:   nil,
		CatalogURL:     "https://api.pictor.dev",
		Theme:          "slate",
		Debug:          false,
	}
}

// Manager handles configuration loading and saving
type Manager struct {
	dataDir    string
	configPath string
	config     *Config
}

// NewManager creates a configuration manager rooted at baseDir. All Plugdeck
// state (config, logs, history) lives under baseDir/.plugdeck.
func NewManager(baseDir string) *Manager {
	dataDir := filepath.Join(baseDir, ".plugdeck")
	return &Manager{
		dataDir:    dataDir,
		configPath: filepath.Join(dataDir, "config.json"),
		config:     DefaultConfig(),
	}
}

// DataDir returns the .plugdeck directory this manager writes under.
func (m *Manager) DataDir() string {
	return m.dataDir
}

// Load reads the configuration from disk, creating defaults if needed
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create .plugdeck directory: %w", err)
	}

	if err := m.ensureGitignore(); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		// First run, write the defaults
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}

	m.expandEnvVars(config)

	m.config = config
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// Set updates a configuration value and saves. List-valued keys take a
// comma-separated string.
func (m *Manager) Set(key, value string) error {
	switch key {
	case "python_exe":
		m.config.PythonExe = value
	case "conda_prefix":
		m.config.CondaPrefix = value
	case "default_tool":
		if value != "" && value != "pip" && value != "conda" {
			return fmt.Errorf("default_tool must be pip, conda, or empty, got %q", value)
		}
		m.config.DefaultTool = value
	case "channels":
		m.config.Channels = splitList(value)
	case "extra_index_urls":
		m.config.ExtraIndexURLs = splitList(value)
	case "critical_pins":
		m.config.CriticalPins = splitList(value)
	case "catalog_url":
		m.config.CatalogURL = value
	case "theme":
		m.config.Theme = value
	case "debug":
		debug, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("debug must be true or false, got %q", value)
		}
		m.config.Debug = debug
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return m.Save()
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ensureGitignore creates a .gitignore in .plugdeck/ with smart defaults
func (m *Manager) ensureGitignore() error {
	gitignorePath := filepath.Join(m.dataDir, ".gitignore")

	if _, err := os.Stat(gitignorePath); !os.IsNotExist(err) {
		return nil // Already exists
	}

	gitignoreContent := `# Plugdeck data directory .gitignore
#
# Config is worth committing; logs and job history are machine-local.

*.log
*.tmp
history/

!config.json
!.gitignore
`

	return os.WriteFile(gitignorePath, []byte(gitignoreContent), 0o644)
}

// expandEnvVars expands environment variables in config values
func (m *Manager) expandEnvVars(config *Config) {
	config.PythonExe = expandString(config.PythonExe)
	config.CondaPrefix = expandString(config.CondaPrefix)
	config.CatalogURL = expandString(config.CatalogURL)
	for i, url := range config.ExtraIndexURLs {
		config.ExtraIndexURLs[i] = expandString(url)
	}
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandString expands environment variables in a string
// Supports $VAR and ${VAR} syntax
func expandString(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			// ${VAR} format
			varName = match[2 : len(match)-1]
		} else {
			// $VAR format
			varName = match[1:]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		// Return original if env var not found
		return match
	})
}
