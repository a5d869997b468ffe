// Package config provides configuration management for the Type-C compiler
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Target represents what kind of artifact a project builds
type Target string

const (
	// TargetRunnable builds a binary with an entry point
	TargetRunnable Target = "runnable"

	// TargetLibrary builds an importable package with no entry point
	TargetLibrary Target = "library"
)

// IsValid reports whether the target is valid
func (t Target) IsValid() bool {
	switch t {
	case TargetRunnable, TargetLibrary:
		return true
	default:
		return false
	}
}

// Config represents the complete Type-C compiler configuration
type Config struct {
	Build     BuildConfig     `toml:"build"`
	SourceMap SourceMapConfig `toml:"sourcemaps"`
}

// BuildConfig controls compilation behavior
type BuildConfig struct {
	// OutputDir is where binaries, IR dumps, and source maps are written
	OutputDir string `toml:"output_dir"`

	// GenerateIR also emits the IR text and DOT CFG next to the binary
	GenerateIR bool `toml:"generate_ir"`

	// NoWarnings suppresses warning logs (shadowing, unused arguments)
	NoWarnings bool `toml:"no_warnings"`

	// NoGenerateBinaries stops after type checking
	NoGenerateBinaries bool `toml:"no_generate_binaries"`

	// StdlibDir overrides where the standard library clone is searched;
	// empty means the installer's default location under the user home
	StdlibDir string `toml:"stdlib_dir"`
}

// SourceMapConfig controls source map generation
type SourceMapConfig struct {
	// Enabled controls whether the program.map file is written
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			OutputDir: "bin",
		},
		SourceMap: SourceMapConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration with precedence:
// 1. CLI flags (highest priority) - passed as overrides
// 2. Project tcc.toml (project directory)
// 3. User config (~/.tcc/config.toml)
// 4. Built-in defaults (lowest priority)
func Load(projectDir string, overrides *Config) (*Config, error) {
	cfg := DefaultConfig()

	userConfigPath := filepath.Join(os.Getenv("HOME"), ".tcc", "config.toml")
	if err := loadConfigFile(userConfigPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	projectConfigPath := filepath.Join(projectDir, "tcc.toml")
	if err := loadConfigFile(projectConfigPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}

	if overrides != nil {
		if overrides.Build.OutputDir != "" {
			cfg.Build.OutputDir = overrides.Build.OutputDir
		}
		if overrides.Build.StdlibDir != "" {
			cfg.Build.StdlibDir = overrides.Build.StdlibDir
		}
		if overrides.Build.GenerateIR {
			cfg.Build.GenerateIR = true
		}
		if overrides.Build.NoWarnings {
			cfg.Build.NoWarnings = true
		}
		if overrides.Build.NoGenerateBinaries {
			cfg.Build.NoGenerateBinaries = true
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadConfigFile loads a TOML configuration file into the provided config
// If the file doesn't exist, this is not an error (we use defaults)
func loadConfigFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Build.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}

// Manifest is the project manifest decoded from module.json at the project
// root (spec §6 "Project manifest").
type Manifest struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Author       string       `json:"author"`
	Dependencies []string     `json:"dependencies"`
	Description  string       `json:"description"`
	Compiler     ManifestBody `json:"compiler"`
}

// ManifestBody is the compiler section of module.json
type ManifestBody struct {
	Target Target `json:"target"`
	Entry  string `json:"entry"`
}

// LoadManifest reads and validates module.json from the project directory
func LoadManifest(projectDir string) (*Manifest, error) {
	path := filepath.Join(projectDir, "module.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks if the manifest is well-formed
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if m.Compiler.Target == "" {
		return fmt.Errorf("compiler.target must not be empty")
	}
	if !m.Compiler.Target.IsValid() {
		return fmt.Errorf("invalid compiler.target: %q (must be 'runnable' or 'library')", m.Compiler.Target)
	}
	if m.Compiler.Target == TargetRunnable && m.Compiler.Entry == "" {
		return fmt.Errorf("compiler.entry must be set for a runnable target")
	}
	return nil
}

// WriteManifest serializes a manifest back to module.json, used by the
// `init` scaffolder
func WriteManifest(projectDir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectDir, "module.json"), append(data, '\n'), 0o644)
}
