package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/bassosimone/rvjit/pkg/isa"
)

// Config holds the defaults an rvjit CLI session and library caller fall
// back to when not overridden by flags or explicit API arguments.
type Config struct {
	// Target selects the default ISA profile new emitters assemble for.
	Target struct {
		Profile string `toml:"profile"` // rv32i, rv32ima, rv32gc, ...
	} `toml:"target"`

	// Buffer holds the CodeBuffer geometry. The demo command sizes its
	// buffer from Size; Alignment is loaded and saved but nothing reads
	// it (NewCodeBuffer aligns to its own 2 KiB default).
	Buffer struct {
		Size      int `toml:"size"`
		Alignment int `toml:"alignment"`
	} `toml:"buffer"`

	// Listing describes disassembly-style trace output. The demo command
	// does not read it and always writes its listing to stdout.
	Listing struct {
		Enabled bool   `toml:"enabled"`
		Output  string `toml:"output"` // "-" for stdout, else a file path
	} `toml:"listing"`
}

// DefaultConfig returns a Config populated with the built-in defaults
// used when no configuration file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Target.Profile = "rv32gc"
	cfg.Buffer.Size = 64 * 1024
	cfg.Buffer.Alignment = 4096
	cfg.Listing.Enabled = false
	cfg.Listing.Output = "-"
	return cfg
}

// ProfileISA resolves the configured profile name to an isa.ISA bitmap.
func (c *Config) ProfileISA() (isa.ISA, error) {
	switch c.Target.Profile {
	case "rv32i":
		return isa.RV32I, nil
	case "rv32ic":
		return isa.RV32IC, nil
	case "rv32ima":
		return isa.RV32IMA, nil
	case "rv32g":
		return isa.RV32G, nil
	case "rv32gc":
		return isa.RV32GC, nil
	default:
		return 0, fmt.Errorf("config: unknown target profile %q", c.Target.Profile)
	}
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "rvjit")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "rvjit.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "rvjit")

	default:
		return "rvjit.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "rvjit.toml"
	}
	return filepath.Join(configDir, "rvjit.toml")
}

// Load loads configuration from the default config file, falling back to
// DefaultConfig when no file exists.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the given path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes the configuration to the given path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config: failed to encode: %w", err)
	}
	return nil
}
