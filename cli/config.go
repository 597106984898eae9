package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sokinpui/promp/model"
)

const (
	UIAuto  = "auto"
	UITUI   = "tui"
	UIPlain = "plain"

	localConfigFile = ".promp.yaml"
	envPrefix       = "PROMP"
)

// Config holds the effective settings after merging defaults, the config
// file, PROMP_* environment variables and command-line flags.
type Config struct {
	Dir           string      `mapstructure:"dir" yaml:"dir"`
	StagingDir    string      `mapstructure:"staging_dir" yaml:"staging_dir"`
	StagingPrefix string      `mapstructure:"staging_prefix" yaml:"staging_prefix"`
	Format        string      `mapstructure:"format" yaml:"format"`
	Yes           bool        `mapstructure:"yes" yaml:"yes"`
	DryRun        bool        `mapstructure:"dry_run" yaml:"dry_run"`
	FinalNewline  bool        `mapstructure:"final_newline" yaml:"final_newline"`
	UI            string      `mapstructure:"ui" yaml:"ui"`
	NvimReload    bool        `mapstructure:"nvim_reload" yaml:"nvim_reload"`
	Strict        bool        `mapstructure:"strict" yaml:"strict"`
	Verbose       bool        `mapstructure:"verbose" yaml:"verbose"`
	Patch         PatchConfig `mapstructure:"patch" yaml:"patch"`

	// Clipboard is a per-invocation switch and is never read from a file.
	Clipboard bool `mapstructure:"-" yaml:"-"`
	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// PatchConfig configures the external patch tool.
type PatchConfig struct {
	Command  string `mapstructure:"command" yaml:"command"`
	Strip    int    `mapstructure:"strip" yaml:"strip"`
	FixHunks bool   `mapstructure:"fix_hunks" yaml:"fix_hunks"`
}

// Dialect returns the configured payload dialect.
func (c *Config) Dialect() model.Dialect {
	d, err := model.ParseDialect(c.Format)
	if err != nil {
		return model.DialectAuto
	}
	return d
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if _, err := model.ParseDialect(c.Format); err != nil {
		return err
	}
	switch c.UI {
	case UIAuto, UITUI, UIPlain:
	default:
		return fmt.Errorf("invalid ui %q: want %s, %s or %s", c.UI, UIAuto, UITUI, UIPlain)
	}
	if c.Patch.Strip < 0 {
		return fmt.Errorf("invalid patch strip level %d", c.Patch.Strip)
	}
	if c.StagingPrefix == "" {
		return errors.New("staging prefix must not be empty")
	}
	return nil
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"dir":             "dir",
	"staging_dir":     "staging-dir",
	"staging_prefix":  "staging-prefix",
	"format":          "format",
	"yes":             "yes",
	"dry_run":         "dry-run",
	"final_newline":   "final-newline",
	"ui":              "ui",
	"nvim_reload":     "nvim-reload",
	"strict":          "strict",
	"verbose":         "verbose",
	"patch.command":   "patch-command",
	"patch.strip":     "strip",
	"patch.fix_hunks": "fix-hunks",
}

// NewViper returns a viper instance carrying every default.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("dir", "")
	v.SetDefault("staging_dir", ".promp-in")
	v.SetDefault("staging_prefix", "in-")
	v.SetDefault("format", string(model.DialectAuto))
	v.SetDefault("yes", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("final_newline", false)
	v.SetDefault("ui", UIAuto)
	v.SetDefault("nvim_reload", true)
	v.SetDefault("strict", false)
	v.SetDefault("verbose", false)
	v.SetDefault("patch.command", "patch")
	v.SetDefault("patch.strip", 1)
	v.SetDefault("patch.fix_hunks", false)
	return v
}

// Load merges defaults, the config file, the environment and flags. An
// explicit configPath must exist; otherwise .promp.yaml in the working
// directory is tried, then ~/.config/promp/config.yaml.
func Load(flags *pflag.FlagSet, configPath string) (*Config, error) {
	v := NewViper()

	file := configPath
	if file == "" {
		file = defaultConfigFile()
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if configPath != "" || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config read '%s': %w", file, err)
			}
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	if flags != nil {
		if f := flags.Lookup("clipboard"); f != nil {
			cfg.Clipboard, _ = flags.GetBool("clipboard")
		}
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	cfg.UI = strings.ToLower(strings.TrimSpace(cfg.UI))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfigFile() string {
	if _, err := os.Stat(localConfigFile); err == nil {
		return localConfigFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	global := filepath.Join(home, ".config", "promp", "config.yaml")
	if _, err := os.Stat(global); err == nil {
		return global
	}
	return ""
}
