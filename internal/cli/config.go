package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tailscale/hujson"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
)

var (
	errConfigFileRead = errors.New("cannot read config file")
	errConfigInvalid  = errors.New("invalid config")
)

// fileConfig is the on-disk configuration. Comments and trailing commas
// are allowed (HuJSON).
type fileConfig struct {
	Flags            string            `json:"flags,omitempty"`
	Database         []string          `json:"database,omitempty"`
	Parameters       map[string]uint64 `json:"parameters,omitempty"`
	ContinueOnErrors bool              `json:"continue_on_errors,omitempty"`
	RepeatWarnings   bool              `json:"repeat_warnings,omitempty"`
	Output           string            `json:"output,omitempty"`
	Jobs             int               `json:"jobs,omitempty"`
}

// defaultConfigPath returns $XDG_CONFIG_HOME/gomagic/config.json, falling
// back to ~/.config. It returns "" when neither is known.
func defaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gomagic", "config.json")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".config", "gomagic", "config.json")
	}
	return ""
}

// loadConfigFile reads path. A missing file is only an error when
// mustExist is set.
func loadConfigFile(path string, mustExist bool) (fileConfig, error) {
	if path == "" {
		return fileConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("%w: %s", errConfigFileRead, path)
	}
	fc, err := parseConfig(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return fc, nil
}

func parseConfig(data []byte) (fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	var fc fileConfig
	if err := json.Unmarshal(standardized, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return fc, nil
}

// apply copies the file settings into cfg.
func (fc fileConfig) apply(cfg *magic.Config) error {
	if fc.Flags != "" {
		f, err := magic.ParseFlags(fc.Flags)
		if err != nil {
			return fmt.Errorf("flags: %w", err)
		}
		cfg.Flags = f
	}
	if len(fc.Database) > 0 {
		cfg.Database = fc.Database
	}
	cfg.ContinueOnErrors = cfg.ContinueOnErrors || fc.ContinueOnErrors
	cfg.RepeatWarnings = cfg.RepeatWarnings || fc.RepeatWarnings

	names := make([]string, 0, len(fc.Parameters))
	for name := range fc.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := magic.ParseParam(name)
		if err != nil {
			return fmt.Errorf("parameters: %w", err)
		}
		setParam(cfg, p, fc.Parameters[name])
	}
	return nil
}

// applyEnv overlays the GOMAGIC_* variables that are actually set.
func applyEnv(cfg *magic.Config) error {
	env, err := magic.ConfigFromEnv()
	if err != nil {
		return err
	}
	if isSet("GOMAGIC_FLAGS") {
		cfg.Flags = env.Flags
	}
	if isSet("GOMAGIC_DATABASE") {
		cfg.Database = env.Database
	}
	if isSet("GOMAGIC_CONTINUE_ON_ERRORS") {
		cfg.ContinueOnErrors = env.ContinueOnErrors
	}
	if isSet("GOMAGIC_REPEAT_WARNINGS") {
		cfg.RepeatWarnings = env.RepeatWarnings
	}
	for p, v := range env.Parameters {
		setParam(cfg, p, v)
	}
	return nil
}

func isSet(name string) bool {
	v, ok := os.LookupEnv(name)
	return ok && v != ""
}

func setParam(cfg *magic.Config, p magic.Param, v uint64) {
	if cfg.Parameters == nil {
		cfg.Parameters = map[magic.Param]uint64{}
	}
	cfg.Parameters[p] = v
}
