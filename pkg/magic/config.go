package magic

import (
	"fmt"
	"strings"

	"github.com/gobeaver/beaver-kit/config"

	"github.com/hsiuhsiu/magic-go/pkg/magic/logging"
)

// Config configures Open. The zero value opens a handle with no flags that
// stops on errors and loads nothing.
type Config struct {
	// Flags is the initial detection mode.
	Flags Flags

	// AutoLoad loads Database (or the default database when Database is
	// empty) before Open returns.
	AutoLoad bool
	Database []string

	// ContinueOnErrors returns results despite native warnings, logging
	// each warning instead. The default stops on errors.
	ContinueOnErrors bool
	// RepeatWarnings logs every occurrence of a warning rather than the
	// first per distinct message.
	RepeatWarnings bool

	// Parameters are applied in tag order right after the cookie is
	// allocated.
	Parameters map[Param]uint64

	// Logger receives lifecycle debug logs and tolerated warnings. nil uses
	// slog.Default().
	Logger logging.Logger

	// Engine overrides the native engine, mainly for tests. nil uses the
	// system libmagic.
	Engine Engine
}

// envPrefix is prepended by the loader to every env tag below.
const envPrefix = "GOMAGIC_"

type envConfig struct {
	Flags            string `env:"FLAGS,default:none"`
	Database         string `env:"DATABASE"` // PathListSeparator-joined
	AutoLoad         bool   `env:"AUTO_LOAD,default:true"`
	ContinueOnErrors bool   `env:"CONTINUE_ON_ERRORS,default:false"`
	RepeatWarnings   bool   `env:"REPEAT_WARNINGS,default:false"`
	Parameters       string `env:"PARAMETERS"` // comma-separated name=value
}

// ConfigFromEnv builds a Config from GOMAGIC_* environment variables:
//
//	GOMAGIC_FLAGS               flag names, e.g. "mime_type|symlink"
//	GOMAGIC_DATABASE            database files joined with PathListSeparator
//	GOMAGIC_AUTO_LOAD           load the database on open (default true)
//	GOMAGIC_CONTINUE_ON_ERRORS  tolerate native warnings
//	GOMAGIC_REPEAT_WARNINGS     log every warning occurrence
//	GOMAGIC_PARAMETERS          e.g. "bytes_max=1048576,regex_max=4096"
func ConfigFromEnv() (Config, error) {
	var ec envConfig
	if err := config.Load(&ec, config.LoadOptions{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	return ec.toConfig()
}

func (ec envConfig) toConfig() (Config, error) {
	flags, err := ParseFlags(ec.Flags)
	if err != nil {
		return Config{}, fmt.Errorf("GOMAGIC_FLAGS: %w", err)
	}
	cfg := Config{
		Flags:            flags,
		AutoLoad:         ec.AutoLoad,
		Database:         splitPathList(ec.Database),
		ContinueOnErrors: ec.ContinueOnErrors,
		RepeatWarnings:   ec.RepeatWarnings,
	}
	for _, assignment := range strings.Split(ec.Parameters, ",") {
		if strings.TrimSpace(assignment) == "" {
			continue
		}
		p, v, err := ParseParamAssignment(assignment)
		if err != nil {
			return Config{}, fmt.Errorf("GOMAGIC_PARAMETERS: %w", err)
		}
		if cfg.Parameters == nil {
			cfg.Parameters = map[Param]uint64{}
		}
		cfg.Parameters[p] = v
	}
	return cfg, nil
}
