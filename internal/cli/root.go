package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
	"github.com/hsiuhsiu/magic-go/pkg/magic/logging"
)

// errClassify is returned when at least one target could not be classified.
// The per-target errors have already been printed.
var errClassify = errors.New("some files could not be classified")

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	configPath       string
	database         []string
	parameters       []string
	continueOnErrors bool
	repeatWarnings   bool
	output           string
	debug            bool

	// classification only
	mime         bool
	mimeType     bool
	mimeEncoding bool
	extension    bool
	keepGoing    bool
	dereference  bool
	uncompress   bool
	raw          bool
	brief        bool
	flags        string
	jobs         int

	engine magic.Engine
}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(version, nil)
}

// newRootCommand builds the command tree. A nil engine selects the linked
// libmagic.
func newRootCommand(version string, engine magic.Engine) *cobra.Command {
	opts := &rootOptions{engine: engine}

	cmd := &cobra.Command{
		Use:           "gomagic [flags] FILE...",
		Short:         "Identify files by their contents",
		Long:          "gomagic classifies files with libmagic. Use - to read standard input.",
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, args, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/gomagic/config.json)")
	pf.StringArrayVarP(&opts.database, "magic-file", "m", nil, "Database file to load (repeatable)")
	pf.StringArrayVarP(&opts.parameters, "parameter", "P", nil, "Engine parameter (format: name=value)")
	pf.BoolVar(&opts.continueOnErrors, "continue-on-errors", false, "Report database warnings instead of failing")
	pf.BoolVar(&opts.repeatWarnings, "repeat-warnings", false, "Log every warning, not only the first of each kind")
	pf.StringVarP(&opts.output, "output", "o", "", "Output format: text, json or yaml")
	pf.BoolVar(&opts.debug, "debug", false, "Log handle activity to stderr")

	f := cmd.Flags()
	f.BoolVarP(&opts.mime, "mime", "i", false, "Output MIME type and encoding")
	f.BoolVar(&opts.mimeType, "mime-type", false, "Output the MIME type")
	f.BoolVar(&opts.mimeEncoding, "mime-encoding", false, "Output the MIME encoding")
	f.BoolVar(&opts.extension, "extension", false, "Output valid extensions")
	f.BoolVarP(&opts.keepGoing, "keep-going", "k", false, "Report every match, not just the first")
	f.BoolVarP(&opts.dereference, "dereference", "L", false, "Follow symlinks")
	f.BoolVarP(&opts.uncompress, "uncompress", "z", false, "Look inside compressed files")
	f.BoolVarP(&opts.raw, "raw", "r", false, "Don't escape unprintable characters")
	f.BoolVarP(&opts.brief, "brief", "b", false, "Don't prepend file names")
	f.StringVar(&opts.flags, "flags", "", "Raw flag names, e.g. mime_type|symlink")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "Number of handles to classify with (default: number of CPUs)")

	cmd.AddCommand(
		newCheckCommand(opts),
		newCompileCommand(opts),
		newPathsCommand(opts),
		newVersionCommand(opts),
		newFlagsCommand(),
		newParamsCommand(opts),
	)

	return cmd
}

// settings is the resolved configuration for one invocation.
type settings struct {
	cfg    magic.Config
	output string
	jobs   int
}

// resolve merges the config file, the GOMAGIC_* environment and the
// command line, in that order.
func (o *rootOptions) resolve(cmd *cobra.Command) (settings, error) {
	path, mustExist := o.configPath, true
	if path == "" {
		path, mustExist = defaultConfigPath(), false
	}
	fc, err := loadConfigFile(path, mustExist)
	if err != nil {
		return settings{}, err
	}

	s := settings{
		cfg:    magic.Config{AutoLoad: true},
		output: fc.Output,
		jobs:   fc.Jobs,
	}
	if err := fc.apply(&s.cfg); err != nil {
		return settings{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := applyEnv(&s.cfg); err != nil {
		return settings{}, err
	}

	if len(o.database) > 0 {
		s.cfg.Database = o.database
	}
	for _, a := range o.parameters {
		p, v, err := magic.ParseParamAssignment(a)
		if err != nil {
			return settings{}, err
		}
		setParam(&s.cfg, p, v)
	}
	if o.continueOnErrors {
		s.cfg.ContinueOnErrors = true
	}
	if o.repeatWarnings {
		s.cfg.RepeatWarnings = true
	}
	if cmd.Flags().Changed("output") || s.output == "" {
		s.output = o.output
	}
	if cmd.Flags().Changed("jobs") {
		s.jobs = o.jobs
	}
	if s.jobs < 1 {
		s.jobs = runtime.NumCPU()
	}
	if err := checkOutput(s.output); err != nil {
		return settings{}, err
	}

	flags, err := o.classifyFlags()
	if err != nil {
		return settings{}, err
	}
	s.cfg.Flags |= flags

	s.cfg.Logger = o.logger(cmd)
	s.cfg.Engine = o.engine
	return s, nil
}

// classifyFlags collects the flag bits requested on the command line.
func (o *rootOptions) classifyFlags() (magic.Flags, error) {
	var f magic.Flags
	if o.flags != "" {
		parsed, err := magic.ParseFlags(o.flags)
		if err != nil {
			return 0, err
		}
		f |= parsed
	}
	for _, b := range []struct {
		set  bool
		flag magic.Flags
	}{
		{o.mime, magic.Mime},
		{o.mimeType, magic.MimeType},
		{o.mimeEncoding, magic.MimeEncoding},
		{o.extension, magic.Extension},
		{o.keepGoing, magic.Continue},
		{o.dereference, magic.Symlink},
		{o.uncompress, magic.Compress},
		{o.raw, magic.Raw},
	} {
		if b.set {
			f |= b.flag
		}
	}
	return f, nil
}

func (o *rootOptions) logger(cmd *cobra.Command) logging.Logger {
	level := slog.LevelWarn
	if o.debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	return logging.New(slog.New(h))
}

// open resolves settings and opens a handle. The caller closes it.
func (o *rootOptions) open(cmd *cobra.Command, autoLoad bool) (*magic.Magic, settings, error) {
	s, err := o.resolve(cmd)
	if err != nil {
		return nil, settings{}, err
	}
	s.cfg.AutoLoad = autoLoad
	m, err := magic.Open(s.cfg)
	if err != nil {
		return nil, settings{}, err
	}
	return m, s, nil
}
