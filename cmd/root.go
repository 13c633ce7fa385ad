package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/km-arc/service-annotations/framework/app"
	"github.com/km-arc/service-annotations/framework/config"
	"github.com/km-arc/service-annotations/framework/logging"
)

var version = "dev"

// options are the persistent flags shared by every command. A flag only
// overrides the loaded configuration when it is set explicitly.
type options struct {
	envFiles    []string
	env         string
	bundlesFile string
	logLevel    string
	logFormat   string
	port        string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "service-annotations",
		Short: "Discover annotated services and register them into a container",
		Long: `Scans the bundles listed in the manifest for Go types carrying service
metadata, either as //di: directives or as @Service annotations in the doc
comment, and registers them as container definitions.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default: .env)")
	flags.StringVarP(&opts.env, "env", "e", "", "environment to register services for (overrides APP_ENV)")
	flags.StringVarP(&opts.bundlesFile, "bundles", "b", "", "bundle manifest (overrides BUNDLES_FILE)")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug | info | warn | error (overrides LOG_LEVEL)")
	flags.StringVar(&opts.logFormat, "log-format", "", "text | json (overrides LOG_FORMAT)")

	root.AddCommand(
		newScanCmd(opts),
		newServeCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// load reads the configuration, applies explicit flags and builds the logger.
// Logs go to the command's error stream so scan output stays clean.
func (o *options) load(cmd *cobra.Command) (*config.Config, *slog.Logger) {
	cfg := config.Load(o.envFiles...)

	flags := cmd.Flags()
	if flags.Changed("env") {
		cfg.App.Env = o.env
	}
	if flags.Changed("bundles") {
		cfg.Scan.BundlesFile = o.bundlesFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if flags.Changed("port") {
		cfg.App.Port = o.port
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
}

// boot builds and boots the kernel.
func (o *options) boot(cmd *cobra.Command) (*app.Application, *slog.Logger, error) {
	cfg, logger := o.load(cmd)

	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Boot(); err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
}
