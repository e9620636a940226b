package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/tubex/internal/config"
	"github.com/oakwood-commons/tubex/pkg/logger"
	"github.com/oakwood-commons/tubex/pkg/settings"
)

var (
	configFile string
	debug      bool

	// cfg is the merged configuration, loaded before any command runs.
	cfg config.Config

	// logSink is the log file opened for the browser, closed after the run.
	logSink io.Closer
)

var rootCmd = &cobra.Command{
	Use:   settings.CliBinaryName,
	Short: "Browse YouTube from the terminal",
	Long: `tubex is a terminal video browser: a search box with incremental
suggestions above an infinitely scrolling list of popular videos or search
results. The browser talks to a small gateway ("tubex serve") that holds the
Data API key and proxies suggestion requests.`,
	Example: "\n  tubex serve &\n  tubex\n  tubex --search 'lofi hip hop'\n  tubex feed --search golang -o json\n  tubex suggest 'how to'\n",
	Args:    cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logSink != nil {
			logger.Sync()
			_ = logSink.Close()
			logSink = nil
		}
	},
	SilenceUsage: true,
	RunE:         runBrowse,
}

// setup loads configuration and attaches the run settings and logger to the
// command context.
func setup(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(config.ResolvePath(configFile))
	if err != nil {
		return err
	}

	run := settings.NewCliParams()
	run.Mode = modeFor(cmd)
	run.Interactive = run.Mode == settings.ModeBrowse
	run.LogFile = logFile
	run.NoColor = noColor || cfg.UI.NoColor || os.Getenv("NO_COLOR") != ""
	run.GatewayURL = cfg.Client.Gateway
	if gatewayURL != "" {
		run.GatewayURL = gatewayURL
	}
	// Map CLI debug flag to log level: debug => zap.DebugLevel (-1), else zap.InfoLevel (0)
	if debug {
		run.MinLogLevel = -1
	}

	opts := logger.Options{Level: run.MinLogLevel}
	if run.Mode == settings.ModeBrowse {
		switch {
		case run.LogFile != "":
			f, err := os.OpenFile(run.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			logSink = f
			opts.Output = f
		case run.LogsToTerminal():
			// the alternate screen owns the terminal
			opts.Output = io.Discard
		}
	}
	lgr := logger.Init(opts)
	lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

	ctx := logger.WithLogger(cmd.Context(), lgr)
	ctx = settings.IntoContext(ctx, run)
	cmd.SetContext(ctx)
	return nil
}

func modeFor(cmd *cobra.Command) settings.Mode {
	switch cmd.Name() {
	case settings.CliBinaryName, "browse":
		return settings.ModeBrowse
	case "serve":
		return settings.ModeServe
	default:
		return settings.ModeOneShot
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print tubex version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), cliVersionString())
		return err
	},
}

func cliVersionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)",
		settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the merged configuration as YAML",
	Long: `Print the configuration tubex would run with: the built-in defaults,
overlaid with the config file and the TUBEX_API_KEY and TUBEX_GATEWAY
environment variables. The API key is redacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configFile, "config-file", "", "path to a YAML config file (default $XDG_CONFIG_HOME/tubex/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.Version = cliVersionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.AddCommand(browseCmd, serveCmd, feedCmd, suggestCmd, configCmd, versionCmd)
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
