package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/tubex/internal/gateway"
	"github.com/oakwood-commons/tubex/pkg/logger"
)

var (
	serveAddr        string
	serveOrigins     []string
	serveAPIBase     string
	serveSuggestBase string
	serveTimeout     time.Duration
	serveCacheTTL    time.Duration
	serveRate        float64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the data source gateway",
	Long: `Run the gateway the browser talks to. It forwards GET /?endpoint=<name>
requests to the YouTube Data API with the server-held key, and proxies the
suggestion endpoint with a browser User-Agent. The key is read from
TUBEX_API_KEY or gateway.api_key in the config file.`,
	Example: "\n  TUBEX_API_KEY=... tubex serve --addr :8080 --allow-origin http://localhost:5173\n",
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() { //nolint:gochecknoinits
	fs := serveCmd.Flags()
	fs.StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	fs.StringArrayVar(&serveOrigins, "allow-origin", nil, "allowed CORS origin, repeatable; '*' allows any (default from config)")
	fs.StringVar(&serveAPIBase, "api-base", "", "Data API base URL (default from config)")
	fs.StringVar(&serveSuggestBase, "suggest-base", "", "override the URL fetched for suggestion requests")
	fs.DurationVar(&serveTimeout, "timeout", 0, "upstream request timeout (default from config)")
	fs.DurationVar(&serveCacheTTL, "cache-ttl", 0, "response cache lifetime, 0 disables (default from config)")
	fs.Float64Var(&serveRate, "rate", 0, "requests per second allowed per client, 0 disables (default from config)")
}

// serveOptions applies the serve flags that were set on top of the config.
func serveOptions(cmd *cobra.Command) (gateway.Options, string) {
	opts := gateway.OptionsFromConfig(cfg.Gateway)
	addr := cfg.Gateway.Addr
	fs := cmd.Flags()
	if fs.Changed("addr") {
		addr = serveAddr
	}
	if fs.Changed("allow-origin") {
		opts.AllowedOrigins = serveOrigins
	}
	if fs.Changed("api-base") {
		opts.APIBase = serveAPIBase
	}
	if fs.Changed("suggest-base") {
		opts.SuggestBase = serveSuggestBase
	}
	if fs.Changed("timeout") {
		opts.Timeout = serveTimeout
	}
	if fs.Changed("cache-ttl") {
		opts.CacheTTL = serveCacheTTL
	}
	if fs.Changed("rate") {
		opts.RatePerSecond = serveRate
	}
	return opts, addr
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	lgr := logger.FromContext(ctx)
	opts, addr := serveOptions(cmd)
	opts.Logger = lgr.WithName("gateway")
	if opts.APIKey == "" {
		lgr.Info("no API key configured; Data API requests will fail", "env", "TUBEX_API_KEY")
	}
	lgr.Info("gateway listening", "addr", addr, "apiBase", opts.APIBase, "origins", opts.AllowedOrigins)
	return gateway.New(opts).ListenAndServe(ctx, addr)
}
