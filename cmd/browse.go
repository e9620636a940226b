package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/oakwood-commons/tubex/internal/feed"
	"github.com/oakwood-commons/tubex/internal/filter"
	"github.com/oakwood-commons/tubex/internal/suggest"
	"github.com/oakwood-commons/tubex/internal/ui"
	"github.com/oakwood-commons/tubex/internal/youtube"
	"github.com/oakwood-commons/tubex/pkg/logger"
	"github.com/oakwood-commons/tubex/pkg/settings"
)

var (
	gatewayURL  string
	searchQuery string
	filterExpr  string
	region      string
	noColor     bool
	logFile     string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse videos in the terminal (default command)",
	Args:  cobra.NoArgs,
	RunE:  runBrowse,
}

func init() { //nolint:gochecknoinits
	for _, c := range []*cobra.Command{rootCmd, browseCmd} {
		addBrowseFlags(c.Flags())
		_ = c.RegisterFlagCompletionFunc("filter", completeFilter)
	}
	feedCmd.Flags().StringVar(&gatewayURL, "gateway", "", "gateway base URL (default from config or $TUBEX_GATEWAY)")
	feedCmd.Flags().StringVar(&region, "region", "", "region code for the popular feed (default from config)")
	suggestCmd.Flags().StringVar(&gatewayURL, "gateway", "", "gateway base URL (default from config or $TUBEX_GATEWAY)")
}

func addBrowseFlags(fs *pflag.FlagSet) {
	fs.StringVar(&gatewayURL, "gateway", "", "gateway base URL (default from config or $TUBEX_GATEWAY)")
	fs.StringVar(&searchQuery, "search", "", "start with this search instead of the popular feed (plain text or search_query=<encoded>)")
	fs.StringVar(&filterExpr, "filter", "", "CEL predicate over v, e.g. 'v.views > 1000000 && v.duration_seconds < 600'")
	fs.StringVar(&region, "region", "", "region code for the popular feed (default from config)")
	fs.BoolVar(&noColor, "no-color", false, "disable color output")
	fs.StringVar(&logFile, "log-file", "", "write logs to this file while the browser runs")
}

// completeFilter offers the filter variables and CEL functions.
func completeFilter(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	candidates := append([]string(nil), filter.Variables...)
	if fns, err := filter.Functions(); err == nil {
		candidates = append(candidates, fns...)
	}
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, toComplete) {
			out = append(out, c)
		}
	}
	return out, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("the browser needs a terminal; use 'tubex feed' for piped output")
	}
	ctx := cmd.Context()
	lgr := logger.FromContext(ctx)
	run := settings.FromContextOrDefault(ctx)

	f, err := compileFilter(filterExpr)
	if err != nil {
		return err
	}
	query, err := parseSearch(searchQuery)
	if err != nil {
		return err
	}
	client := newClient(cmd)
	sources := sourceFactory(client)
	loader := youtube.NewFeedLoader(client, sources(""), cfg.Client.MaxItems)

	lgr.Info("starting browser", "gateway", client.Base(), "search", query)
	return ui.Run(ctx, ui.Options{
		Suggester: client,
		Sources:   sources,
		Loader:    loader,
		Suggest: suggest.Config{
			Debounce:       cfg.Suggest.Debounce,
			RefocusDelay:   cfg.Suggest.RefocusDelay,
			MaxSuggestions: cfg.Suggest.MaxSuggestions,
		},
		Filter:       f,
		Query:        query,
		ScrollMargin: cfg.UI.ScrollMargin,
		NoColor:      run.NoColor,
		Logger:       lgr.WithName("ui"),
	})
}

// parseSearch accepts either a plain query or a search_query=<encoded> value
// copied from a results URL.
func parseSearch(s string) (string, error) {
	s = strings.TrimSpace(s)
	if enc, ok := strings.CutPrefix(s, youtube.SearchQueryParam+"="); ok {
		q, err := youtube.DecodeSearchQuery(enc)
		if err != nil {
			return "", fmt.Errorf("invalid --search value %q: %w", s, err)
		}
		s = strings.TrimSpace(q)
	}
	return s, nil
}

func compileFilter(expr string) (*filter.Filter, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	return filter.New(expr)
}

// newClient builds the gateway client from the merged config and flags.
func newClient(cmd *cobra.Command) *youtube.Client {
	ctx := cmd.Context()
	base := settings.FromContextOrDefault(ctx).GatewayURL
	if base == "" {
		base = cfg.Client.Gateway
	}
	return youtube.NewClient(base,
		youtube.WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout}),
		youtube.WithLogger(logger.ForComponent(ctx, "youtube")),
	)
}

// sourceFactory maps a committed query to its feed: "" is the popular chart.
func sourceFactory(client *youtube.Client) ui.SourceFactory {
	reg := cfg.Client.Region
	if region != "" {
		reg = region
	}
	return func(query string) feed.Source[youtube.Video] {
		if query == "" {
			return youtube.PopularSource{Client: client, Region: reg, PageSize: cfg.Client.PageSize}
		}
		return youtube.SearchSource{Client: client, Query: query, PageSize: cfg.Client.SearchPageSize}
	}
}
