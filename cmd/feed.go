package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/tubex/internal/feed"
	"github.com/oakwood-commons/tubex/internal/youtube"
	"github.com/oakwood-commons/tubex/pkg/logger"
	"github.com/oakwood-commons/tubex/pkg/settings"
)

var (
	feedPages    int
	outputFormat string
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print popular videos or search results",
	Long: `Load one or more pages of the popular feed, or of search results with
--search, and print them. Videos are deduplicated across pages and enriched
with their channel avatars, exactly as the browser shows them.`,
	Example: "\n  tubex feed\n  tubex feed --search 'lofi hip hop' --pages 3 -o yaml\n  tubex feed --filter 'v.duration_seconds < 300' -o table\n",
	Args:    cobra.NoArgs,
	RunE:    runFeed,
}

var suggestCmd = &cobra.Command{
	Use:     "suggest <text>",
	Short:   "Print search suggestions for text",
	Example: "\n  tubex suggest how to\n  tubex suggest golang -o json\n",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSuggest,
}

func init() { //nolint:gochecknoinits
	fs := feedCmd.Flags()
	fs.StringVar(&searchQuery, "search", "", "print search results for this query instead of the popular feed (plain text or search_query=<encoded>)")
	fs.IntVar(&feedPages, "pages", 1, "number of pages to load")
	fs.StringVar(&filterExpr, "filter", "", "CEL predicate over v, e.g. 'v.views > 1000000'")
	fs.StringVarP(&outputFormat, "output", "o", outputAuto, "output format: auto|table|json|yaml|toml")
	fs.BoolVar(&noColor, "no-color", false, "disable color output")
	_ = feedCmd.RegisterFlagCompletionFunc("filter", completeFilter)
	_ = feedCmd.RegisterFlagCompletionFunc("output", completeOutput)

	sfs := suggestCmd.Flags()
	sfs.StringVarP(&outputFormat, "output", "o", outputAuto, "output format: auto|table|json|yaml|toml")
	sfs.BoolVar(&noColor, "no-color", false, "disable color output")
	_ = suggestCmd.RegisterFlagCompletionFunc("output", completeOutput)
}

func runFeed(cmd *cobra.Command, _ []string) error {
	if feedPages < 1 {
		return fmt.Errorf("--pages must be at least 1, got %d", feedPages)
	}
	ctx := cmd.Context()
	lgr := logger.FromContext(ctx)
	out := cmd.OutOrStdout()
	format, err := resolveOutput(outputFormat, out)
	if err != nil {
		return err
	}
	f, err := compileFilter(filterExpr)
	if err != nil {
		return err
	}

	query, err := parseSearch(searchQuery)
	if err != nil {
		return err
	}
	client := newClient(cmd)
	loader := youtube.NewFeedLoader(client, sourceFactory(client)(query), cfg.Client.MaxItems)
	for page := 1; page <= feedPages; page++ {
		res, err := loader.LoadNext(ctx)
		if errors.Is(err, feed.ErrExhausted) {
			break
		}
		if err != nil {
			return fmt.Errorf("load page %d: %w", page, err)
		}
		if res.EnrichErr != nil {
			lgr.V(1).Info("channel lookup failed", "error", res.EnrichErr.Error())
		}
		lgr.V(1).Info("loaded page", "page", page, "added", res.Added, "total", res.Total, "hasMore", res.HasMore)
	}

	videos, err := f.Apply(loader.Items())
	if err != nil {
		return err
	}
	records := make([]videoRecord, 0, len(videos))
	for _, v := range videos {
		rec := newVideoRecord(v)
		if ch, ok := loader.Meta(v.ChannelID); ok {
			rec.ChannelAvatar = ch.Avatar
		}
		records = append(records, rec)
	}
	return writeVideos(out, format, records, settings.FromContextOrDefault(ctx).NoColor)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	format, err := resolveOutput(outputFormat, out)
	if err != nil {
		return err
	}
	list, err := newClient(cmd).Suggestions(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return writeSuggestions(out, format, list)
}
