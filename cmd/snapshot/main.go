// Command snapshot captures live tournament pages so the extractor fixtures
// can be refreshed when the site layout changes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"forze-tracker/internal/config"
	"forze-tracker/internal/constants"
	"forze-tracker/internal/domain"
	"forze-tracker/internal/extract"
	"forze-tracker/internal/logger"
	"forze-tracker/internal/transport"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type options struct {
	mode    string
	out     string
	baseURL string
	parse   bool
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "snapshot",
		Short:         "Fetch tournament pages and dump their HTML",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.mode, "mode", "", "Fetch strategy: browser or http (default from HLTV_FETCH_MODE)")
	cmd.PersistentFlags().StringVar(&opts.out, "out", "", "Write the raw HTML to this file instead of stdout")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "Override HLTV_BASE_URL")
	cmd.PersistentFlags().BoolVar(&opts.parse, "parse", false, "Print the extracted records as JSON")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "matches",
			Short: "Capture the team match history page",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, opts, func(cfg *config.Config) string {
					return fmt.Sprintf("%s/stats/teams/matches/%d/%s?csVersion=CS2", cfg.HLTVBaseURL, cfg.HLTVTeamID, cfg.HLTVTeamSlug)
				}, func(doc *goquery.Document, _ *config.Config) any {
					res := extract.HLTVMatches(doc)
					skipped := make([]string, 0, len(res.Skipped))
					for _, pe := range res.Skipped {
						skipped = append(skipped, pe.Error())
					}
					return map[string]any{"matches": res.Matches, "skipped": skipped}
				})
			},
		},
		&cobra.Command{
			Use:   "players",
			Short: "Capture the team roster page",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, opts, func(cfg *config.Config) string {
					return fmt.Sprintf("%s/team/%d/%s", cfg.HLTVBaseURL, cfg.HLTVTeamID, cfg.HLTVTeamSlug)
				}, func(doc *goquery.Document, cfg *config.Config) any {
					return extract.HLTVPlayers(doc, cfg.HLTVBaseURL)
				})
			},
		},
	)
	return cmd
}

func run(
	cmd *cobra.Command,
	opts *options,
	pageURL func(*config.Config) string,
	parse func(*goquery.Document, *config.Config) any,
) error {
	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	log := logger.SetLevel(level).Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})

	cfg, err := config.Load(log)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.mode != "" {
		cfg.HLTVFetchMode = config.FetchMode(strings.ToLower(opts.mode))
	}
	if opts.baseURL != "" {
		cfg.HLTVBaseURL = strings.TrimRight(opts.baseURL, "/")
	}

	fetcher, err := transport.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), constants.ScrapeTimeout)
	defer cancel()

	start := time.Now()
	page, err := fetcher.Fetch(ctx, transport.Target{
		URL:     pageURL(cfg),
		Referer: cfg.HLTVBaseURL + "/",
		Rules:   transport.DefaultRules(),
	})
	if err != nil {
		return fmt.Errorf("fetching %s with %s: %s", pageURL(cfg), fetcher.Name(), domain.Cause(err))
	}
	log.Info().Str("url", page.URL).Int("bytes", len(page.HTML)).Dur("took", time.Since(start)).Msg("page captured")

	if err := writeHTML(cmd.OutOrStdout(), opts.out, page.HTML); err != nil {
		return err
	}
	if !opts.parse {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return fmt.Errorf("parsing html: %w", err)
	}
	b, err := sonic.ConfigStd.MarshalIndent(parse(doc, cfg), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

func writeHTML(stdout io.Writer, path, html string) error {
	if path == "" {
		_, err := io.WriteString(stdout, html)
		return err
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
