package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DeafMist/competitor-radar/internal/config"
	"github.com/DeafMist/competitor-radar/internal/dashboard"
	"github.com/DeafMist/competitor-radar/internal/dataset"
	"github.com/DeafMist/competitor-radar/internal/source"
	"github.com/DeafMist/competitor-radar/internal/taxonomy"
)

type options struct {
	lang         string
	taxonomyPath string
	log          *slog.Logger
}

func (o *options) service() (*dashboard.Service, error) {
	if o.taxonomyPath == "" {
		return dashboard.New(nil, o.log), nil
	}
	tax, err := taxonomy.Load(o.taxonomyPath)
	if err != nil {
		return nil, err
	}
	return dashboard.New(tax, o.log), nil
}

func (o *options) fallback() (string, error) {
	labels, err := config.LoadFallbackLabels()
	if err != nil {
		return "", err
	}
	return labels.For(o.lang), nil
}

func newRootCmd(log *slog.Logger) *cobra.Command {
	opts := &options{log: log}

	root := &cobra.Command{
		Use:   "classify",
		Short: "Tag competitor news and aggregate dashboard views from CSV files",
		Long: `classify runs the dashboard pipeline over local CSV exports and prints
the resulting view as JSON.

Example:
  classify news data/news.csv --tag Funding
  classify activity data/news.csv --competitor Acme --competitor Beta
  classify kpi data/funding.csv --company Acme
  classify report --news data/news.csv --snapshot data/funding.csv`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.lang, "lang", config.DefaultLanguage, "language of the no-match label")
	root.PersistentFlags().StringVar(&opts.taxonomyPath, "taxonomy", "", "YAML taxonomy file (default: built-in categories)")

	root.AddCommand(
		newNewsCmd(opts),
		tagViewCmd(opts, "summary", "Count news per tag", func(svc *dashboard.Service, tbl *dataset.Table, fallback string) any {
			return svc.TagSummary(tbl, fallback)
		}),
		tagViewCmd(opts, "competitors", "Count announcement types per competitor", func(svc *dashboard.Service, tbl *dataset.Table, fallback string) any {
			return svc.CompetitorsByTag(tbl, fallback)
		}),
		newsViewCmd(opts, "activity", "Monthly announcements per competitor", func(svc *dashboard.Service, tbl *dataset.Table, fallback string, selected []string) any {
			return svc.ActivityTimeline(tbl, fallback, selected)
		}),
		newsViewCmd(opts, "scatter", "News per competitor over time", func(svc *dashboard.Service, tbl *dataset.Table, fallback string, selected []string) any {
			return svc.CompetitorScatter(tbl, fallback, selected)
		}),
		newKPICmd(opts),
		fundingViewCmd(opts, "advanced", "Whole-snapshot KPI overview with the top funded companies", source.Snapshot, func(svc *dashboard.Service, tbl *dataset.Table) any {
			return svc.AdvancedKPI(tbl)
		}),
		fundingViewCmd(opts, "timeline", "Funding events as one-day intervals", source.History, func(svc *dashboard.Service, tbl *dataset.Table) any {
			return svc.FundingTimeline(tbl)
		}),
		newTaxonomyCmd(opts),
		newReportCmd(opts),
	)

	return root
}

func newNewsCmd(opts *options) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "news <csv>",
		Short: "Tag news and list it newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, tbl, fallback, err := opts.loadNews(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, svc.NewsFeed(tbl, dashboard.NewsFeedQuery{Tag: tag, Fallback: fallback}))
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "only list news with this tag (default: all)")
	return cmd
}

// tagViewCmd builds a command over every competitor's news. These views take
// no competitor selection.
func tagViewCmd(opts *options, use, short string, view func(*dashboard.Service, *dataset.Table, string) any) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <csv>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, tbl, fallback, err := opts.loadNews(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, view(svc, tbl, fallback))
		},
	}
}

type newsView func(svc *dashboard.Service, tbl *dataset.Table, fallback string, selected []string) any

func newsViewCmd(opts *options, use, short string, view newsView) *cobra.Command {
	var competitors []string
	cmd := &cobra.Command{
		Use:   use + " <csv>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, tbl, fallback, err := opts.loadNews(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var selected []string
			if cmd.Flags().Changed("competitor") {
				selected = append([]string{}, competitors...)
			}
			return writeJSON(cmd, view(svc, tbl, fallback, selected))
		},
	}
	cmd.Flags().StringSliceVar(&competitors, "competitor", nil, "competitors to include (default: all)")
	return cmd
}

func newKPICmd(opts *options) *cobra.Command {
	var companies []string
	cmd := &cobra.Command{
		Use:   "kpi <csv>",
		Short: "Funding snapshot KPIs for the selected companies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			tbl, err := source.Files{source.Snapshot: args[0]}.Fetch(cmd.Context(), source.Snapshot)
			if err != nil {
				return err
			}
			var selected []string
			if cmd.Flags().Changed("company") {
				selected = append([]string{}, companies...)
			}
			return writeJSON(cmd, svc.KPISnapshot(tbl, selected))
		},
	}
	cmd.Flags().StringSliceVar(&companies, "company", nil, "companies to include (default: all)")
	return cmd
}

func fundingViewCmd(opts *options, use, short, name string, view func(*dashboard.Service, *dataset.Table) any) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <csv>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			tbl, err := source.Files{name: args[0]}.Fetch(cmd.Context(), name)
			if err != nil {
				return err
			}
			return writeJSON(cmd, view(svc, tbl))
		},
	}
}

func newTaxonomyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "taxonomy",
		Short: "Print the categories in matching order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			return writeJSON(cmd, svc.Taxonomy().Categories())
		},
	}
}

type report struct {
	RunID       string                        `json:"run_id"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Tags        dashboard.TagSummaryView      `json:"tags"`
	Competitors dashboard.CompetitorTagView   `json:"competitors"`
	KPI         dashboard.AdvancedKPIView     `json:"kpi"`
	Timeline    dashboard.FundingTimelineView `json:"timeline"`
	Errors      map[string]string             `json:"errors,omitempty"`
}

func newReportCmd(opts *options) *cobra.Command {
	var newsPath, snapshotPath, historyPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the overview from all three datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			fallback, err := opts.fallback()
			if err != nil {
				return err
			}

			files := source.Files{
				source.News:     newsPath,
				source.Snapshot: snapshotPath,
				source.History:  historyPath,
			}
			data := source.LoadAll(cmd.Context(), files)

			out := report{
				RunID:       uuid.NewString(),
				GeneratedAt: time.Now().UTC(),
				Tags:        svc.TagSummary(data.News, fallback),
				Competitors: svc.CompetitorsByTag(data.News, fallback),
				KPI:         svc.AdvancedKPI(data.Snapshot),
				Timeline:    svc.FundingTimeline(data.History),
			}
			if len(data.Errors) > 0 {
				out.Errors = make(map[string]string, len(data.Errors))
				for name, err := range data.Errors {
					out.Errors[name] = err.Error()
				}
			}
			return writeJSON(cmd, out)
		},
	}

	cmd.Flags().StringVar(&newsPath, "news", "", "news CSV")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "funding snapshot CSV")
	cmd.Flags().StringVar(&historyPath, "history", "", "funding history CSV")
	return cmd
}

func (o *options) loadNews(ctx context.Context, path string) (*dashboard.Service, *dataset.Table, string, error) {
	svc, err := o.service()
	if err != nil {
		return nil, nil, "", err
	}
	fallback, err := o.fallback()
	if err != nil {
		return nil, nil, "", err
	}
	tbl, err := source.Files{source.News: path}.Fetch(ctx, source.News)
	if err != nil {
		return nil, nil, "", err
	}
	return svc, tbl, fallback, nil
}

func writeJSON(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
