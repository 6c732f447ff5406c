// Package dashboard assembles the per-view structures served to the dashboard
// from decoded datasets and the caller's filter selections.
package dashboard

import (
	"log/slog"

	"github.com/DeafMist/competitor-radar/internal/aggregate"
	"github.com/DeafMist/competitor-radar/internal/dataset"
	"github.com/DeafMist/competitor-radar/internal/logger"
	"github.com/DeafMist/competitor-radar/internal/models"
	"github.com/DeafMist/competitor-radar/internal/processing"
	"github.com/DeafMist/competitor-radar/internal/taxonomy"
)

// Service runs normalization, tagging and aggregation for each view.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	tax *taxonomy.Taxonomy
	log *slog.Logger
}

// New creates a Service. A nil taxonomy selects the built-in one.
func New(tax *taxonomy.Taxonomy, log *slog.Logger) *Service {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Service{tax: tax, log: logger.OrDiscard(log)}
}

// Taxonomy returns the taxonomy used for tagging.
func (s *Service) Taxonomy() *taxonomy.Taxonomy { return s.tax }

// NewsFeedQuery selects the news feed view.
type NewsFeedQuery struct {
	Tag      string
	Fallback string
}

// NewsFeedView lists tagged news, newest first.
type NewsFeedView struct {
	TagOptions []string            `json:"tag_options"`
	Selected   string              `json:"selected_tag"`
	Items      []models.NewsRecord `json:"items"`
	NoData     bool                `json:"no_data"`
}

// TagSummaryView counts news per tag.
type TagSummaryView struct {
	Counts []aggregate.TagCount `json:"counts"`
	Total  int                  `json:"total"`
	NoData bool                 `json:"no_data"`
}

// ActivityView is the monthly announcement series per competitor.
type ActivityView struct {
	Competitors []string               `json:"competitors"`
	Selected    []string               `json:"selected"`
	Points      []aggregate.MonthCount `json:"points"`
	NoData      bool                   `json:"no_data"`
}

// CompetitorTagView counts announcement types per competitor.
type CompetitorTagView struct {
	Counts []aggregate.CompetitorTagCount `json:"counts"`
	NoData bool                           `json:"no_data"`
}

// CompetitorSeries is the scatter series for one competitor.
type CompetitorSeries struct {
	Competitor string              `json:"competitor"`
	Records    []models.NewsRecord `json:"records"`
}

// ScatterView holds one series per selected competitor that has news.
type ScatterView struct {
	Competitors []string           `json:"competitors"`
	Series      []CompetitorSeries `json:"series"`
	NoData      bool               `json:"no_data"`
}

// KPISnapshotView is the filtered funding snapshot with derived ratios.
type KPISnapshotView struct {
	Companies         []string                       `json:"companies"`
	Selected          []string                       `json:"selected"`
	Summary           aggregate.KPISummary           `json:"summary"`
	Leaderboard       []models.FundingSnapshotRecord `json:"leaderboard"`
	FundingPerProduct []aggregate.DerivedValue       `json:"funding_per_product,omitempty"`
	PatentsPerTrial   []aggregate.DerivedValue       `json:"patents_per_trial,omitempty"`
	NoData            bool                           `json:"no_data"`
}

// AdvancedKPIView is the whole-snapshot overview with the top funded companies.
type AdvancedKPIView struct {
	Summary aggregate.KPISummary           `json:"summary"`
	Matrix  []models.FundingSnapshotRecord `json:"matrix"`
	Top     []models.FundingSnapshotRecord `json:"top"`
	NoData  bool                           `json:"no_data"`
}

// FundingTimelineView holds one interval per dated funding event.
type FundingTimelineView struct {
	Intervals []models.FundingInterval `json:"intervals"`
	NoData    bool                     `json:"no_data"`
}

// TopFundedCount is how many companies the advanced view highlights.
const TopFundedCount = 3

func (s *Service) news(tbl *dataset.Table, fallback string) []models.NewsRecord {
	records, stats := processing.NormalizeNews(tbl, s.tax, fallback)
	s.logStats("news", stats)
	return records
}

func (s *Service) snapshot(tbl *dataset.Table) []models.FundingSnapshotRecord {
	records, stats := processing.NormalizeSnapshot(tbl)
	s.logStats("snapshot", stats)
	return records
}

func (s *Service) logStats(name string, stats processing.Stats) {
	if len(stats.MissingColumns) > 0 {
		s.log.Warn("dataset is missing columns",
			slog.String("dataset", name),
			slog.Any("columns", stats.MissingColumns),
		)
		return
	}
	if stats.Dropped > 0 {
		s.log.Debug("dropped malformed rows",
			slog.String("dataset", name),
			slog.Int("dropped", stats.Dropped),
			slog.Int("total", stats.Total),
		)
	}
}

// NewsFeed filters news by tag and sorts it newest first. An empty tag means AllTags.
func (s *Service) NewsFeed(tbl *dataset.Table, q NewsFeedQuery) NewsFeedView {
	records := s.news(tbl, q.Fallback)
	tag := q.Tag
	if tag == "" {
		tag = aggregate.AllTags
	}

	items := aggregate.SortByDateDesc(aggregate.FilterByTag(records, tag))
	return NewsFeedView{
		TagOptions: append([]string{aggregate.AllTags}, aggregate.Tags(records)...),
		Selected:   tag,
		Items:      items,
		NoData:     len(records) == 0,
	}
}

// TagSummary counts news per tag.
func (s *Service) TagSummary(tbl *dataset.Table, fallback string) TagSummaryView {
	records := s.news(tbl, fallback)
	return TagSummaryView{
		Counts: aggregate.SortTagCounts(aggregate.CountByTag(records)),
		Total:  len(records),
		NoData: len(records) == 0,
	}
}

// ActivityTimeline counts announcements per month for the selected
// competitors. A nil selection means every competitor.
func (s *Service) ActivityTimeline(tbl *dataset.Table, fallback string, competitors []string) ActivityView {
	records := s.news(tbl, fallback)
	all := aggregate.Competitors(records)
	if competitors == nil {
		competitors = all
	}

	filtered := aggregate.FilterByCompetitors(records, competitors)
	return ActivityView{
		Competitors: all,
		Selected:    competitors,
		Points:      aggregate.SortMonthCounts(aggregate.CountByMonthAndCompetitor(filtered)),
		NoData:      len(records) == 0,
	}
}

// CompetitorsByTag counts announcement types per competitor.
func (s *Service) CompetitorsByTag(tbl *dataset.Table, fallback string) CompetitorTagView {
	records := s.news(tbl, fallback)
	return CompetitorTagView{
		Counts: aggregate.SortCompetitorTagCounts(aggregate.CountByCompetitorAndTag(records)),
		NoData: len(records) == 0,
	}
}

// CompetitorScatter returns each selected competitor's records. A nil
// selection means every competitor.
func (s *Service) CompetitorScatter(tbl *dataset.Table, fallback string, competitors []string) ScatterView {
	records := s.news(tbl, fallback)
	all := aggregate.Competitors(records)
	if competitors == nil {
		competitors = all
	}

	series := make([]CompetitorSeries, 0, len(competitors))
	seen := make(map[string]struct{}, len(competitors))
	for _, c := range competitors {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		sub := aggregate.FilterByCompetitors(records, []string{c})
		if len(sub) == 0 {
			continue
		}
		series = append(series, CompetitorSeries{Competitor: c, Records: sub})
	}

	return ScatterView{
		Competitors: all,
		Series:      series,
		NoData:      len(records) == 0,
	}
}

// KPISnapshot summarizes the selected companies. A nil selection means every company.
func (s *Service) KPISnapshot(tbl *dataset.Table, companies []string) KPISnapshotView {
	rows := s.snapshot(tbl)
	all := aggregate.Companies(rows)
	if companies == nil {
		companies = all
	}
	filtered := aggregate.FilterCompanies(rows, companies)

	view := KPISnapshotView{
		Companies:   all,
		Selected:    companies,
		Summary:     aggregate.SummarizeSnapshot(filtered),
		Leaderboard: aggregate.Leaderboard(filtered),
		NoData:      len(rows) == 0,
	}

	if perProduct := aggregate.RatioColumn(filtered, models.MetricFunding, models.MetricActiveProducts); aggregate.AnyComputed(perProduct) {
		view.FundingPerProduct = perProduct
	}
	if perTrial := aggregate.RatioColumn(filtered, models.MetricPatentsFiled, models.MetricClinicalTrials); aggregate.AnyComputed(perTrial) {
		view.PatentsPerTrial = perTrial
	}

	return view
}

// AdvancedKPI summarizes the whole snapshot and picks the best funded companies.
func (s *Service) AdvancedKPI(tbl *dataset.Table) AdvancedKPIView {
	rows := s.snapshot(tbl)
	return AdvancedKPIView{
		Summary: aggregate.SummarizeSnapshot(rows),
		Matrix:  rows,
		Top:     aggregate.TopByFunding(rows, TopFundedCount),
		NoData:  len(rows) == 0,
	}
}

// FundingTimeline turns funding history into one-day intervals.
func (s *Service) FundingTimeline(tbl *dataset.Table) FundingTimelineView {
	history, stats := processing.NormalizeHistory(tbl)
	s.logStats("history", stats)
	return FundingTimelineView{
		Intervals: aggregate.FundingIntervals(history),
		NoData:    len(history) == 0,
	}
}
