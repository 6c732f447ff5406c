package dashboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/competitor-radar/internal/aggregate"
	"github.com/DeafMist/competitor-radar/internal/dashboard"
	"github.com/DeafMist/competitor-radar/internal/dataset"
	"github.com/DeafMist/competitor-radar/internal/taxonomy"
)

const newsCSV = `date,competitor,title,link
2024-03-01,Acme,Acme raises Series B funding,http://x
2024-03-15,Beta,Beta unveils new scanner,http://y
2024-04-02,Acme,Acme teams up with Beta,http://z
not-a-date,Gamma,Gamma raises seed,http://w
2024-04-10,Beta,Quarterly letter,
`

const snapshotCSV = `Company,Funding ($M),Active Products,Patents Filed,Clinical Trials
Acme,120,4,10,2
Beta,300,0,5,0
Gamma,45,3,0,6
Delta,80,1,1,1
`

func decode(t *testing.T, raw string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.DecodeCSV(strings.NewReader(raw))
	require.NoError(t, err)
	return tbl
}

func TestEndToEndSingleRow(t *testing.T) {
	svc := dashboard.New(nil, nil)
	tbl := decode(t, "date,competitor,title,link\n2024-03-01,Acme,Acme raises Series B funding,http://x\n")

	feed := svc.NewsFeed(tbl, dashboard.NewsFeedQuery{Fallback: "Other"})
	require.Len(t, feed.Items, 1)
	require.Equal(t, taxonomy.Funding, feed.Items[0].Tag)

	summary := svc.TagSummary(tbl, "Other")
	require.Equal(t, []aggregate.TagCount{{Tag: "Funding", Count: 1}}, summary.Counts)
	require.False(t, summary.NoData)
}

func TestNewsFeed(t *testing.T) {
	svc := dashboard.New(taxonomy.Default(), nil)
	tbl := decode(t, newsCSV)

	feed := svc.NewsFeed(tbl, dashboard.NewsFeedQuery{Tag: aggregate.AllTags, Fallback: "Other"})
	require.Len(t, feed.Items, 4)
	require.Equal(t, "Quarterly letter", feed.Items[0].Title)
	require.Equal(t, []string{"All", "Funding", "Other", "Partnership", "Product Launch"}, feed.TagOptions)

	funding := svc.NewsFeed(tbl, dashboard.NewsFeedQuery{Tag: "Funding", Fallback: "Other"})
	require.Len(t, funding.Items, 1)
	require.Equal(t, "Acme", funding.Items[0].Competitor)

	unknown := svc.NewsFeed(tbl, dashboard.NewsFeedQuery{Tag: "Layoffs", Fallback: "Other"})
	require.Empty(t, unknown.Items)
	require.False(t, unknown.NoData)
}

func TestNewsFeedLocalizedFallback(t *testing.T) {
	svc := dashboard.New(nil, nil)
	feed := svc.NewsFeed(decode(t, newsCSV), dashboard.NewsFeedQuery{Tag: "其他", Fallback: "其他"})
	require.Len(t, feed.Items, 1)
	require.Equal(t, "Beta", feed.Items[0].Competitor)
}

func TestMissingColumnsYieldNoData(t *testing.T) {
	svc := dashboard.New(nil, nil)
	tbl := decode(t, "competitor,link\nAcme,http://x\n")

	require.True(t, svc.NewsFeed(tbl, dashboard.NewsFeedQuery{Fallback: "Other"}).NoData)
	require.True(t, svc.TagSummary(tbl, "Other").NoData)
	require.True(t, svc.KPISnapshot(tbl, nil).NoData)
	require.True(t, svc.FundingTimeline(tbl).NoData)
	require.True(t, svc.TagSummary(nil, "Other").NoData)
}

func TestActivityTimeline(t *testing.T) {
	svc := dashboard.New(nil, nil)
	tbl := decode(t, newsCSV)

	view := svc.ActivityTimeline(tbl, "Other", nil)
	require.Equal(t, []string{"Acme", "Beta"}, view.Competitors)
	require.Equal(t, []aggregate.MonthCount{
		{Month: "2024-03", Competitor: "Acme", Announcements: 1},
		{Month: "2024-03", Competitor: "Beta", Announcements: 1},
		{Month: "2024-04", Competitor: "Acme", Announcements: 1},
		{Month: "2024-04", Competitor: "Beta", Announcements: 1},
	}, view.Points)

	onlyBeta := svc.ActivityTimeline(tbl, "Other", []string{"Beta"})
	require.Len(t, onlyBeta.Points, 2)
	for _, p := range onlyBeta.Points {
		require.Equal(t, "Beta", p.Competitor)
	}

	none := svc.ActivityTimeline(tbl, "Other", []string{})
	require.Empty(t, none.Points)
}

func TestCompetitorsByTag(t *testing.T) {
	svc := dashboard.New(nil, nil)
	view := svc.CompetitorsByTag(decode(t, newsCSV), "Other")
	require.Equal(t, []aggregate.CompetitorTagCount{
		{Competitor: "Acme", Tag: "Funding", Count: 1},
		{Competitor: "Acme", Tag: "Partnership", Count: 1},
		{Competitor: "Beta", Tag: "Other", Count: 1},
		{Competitor: "Beta", Tag: "Product Launch", Count: 1},
	}, view.Counts)
}

func TestCompetitorScatter(t *testing.T) {
	svc := dashboard.New(nil, nil)
	view := svc.CompetitorScatter(decode(t, newsCSV), "Other", []string{"Beta", "Nobody"})
	require.Len(t, view.Series, 1)
	require.Equal(t, "Beta", view.Series[0].Competitor)
	require.Len(t, view.Series[0].Records, 2)
}

func TestCompetitorScatterRepeatedSelection(t *testing.T) {
	svc := dashboard.New(nil, nil)
	view := svc.CompetitorScatter(decode(t, newsCSV), "Other", []string{"Beta", "Acme", "Beta"})
	require.Len(t, view.Series, 2)
	require.Equal(t, "Beta", view.Series[0].Competitor)
	require.Equal(t, "Acme", view.Series[1].Competitor)
}

func TestKPISnapshot(t *testing.T) {
	svc := dashboard.New(nil, nil)
	tbl := decode(t, snapshotCSV)

	view := svc.KPISnapshot(tbl, nil)
	require.Equal(t, []string{"Acme", "Beta", "Gamma", "Delta"}, view.Companies)
	require.Equal(t, 545.0, view.Summary.TotalFunding)
	require.Equal(t, "Beta", view.Leaderboard[0].Company)
	require.Len(t, view.FundingPerProduct, 4)
	require.Nil(t, view.FundingPerProduct[1].Value)
	require.NotNil(t, view.PatentsPerTrial)

	onlyBeta := svc.KPISnapshot(tbl, []string{"Beta"})
	require.Equal(t, 300.0, onlyBeta.Summary.TotalFunding)
	require.Nil(t, onlyBeta.FundingPerProduct)
	require.Nil(t, onlyBeta.PatentsPerTrial)
}

func TestAdvancedKPI(t *testing.T) {
	svc := dashboard.New(nil, nil)
	view := svc.AdvancedKPI(decode(t, snapshotCSV))
	require.Len(t, view.Matrix, 4)
	require.Len(t, view.Top, dashboard.TopFundedCount)
	require.Equal(t, "Beta", view.Top[0].Company)
	require.Equal(t, "Acme", view.Top[1].Company)
	require.Equal(t, "Delta", view.Top[2].Company)
	require.Equal(t, 2.25, view.Summary.AvgClinicalTrials)
}

func TestFundingTimeline(t *testing.T) {
	svc := dashboard.New(nil, nil)
	view := svc.FundingTimeline(decode(t, "Company,Date,Round\nAcme,2023-05-01,Seed\nBeta,,Series A\n"))
	require.Len(t, view.Intervals, 1)
	require.Equal(t, "Seed", view.Intervals[0].Round)
	require.False(t, view.NoData)
}
