package processing

import (
	"math"
	"strconv"
	"strings"

	"github.com/DeafMist/competitor-radar/internal/dataset"
	"github.com/DeafMist/competitor-radar/internal/models"
	"github.com/DeafMist/competitor-radar/internal/taxonomy"
)

// News feed columns.
const (
	ColDate       = "date"
	ColCompetitor = "competitor"
	ColTitle      = "title"
	ColLink       = "link"
)

// Funding snapshot and history columns.
const (
	ColCompany     = "Company"
	ColHistoryDate = "Date"
	ColRound       = "Round"
)

// Stats describes what normalization kept and why it dropped the rest.
type Stats struct {
	Total          int      `json:"total"`
	Kept           int      `json:"kept"`
	Dropped        int      `json:"dropped"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// NormalizeNews turns news rows into tagged records. Rows without a valid date
// are dropped; the order of the remaining rows is preserved. When the date or
// title column is absent the result is empty.
func NormalizeNews(tbl *dataset.Table, tax *taxonomy.Taxonomy, fallback string) ([]models.NewsRecord, Stats) {
	stats := Stats{Total: tbl.Len()}
	if missing := tbl.Missing(ColDate, ColTitle); len(missing) > 0 {
		stats.Dropped = stats.Total
		stats.MissingColumns = missing
		return nil, stats
	}

	records := make([]models.NewsRecord, 0, tbl.Len())
	for _, row := range tbl.Rows {
		raw, _ := row.Get(ColDate)
		date, ok := ParseDate(raw)
		if !ok {
			stats.Dropped++
			continue
		}

		title, _ := row.Get(ColTitle)
		competitor, _ := row.Get(ColCompetitor)
		link, _ := row.Get(ColLink)

		records = append(records, models.NewsRecord{
			ID:         BuildRecordID(competitor, title, date),
			Date:       date,
			Competitor: competitor,
			Title:      title,
			Link:       link,
			Tag:        tax.Classify(title, fallback),
		})
	}

	stats.Kept = len(records)
	return records, stats
}

// NormalizeSnapshot parses the funding snapshot. Rows with a blank company or
// an unparsable metric are dropped.
func NormalizeSnapshot(tbl *dataset.Table) ([]models.FundingSnapshotRecord, Stats) {
	stats := Stats{Total: tbl.Len()}
	cols := []string{ColCompany}
	for _, m := range models.Metrics {
		cols = append(cols, string(m))
	}
	if missing := tbl.Missing(cols...); len(missing) > 0 {
		stats.Dropped = stats.Total
		stats.MissingColumns = missing
		return nil, stats
	}

	records := make([]models.FundingSnapshotRecord, 0, tbl.Len())
	for _, row := range tbl.Rows {
		rec, ok := snapshotRecord(row)
		if !ok {
			stats.Dropped++
			continue
		}
		records = append(records, rec)
	}

	stats.Kept = len(records)
	return records, stats
}

func snapshotRecord(row dataset.Row) (models.FundingSnapshotRecord, bool) {
	company, _ := row.Get(ColCompany)
	if company == "" {
		return models.FundingSnapshotRecord{}, false
	}

	funding, ok := parseNumber(row[string(models.MetricFunding)])
	if !ok {
		return models.FundingSnapshotRecord{}, false
	}
	products, ok := parseCount(row[string(models.MetricActiveProducts)])
	if !ok {
		return models.FundingSnapshotRecord{}, false
	}
	patents, ok := parseCount(row[string(models.MetricPatentsFiled)])
	if !ok {
		return models.FundingSnapshotRecord{}, false
	}
	trials, ok := parseCount(row[string(models.MetricClinicalTrials)])
	if !ok {
		return models.FundingSnapshotRecord{}, false
	}

	return models.FundingSnapshotRecord{
		Company:        company,
		FundingMUSD:    funding,
		ActiveProducts: products,
		PatentsFiled:   patents,
		ClinicalTrials: trials,
	}, true
}

// NormalizeHistory parses funding history rows, dropping undated ones.
func NormalizeHistory(tbl *dataset.Table) ([]models.FundingHistoryRecord, Stats) {
	stats := Stats{Total: tbl.Len()}
	if missing := tbl.Missing(ColCompany, ColHistoryDate); len(missing) > 0 {
		stats.Dropped = stats.Total
		stats.MissingColumns = missing
		return nil, stats
	}

	records := make([]models.FundingHistoryRecord, 0, tbl.Len())
	for _, row := range tbl.Rows {
		raw, _ := row.Get(ColHistoryDate)
		date, ok := ParseDate(raw)
		if !ok {
			stats.Dropped++
			continue
		}
		company, _ := row.Get(ColCompany)
		round, _ := row.Get(ColRound)
		records = append(records, models.FundingHistoryRecord{Company: company, Date: date, Round: round})
	}

	stats.Kept = len(records)
	return records, stats
}

func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseCount(raw string) (int, bool) {
	v, ok := parseNumber(raw)
	// float64(math.MaxInt) rounds up, so the upper bound is exclusive.
	if !ok || v != math.Trunc(v) || v < math.MinInt || v >= math.MaxInt {
		return 0, false
	}
	return int(v), true
}
