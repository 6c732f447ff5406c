package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/DeafMist/competitor-radar/internal/models"
)

// DerivedValue is a computed per-company column. Value is nil when the ratio
// cannot be computed for that row.
type DerivedValue struct {
	Company string   `json:"company"`
	Value   *float64 `json:"value"`
}

// KPISummary holds snapshot totals and per-company averages.
type KPISummary struct {
	Companies           int     `json:"companies"`
	TotalFunding        float64 `json:"total_funding_musd"`
	TotalActiveProducts int     `json:"total_active_products"`
	TotalPatentsFiled   int     `json:"total_patents_filed"`
	TotalClinicalTrials int     `json:"total_clinical_trials"`
	AvgActiveProducts   float64 `json:"avg_active_products"`
	AvgClinicalTrials   float64 `json:"avg_clinical_trials"`
}

// RatioColumn computes numerator/denominator per row. Rows with a zero
// denominator, an unknown metric or a non-finite quotient get a nil value.
func RatioColumn(rows []models.FundingSnapshotRecord, numerator, denominator models.Metric) []DerivedValue {
	out := make([]DerivedValue, 0, len(rows))
	for _, r := range rows {
		dv := DerivedValue{Company: r.Company}
		num, okNum := r.Value(numerator)
		den, okDen := r.Value(denominator)
		if okNum && okDen && den != 0 {
			v := num / den
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				dv.Value = &v
			}
		}
		out = append(out, dv)
	}
	return out
}

// AnyComputed reports whether at least one derived value is present.
func AnyComputed(values []DerivedValue) bool {
	for _, v := range values {
		if v.Value != nil {
			return true
		}
	}
	return false
}

// FilterCompanies keeps snapshot rows whose company is selected.
func FilterCompanies(rows []models.FundingSnapshotRecord, selected []string) []models.FundingSnapshotRecord {
	set := toSet(selected)
	out := make([]models.FundingSnapshotRecord, 0)
	for _, r := range rows {
		if _, ok := set[r.Company]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Companies returns the distinct snapshot companies in first-seen order.
func Companies(rows []models.FundingSnapshotRecord) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.Company]; ok {
			continue
		}
		seen[r.Company] = struct{}{}
		out = append(out, r.Company)
	}
	return out
}

// SummarizeSnapshot totals the snapshot metrics. Averages are zero for no rows.
func SummarizeSnapshot(rows []models.FundingSnapshotRecord) KPISummary {
	s := KPISummary{Companies: len(rows)}
	for _, r := range rows {
		s.TotalFunding += r.FundingMUSD
		s.TotalActiveProducts += r.ActiveProducts
		s.TotalPatentsFiled += r.PatentsFiled
		s.TotalClinicalTrials += r.ClinicalTrials
	}
	if len(rows) > 0 {
		s.AvgActiveProducts = float64(s.TotalActiveProducts) / float64(len(rows))
		s.AvgClinicalTrials = float64(s.TotalClinicalTrials) / float64(len(rows))
	}
	return s
}

// Leaderboard returns a copy ordered by funding, largest first.
func Leaderboard(rows []models.FundingSnapshotRecord) []models.FundingSnapshotRecord {
	out := append([]models.FundingSnapshotRecord(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FundingMUSD > out[j].FundingMUSD
	})
	return out
}

// TopByFunding returns the n best funded rows.
func TopByFunding(rows []models.FundingSnapshotRecord, n int) []models.FundingSnapshotRecord {
	out := Leaderboard(rows)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FundingIntervals maps each funding event to a one-day interval.
func FundingIntervals(history []models.FundingHistoryRecord) []models.FundingInterval {
	out := make([]models.FundingInterval, 0, len(history))
	for _, h := range history {
		out = append(out, models.FundingInterval{
			Company: h.Company,
			Round:   h.Round,
			Start:   h.Date,
			End:     h.Date.Add(24 * time.Hour),
		})
	}
	return out
}
