package models

import "time"

// Metric names a numeric column of the funding snapshot.
type Metric string

const (
	MetricFunding        Metric = "Funding ($M)"
	MetricActiveProducts Metric = "Active Products"
	MetricPatentsFiled   Metric = "Patents Filed"
	MetricClinicalTrials Metric = "Clinical Trials"
)

// Metrics lists the snapshot metrics in display order.
var Metrics = []Metric{MetricFunding, MetricActiveProducts, MetricPatentsFiled, MetricClinicalTrials}

// FundingSnapshotRecord is one company row of the funding snapshot.
type FundingSnapshotRecord struct {
	Company        string  `json:"company"`
	FundingMUSD    float64 `json:"funding_musd"`
	ActiveProducts int     `json:"active_products"`
	PatentsFiled   int     `json:"patents_filed"`
	ClinicalTrials int     `json:"clinical_trials"`
}

// Value returns the metric as a float. ok is false for an unknown metric.
func (r FundingSnapshotRecord) Value(m Metric) (float64, bool) {
	switch m {
	case MetricFunding:
		return r.FundingMUSD, true
	case MetricActiveProducts:
		return float64(r.ActiveProducts), true
	case MetricPatentsFiled:
		return float64(r.PatentsFiled), true
	case MetricClinicalTrials:
		return float64(r.ClinicalTrials), true
	default:
		return 0, false
	}
}

// FundingHistoryRecord is one dated funding event.
type FundingHistoryRecord struct {
	Company string    `json:"company"`
	Date    time.Time `json:"date"`
	Round   string    `json:"round,omitempty"`
}

// FundingInterval is the one-day bar drawn for a funding event on the timeline.
type FundingInterval struct {
	Company string    `json:"company"`
	Round   string    `json:"round,omitempty"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}
