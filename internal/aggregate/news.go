package aggregate

import (
	"sort"

	"github.com/DeafMist/competitor-radar/internal/models"
)

// AllTags is the tag selection that disables tag filtering.
const AllTags = "All"

// MonthLayout formats the month bucket key.
const MonthLayout = "2006-01"

// CompetitorTag keys counts by competitor and tag.
type CompetitorTag struct {
	Competitor string
	Tag        string
}

// MonthCompetitor keys counts by calendar month and competitor.
type MonthCompetitor struct {
	Month      string
	Competitor string
}

// TagCount is one row of the tag summary.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CompetitorTagCount is one row of the competitor by announcement type view.
type CompetitorTagCount struct {
	Competitor string `json:"competitor"`
	Tag        string `json:"tag"`
	Count      int    `json:"count"`
}

// MonthCount is one point of the activity timeline.
type MonthCount struct {
	Month         string `json:"month"`
	Competitor    string `json:"competitor"`
	Announcements int    `json:"announcements"`
}

// FilterByTag keeps records carrying tag. AllTags returns records unchanged.
func FilterByTag(records []models.NewsRecord, tag string) []models.NewsRecord {
	if tag == AllTags {
		return records
	}
	out := make([]models.NewsRecord, 0)
	for _, r := range records {
		if r.Tag == tag {
			out = append(out, r)
		}
	}
	return out
}

// FilterByCompetitors keeps records whose competitor is selected.
func FilterByCompetitors(records []models.NewsRecord, selected []string) []models.NewsRecord {
	set := toSet(selected)
	out := make([]models.NewsRecord, 0)
	for _, r := range records {
		if _, ok := set[r.Competitor]; ok {
			out = append(out, r)
		}
	}
	return out
}

// SortByDateDesc returns a copy ordered newest first; equal dates keep input order.
func SortByDateDesc(records []models.NewsRecord) []models.NewsRecord {
	out := append([]models.NewsRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// CountByTag counts records per tag.
func CountByTag(records []models.NewsRecord) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Tag]++
	}
	return counts
}

// CountByCompetitorAndTag counts records per (competitor, tag).
func CountByCompetitorAndTag(records []models.NewsRecord) map[CompetitorTag]int {
	counts := make(map[CompetitorTag]int)
	for _, r := range records {
		counts[CompetitorTag{Competitor: r.Competitor, Tag: r.Tag}]++
	}
	return counts
}

// CountByMonthAndCompetitor buckets records by year-month and competitor.
// Months without records are not present in the result.
func CountByMonthAndCompetitor(records []models.NewsRecord) map[MonthCompetitor]int {
	counts := make(map[MonthCompetitor]int)
	for _, r := range records {
		counts[MonthCompetitor{Month: r.Date.Format(MonthLayout), Competitor: r.Competitor}]++
	}
	return counts
}

// SortTagCounts orders tag counts by count descending, then tag.
func SortTagCounts(counts map[string]int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Tag < out[j].Tag
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// SortCompetitorTagCounts orders by competitor, then tag.
func SortCompetitorTagCounts(counts map[CompetitorTag]int) []CompetitorTagCount {
	out := make([]CompetitorTagCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, CompetitorTagCount{Competitor: k.Competitor, Tag: k.Tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Competitor == out[j].Competitor {
			return out[i].Tag < out[j].Tag
		}
		return out[i].Competitor < out[j].Competitor
	})
	return out
}

// SortMonthCounts orders by month, then competitor.
func SortMonthCounts(counts map[MonthCompetitor]int) []MonthCount {
	out := make([]MonthCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, MonthCount{Month: k.Month, Competitor: k.Competitor, Announcements: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month == out[j].Month {
			return out[i].Competitor < out[j].Competitor
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// Competitors returns the sorted distinct non-empty competitors.
func Competitors(records []models.NewsRecord) []string {
	values := make([]string, 0, len(records))
	for _, r := range records {
		values = append(values, r.Competitor)
	}
	return distinct(values)
}

// Tags returns the sorted distinct tags.
func Tags(records []models.NewsRecord) []string {
	values := make([]string, 0, len(records))
	for _, r := range records {
		values = append(values, r.Tag)
	}
	return distinct(values)
}

func distinct(values []string) []string {
	set := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
