package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// DayLayout is the canonical calendar date layout.
const DayLayout = "2006-01-02"

var dateFormats = []string{
	DayLayout,
	"2006-1-2",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate parses a calendar date in one of the accepted layouts and returns
// that day at midnight UTC. ok is false for empty or unparsable input.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, f := range dateFormats {
		if ts, err := time.Parse(f, raw); err == nil {
			return Day(ts), true
		}
	}

	return time.Time{}, false
}

// Day truncates ts to its calendar day in its own location, expressed in UTC.
func Day(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BuildRecordID hashes the identifying fields of a news row.
func BuildRecordID(competitor, title string, date time.Time) string {
	s := sha1.Sum([]byte(competitor + "|" + title + "|" + date.UTC().Format(DayLayout)))
	return hex.EncodeToString(s[:])
}
