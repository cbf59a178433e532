package ledger

import (
	"strings"
	"time"
)

// DateLayouts are tried in order by ParseDate; the first that parses wins.
var DateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02 Jan 2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// ParseDate parses a statement date. Values without a zone are taken as UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, validationError("date is empty")
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, validationError("unrecognised date %q", value)
}
