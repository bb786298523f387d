package metadata

import (
	"strings"
	"time"
)

const (
	// StoreTimeLayout is the sortable form timestamps are stored in.
	StoreTimeLayout = "2006-01-02T15:04:05Z"
	// LegacyTimeLayout is the form used in gamelist documents.
	LegacyTimeLayout = "20060102T150405"
)

var parseLayouts = []string{
	StoreTimeLayout,
	LegacyTimeLayout,
	time.RFC3339,
	"20060102",
	"2006-01-02",
	"2006",
}

// ParseTime accepts stored, legacy and a few loose date forms. Empty input and
// the legacy placeholders "0" and "not-a-date-time" yield the zero time.
func ParseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" || v == "0" || v == "not-a-date-time" {
		return time.Time{}, nil
	}
	var firstErr error
	for _, layout := range parseLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FormatStoreTime renders t in the stored form; the zero time renders empty.
func FormatStoreTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(StoreTimeLayout)
}

// ToLegacyTime converts a stored timestamp to the gamelist form.
func ToLegacyTime(stored string) string {
	t, err := ParseTime(stored)
	if err != nil || t.IsZero() {
		return ""
	}
	return t.Format(LegacyTimeLayout)
}
