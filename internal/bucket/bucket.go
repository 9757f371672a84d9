// Package bucket maps local wall-clock time onto the five scheduling
// buckets the rest of the service keys on.
package bucket

import "time"

// Bucket is one of the five fixed time-of-day categories.
type Bucket string

const (
	Morning   Bucket = "morning"
	Noon      Bucket = "noon"
	Afternoon Bucket = "afternoon"
	Evening   Bucket = "evening"
	Night     Bucket = "night"
)

// All lists every bucket in canonical order.
var All = []Bucket{Morning, Noon, Afternoon, Evening, Night}

// representativeHour is the hour used when synthesizing a timestamp
// that stands in for "somewhere inside this bucket".
var representativeHour = map[Bucket]int{
	Morning:   8,
	Noon:      12,
	Afternoon: 16,
	Evening:   20,
	Night:     1,
}

// FromHour returns the bucket for a local hour of day (0-23).
func FromHour(h int) Bucket {
	switch {
	case h >= 6 && h <= 10:
		return Morning
	case h >= 11 && h <= 13:
		return Noon
	case h >= 14 && h <= 17:
		return Afternoon
	case h >= 18 && h <= 22:
		return Evening
	default:
		return Night
	}
}

// FromTime returns the bucket for t in local time.
func FromTime(t time.Time) Bucket {
	return FromHour(t.Local().Hour())
}

// Valid reports whether b is one of the five known buckets.
func Valid(b Bucket) bool {
	_, ok := representativeHour[b]
	return ok
}

// Index returns b's position in All, or -1 for an unknown bucket.
func Index(b Bucket) int {
	for i, v := range All {
		if v == b {
			return i
		}
	}
	return -1
}

// RepresentativeTime returns the fixed representative instant for b on
// the local calendar day containing day.
func RepresentativeTime(b Bucket, day time.Time) time.Time {
	lt := day.Local()
	h, ok := representativeHour[b]
	if !ok {
		h = 0
	}
	return time.Date(lt.Year(), lt.Month(), lt.Day(), h, 0, 0, 0, lt.Location())
}

// DateKey returns the local calendar date of t as YYYY-MM-DD. It is the
// key the daily quota machinery compares against.
func DateKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}
