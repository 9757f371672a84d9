// Package preset owns the quota-governed collection of preset records:
// daily rollover, seeding quotas, replacement policies, and the JSON
// persistence behind all of it.
package preset

import (
	"time"

	"sleepmodel/internal/bucket"
	"sleepmodel/internal/lamp"
)

// Record categories. Automatic records are subject to the per-bucket
// daily quota, manual records to the global daily quota.
const (
	CategoryAuto   = "auto"
	CategoryManual = "manual"
)

// Record is one device-configuration snapshot. Records are replaced
// wholesale, never edited in place.
type Record struct {
	TS       int64         `json:"ts"`
	Bucket   bucket.Bucket `json:"bucket"`
	Source   string        `json:"source"`
	Note     string        `json:"note"`
	Actions  []lamp.Action `json:"actions"`
	Category string        `json:"category"`
}

// Date returns the local calendar date of the record's timestamp.
func (r Record) Date() string {
	return bucket.DateKey(time.Unix(r.TS, 0))
}

func (r Record) isAuto() bool {
	return r.Category == CategoryAuto
}
