package preset

import (
	"sort"
	"sync"
	"time"

	"sleepmodel/internal/bucket"
	"sleepmodel/internal/jsonfile"
)

// DailyCounters caches today's quota usage. Fully recomputable from the
// record set; Recount re-derives it under the store lock.
type DailyCounters struct {
	Date        string                `json:"date"`
	AutoCounts  map[bucket.Bucket]int `json:"auto_counts"`
	ManualCount int                   `json:"manual_count"`
}

func emptyCounters(date string) DailyCounters {
	auto := make(map[bucket.Bucket]int, len(bucket.All))
	for _, b := range bucket.All {
		auto[b] = 0
	}
	return DailyCounters{Date: date, AutoCounts: auto}
}

// Store holds the preset collection, its daily counters, and the quota
// configuration. All methods are safe for concurrent use; no method
// acquires any other component's lock.
type Store struct {
	mu      sync.Mutex
	path    string
	records []Record
	daily   DailyCounters

	max           int // global retained-record ceiling
	autoPerBucket int // automatic records per bucket per day
	manualPerDay  int // manual records per day
}

// NewStore returns a store persisting to path. Non-positive limits fall
// back to the defaults (240 total, 2 auto per bucket, 5 manual per day).
func NewStore(path string, max, autoPerBucket, manualPerDay int) *Store {
	if max <= 0 {
		max = 240
	}
	if autoPerBucket <= 0 {
		autoPerBucket = 2
	}
	if manualPerDay <= 0 {
		manualPerDay = 5
	}
	return &Store{
		path:          path,
		daily:         emptyCounters(bucket.DateKey(time.Now())),
		max:           max,
		autoPerBucket: autoPerBucket,
		manualPerDay:  manualPerDay,
	}
}

// AutoQuota returns the per-bucket automatic daily quota.
func (s *Store) AutoQuota() int { return s.autoPerBucket }

// ManualQuota returns the global manual daily quota.
func (s *Store) ManualQuota() int { return s.manualPerDay }

type presetFile struct {
	Presets []Record `json:"presets"`
}

// Load replaces the store contents from disk. Missing or malformed
// files leave the store empty. Records beyond the global ceiling are
// dropped oldest-first.
func (s *Store) Load() error {
	var f presetFile
	ok, err := jsonfile.Read(s.path, &f)
	if err != nil || !ok {
		return err
	}

	restored := make([]Record, 0, len(f.Presets))
	for _, r := range f.Presets {
		if r.Category != CategoryAuto {
			r.Category = CategoryManual
		}
		restored = append(restored, r)
	}
	if len(restored) > s.max {
		restored = restored[len(restored)-s.max:]
	}

	s.mu.Lock()
	s.records = restored
	s.mu.Unlock()
	return nil
}

// Save writes the full record set to disk with atomic replace.
func (s *Store) Save() error {
	s.mu.Lock()
	f := presetFile{Presets: append([]Record(nil), s.records...)}
	s.mu.Unlock()
	return jsonfile.Write(s.path, f)
}

// All returns a copy of the records in ascending timestamp-insertion
// order.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Counters returns a copy of the daily counters.
func (s *Store) Counters() DailyCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.daily
	out.AutoCounts = make(map[bucket.Bucket]int, len(s.daily.AutoCounts))
	for b, n := range s.daily.AutoCounts {
		out.AutoCounts[b] = n
	}
	return out
}

// RolloverIfNeeded performs the daily transition when now's local date
// differs from the tracked date: all records are cleared and counters
// reset. Returns true when a rollover happened; the caller is expected
// to persist and reseed. Idempotent within a single date.
func (s *Store) RolloverIfNeeded(now time.Time) bool {
	today := bucket.DateKey(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	if today == s.daily.Date {
		return false
	}
	s.daily = emptyCounters(today)
	s.records = nil
	return true
}

// PruneToToday drops every record whose date differs from now's local
// date, then enforces the global ceiling. Used once at startup to
// discard stale state loaded from disk.
func (s *Store) PruneToToday(now time.Time) {
	today := bucket.DateKey(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if r.Date() == today {
			kept = append(kept, r)
		}
	}
	s.records = kept
	if len(s.records) > s.max {
		s.records = s.records[len(s.records)-s.max:]
	}
}

// recountLocked re-derives the daily counters from the records for
// today. Caller holds s.mu.
func (s *Store) recountLocked(today string) {
	counters := emptyCounters(today)
	for _, r := range s.records {
		if r.Date() != today {
			continue
		}
		if r.isAuto() && bucket.Valid(r.Bucket) {
			counters.AutoCounts[r.Bucket]++
		} else if !r.isAuto() {
			counters.ManualCount++
		}
	}
	s.daily = counters
}

// Recount re-derives the daily counters for now's local date.
func (s *Store) Recount(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recountLocked(bucket.DateKey(now))
}

// EnforceCaps prunes today's automatic records down to the per-bucket
// quota, keeping the most recent per bucket, retains all of today's
// manual records, re-sorts ascending by timestamp, truncates to the
// global ceiling oldest-first, and recounts.
func (s *Store) EnforceCaps(now time.Time) {
	today := bucket.DateKey(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	var autos, manuals []Record
	for _, r := range s.records {
		if r.Date() != today {
			continue
		}
		if r.isAuto() && bucket.Valid(r.Bucket) {
			autos = append(autos, r)
		} else if !r.isAuto() {
			manuals = append(manuals, r)
		}
	}

	sort.SliceStable(autos, func(i, j int) bool { return autos[i].TS > autos[j].TS })
	keptPerBucket := map[bucket.Bucket]int{}
	keptAutos := autos[:0]
	for _, r := range autos {
		if keptPerBucket[r.Bucket] < s.autoPerBucket {
			keptAutos = append(keptAutos, r)
			keptPerBucket[r.Bucket]++
		}
	}

	merged := append(manuals, keptAutos...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].TS < merged[j].TS })
	if len(merged) > s.max {
		merged = merged[len(merged)-s.max:]
	}
	s.records = merged

	s.recountLocked(today)
}

// CanAddAutomatic reports whether today's cached automatic count for b
// is below quota. A stale counter date reads as "not yet populated" and
// permits insertion.
func (s *Store) CanAddAutomatic(b bucket.Bucket, now time.Time) bool {
	today := bucket.DateKey(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.daily.Date != today {
		return true
	}
	return s.daily.AutoCounts[b] < s.autoPerBucket
}

// Append adds rec without any quota check and recounts. Seeding uses
// this together with CanAddAutomatic; EnforceCaps runs afterwards.
func (s *Store) Append(rec Record, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	s.recountLocked(bucket.DateKey(now))
}

// InsertManual appends rec while fewer than the manual quota of today's
// manual records exist; at quota it replaces the single oldest manual
// record for today instead. Callers run EnforceCaps afterwards.
func (s *Store) InsertManual(rec Record, now time.Time) {
	today := bucket.DateKey(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	oldest := -1
	count := 0
	for i, r := range s.records {
		if r.isAuto() || r.Date() != today {
			continue
		}
		count++
		if oldest == -1 || r.TS < s.records[oldest].TS {
			oldest = i
		}
	}
	if count < s.manualPerDay {
		s.records = append(s.records, rec)
		return
	}
	s.records[oldest] = rec
}

// InsertAutomatic is InsertManual's policy scoped to (bucket, today):
// below quota it appends, at quota it replaces the oldest automatic
// record for b today.
func (s *Store) InsertAutomatic(b bucket.Bucket, rec Record, now time.Time) {
	today := bucket.DateKey(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	oldest := -1
	count := 0
	for i, r := range s.records {
		if !r.isAuto() || r.Bucket != b || r.Date() != today {
			continue
		}
		count++
		if oldest == -1 || r.TS < s.records[oldest].TS {
			oldest = i
		}
	}
	if count < s.autoPerBucket {
		s.records = append(s.records, rec)
		return
	}
	s.records[oldest] = rec
}
