package preset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepmodel/internal/bucket"
	"sleepmodel/internal/lamp"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	require.NoError(t, err)
	return d
}

func rec(ts time.Time, b bucket.Bucket, category string) Record {
	return Record{
		TS:       ts.Unix(),
		Bucket:   b,
		Source:   "test",
		Note:     "n",
		Actions:  []lamp.Action{lamp.SetPower(true)},
		Category: category,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "presets.json"), 240, 2, 5)
}

func TestSeedReplaceOldestScenario(t *testing.T) {
	s := newTestStore(t)
	now := day(t, "2025-01-01 01:00")

	// Quota 2, bucket night: A then B both fit.
	a := rec(now, bucket.Night, CategoryAuto)
	a.Note = "A"
	b := rec(now.Add(time.Minute), bucket.Night, CategoryAuto)
	b.Note = "B"

	s.InsertAutomatic(bucket.Night, a, now)
	s.InsertAutomatic(bucket.Night, b, now)
	s.EnforceCaps(now)

	notes := func() []string {
		var out []string
		for _, r := range s.All() {
			out = append(out, r.Note)
		}
		return out
	}
	assert.ElementsMatch(t, []string{"A", "B"}, notes())

	// Third insert replaces the oldest (A).
	c := rec(now.Add(2*time.Minute), bucket.Night, CategoryAuto)
	c.Note = "C"
	s.InsertAutomatic(bucket.Night, c, now)
	s.EnforceCaps(now)

	assert.ElementsMatch(t, []string{"B", "C"}, notes())
	assert.Equal(t, 2, s.Counters().AutoCounts[bucket.Night])
}

func TestInsertManualReplaceOldest(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "p.json"), 240, 2, 2)
	now := day(t, "2025-03-10 12:00")

	m1 := rec(now, bucket.Noon, CategoryManual)
	m1.Note = "m1"
	m2 := rec(now.Add(time.Minute), bucket.Noon, CategoryManual)
	m2.Note = "m2"
	m3 := rec(now.Add(2*time.Minute), bucket.Evening, CategoryManual)
	m3.Note = "m3"

	s.InsertManual(m1, now)
	s.InsertManual(m2, now)
	s.InsertManual(m3, now) // at quota: replaces m1
	s.EnforceCaps(now)

	var notes []string
	for _, r := range s.All() {
		notes = append(notes, r.Note)
	}
	assert.ElementsMatch(t, []string{"m2", "m3"}, notes)
	assert.Equal(t, 2, s.Counters().ManualCount)
}

func TestEnforceCapsProperty(t *testing.T) {
	s := newTestStore(t)
	now := day(t, "2025-05-05 16:00")

	// Flood well past every quota.
	for i := 0; i < 10; i++ {
		for _, b := range bucket.All {
			s.Append(rec(now.Add(time.Duration(i)*time.Second), b, CategoryAuto), now)
		}
		s.Append(rec(now.Add(time.Duration(i)*time.Second), bucket.Afternoon, CategoryManual), now)
	}
	s.EnforceCaps(now)

	c := s.Counters()
	for _, b := range bucket.All {
		assert.LessOrEqual(t, c.AutoCounts[b], s.AutoQuota(), "bucket %s", b)
	}
	assert.LessOrEqual(t, c.ManualCount, s.ManualQuota())

	// Surviving autos are the most recent per bucket, sorted ascending.
	all := s.All()
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].TS, all[i].TS)
	}
}

func TestEnforceCapsKeepsMostRecentAutos(t *testing.T) {
	s := newTestStore(t)
	now := day(t, "2025-05-05 09:00")

	for i := 0; i < 5; i++ {
		r := rec(now.Add(time.Duration(i)*time.Minute), bucket.Morning, CategoryAuto)
		r.Note = string(rune('a' + i))
		s.Append(r, now)
	}
	s.EnforceCaps(now)

	var notes []string
	for _, r := range s.All() {
		notes = append(notes, r.Note)
	}
	assert.Equal(t, []string{"d", "e"}, notes)
}

func TestRolloverIdempotent(t *testing.T) {
	s := newTestStore(t)
	d1 := day(t, "2025-01-01 10:00")
	d2 := day(t, "2025-01-02 10:00")

	s.Append(rec(d1, bucket.Morning, CategoryAuto), d1)
	assert.False(t, s.RolloverIfNeeded(d1), "same date never rolls")
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.RolloverIfNeeded(d2))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "2025-01-02", s.Counters().Date)

	assert.False(t, s.RolloverIfNeeded(d2), "second check same day is a no-op")
}

func TestCanAddAutomaticStaleDate(t *testing.T) {
	s := newTestStore(t)
	d1 := day(t, "2025-01-01 08:00")
	d2 := day(t, "2025-01-02 08:00")

	s.Append(rec(d1, bucket.Morning, CategoryAuto), d1)
	s.Append(rec(d1.Add(time.Minute), bucket.Morning, CategoryAuto), d1)
	assert.False(t, s.CanAddAutomatic(bucket.Morning, d1))

	// Counter date is stale relative to d2: treated as unpopulated.
	assert.True(t, s.CanAddAutomatic(bucket.Morning, d2))
}

func TestPruneToToday(t *testing.T) {
	s := newTestStore(t)
	yesterday := day(t, "2025-01-01 20:00")
	today := day(t, "2025-01-02 08:00")

	s.Append(rec(yesterday, bucket.Evening, CategoryAuto), yesterday)
	s.Append(rec(today, bucket.Morning, CategoryAuto), today)

	s.PruneToToday(today)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "2025-01-02", s.All()[0].Date())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	now := day(t, "2025-04-01 12:00")

	s := NewStore(path, 240, 2, 5)
	r := rec(now, bucket.Noon, CategoryAuto)
	r.Actions = []lamp.Action{
		lamp.SetPower(true),
		lamp.SetBrightness(120),
		lamp.SetColor("#FFAA00"),
	}
	s.Append(r, now)
	require.NoError(t, s.Save())

	s2 := NewStore(path, 240, 2, 5)
	require.NoError(t, s2.Load())
	require.Equal(t, 1, s2.Len())
	assert.Equal(t, r, s2.All()[0])
}

func TestLoadMalformedFallsBackEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewStore(path, 240, 2, 5)
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())
}
