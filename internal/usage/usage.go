// Package usage maintains the per-bucket histogram of lamp-state
// signatures that backs "most popular setting" scheduling.
package usage

import (
	"sync"

	"sleepmodel/internal/bucket"
	"sleepmodel/internal/jsonfile"
)

type sigCount struct {
	Count int
	Seq   int // insertion sequence, for stable tie-breaking
}

// Tracker counts signature occurrences per time bucket. Counts only
// ever go up. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	counts  map[bucket.Bucket]map[string]*sigCount
	nextSeq int
}

// NewTracker returns an empty tracker with all buckets present.
func NewTracker() *Tracker {
	counts := make(map[bucket.Bucket]map[string]*sigCount, len(bucket.All))
	for _, b := range bucket.All {
		counts[b] = map[string]*sigCount{}
	}
	return &Tracker{counts: counts}
}

// Increment bumps the count for sig in b, creating it at 1 if absent.
func (t *Tracker) Increment(b bucket.Bucket, sig string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.counts[b]
	if !ok {
		d = map[string]*sigCount{}
		t.counts[b] = d
	}
	if sc, ok := d[sig]; ok {
		sc.Count++
		return
	}
	d[sig] = &sigCount{Count: 1, Seq: t.nextSeq}
	t.nextSeq++
}

// Top returns the most frequent signature for b and its count. Ties go
// to the first-recorded signature, which keeps the answer stable across
// runs. ok is false when the bucket has no recorded signatures.
func (t *Tracker) Top(b bucket.Bucket) (sig string, count int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	best := ""
	var bestSC *sigCount
	for s, sc := range t.counts[b] {
		if bestSC == nil || sc.Count > bestSC.Count ||
			(sc.Count == bestSC.Count && sc.Seq < bestSC.Seq) {
			best, bestSC = s, sc
		}
	}
	if bestSC == nil {
		return "", 0, false
	}
	return best, bestSC.Count, true
}

// Counts returns a copy of the histogram for b.
func (t *Tracker) Counts(b bucket.Bucket) map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.counts[b]))
	for s, sc := range t.counts[b] {
		out[s] = sc.Count
	}
	return out
}

// usageFile is the persisted shape: the original per-bucket count maps
// plus the insertion sequence, kept separately so older files (counts
// only) still load.
type usageFile struct {
	Counts map[bucket.Bucket]map[string]int `json:"counts"`
	Seq    map[bucket.Bucket]map[string]int `json:"seq,omitempty"`
}

// Load replaces the tracker's contents from path. Missing or malformed
// files leave the tracker empty.
func (t *Tracker) Load(path string) error {
	var f usageFile
	ok, err := jsonfile.Read(path, &f)
	if err != nil || !ok || f.Counts == nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextSeq = 0
	for _, b := range bucket.All {
		d := map[string]*sigCount{}
		for s, n := range f.Counts[b] {
			if n <= 0 {
				continue
			}
			seq := t.nextSeq
			if f.Seq != nil {
				if v, ok := f.Seq[b][s]; ok {
					seq = v
				}
			}
			d[s] = &sigCount{Count: n, Seq: seq}
			if seq >= t.nextSeq {
				t.nextSeq = seq + 1
			}
		}
		t.counts[b] = d
	}
	return nil
}

// Save writes the histogram to path with atomic replace.
func (t *Tracker) Save(path string) error {
	t.mu.Lock()
	f := usageFile{
		Counts: map[bucket.Bucket]map[string]int{},
		Seq:    map[bucket.Bucket]map[string]int{},
	}
	for _, b := range bucket.All {
		cm := map[string]int{}
		sm := map[string]int{}
		for s, sc := range t.counts[b] {
			cm[s] = sc.Count
			sm[s] = sc.Seq
		}
		f.Counts[b] = cm
		f.Seq[b] = sm
	}
	t.mu.Unlock()

	return jsonfile.Write(path, f)
}
