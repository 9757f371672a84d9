package usage

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepmodel/internal/bucket"
)

func TestIncrementAndTop(t *testing.T) {
	tr := NewTracker()

	_, _, ok := tr.Top(bucket.Morning)
	assert.False(t, ok, "empty bucket has no top")

	tr.Increment(bucket.Morning, "a")
	tr.Increment(bucket.Morning, "b")
	tr.Increment(bucket.Morning, "b")

	sig, n, ok := tr.Top(bucket.Morning)
	require.True(t, ok)
	assert.Equal(t, "b", sig)
	assert.Equal(t, 2, n)

	// Other buckets are unaffected.
	_, _, ok = tr.Top(bucket.Night)
	assert.False(t, ok)
}

func TestTopTieBreakFirstRecorded(t *testing.T) {
	tr := NewTracker()
	tr.Increment(bucket.Evening, "first")
	tr.Increment(bucket.Evening, "second")

	for i := 0; i < 50; i++ {
		sig, n, ok := tr.Top(bucket.Evening)
		require.True(t, ok)
		assert.Equal(t, "first", sig)
		assert.Equal(t, 1, n)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")

	tr := NewTracker()
	tr.Increment(bucket.Morning, "a")
	tr.Increment(bucket.Morning, "b") // tied with a, a was first
	tr.Increment(bucket.Night, "n")
	tr.Increment(bucket.Night, "n")
	require.NoError(t, tr.Save(path))

	tr2 := NewTracker()
	require.NoError(t, tr2.Load(path))

	sig, n, ok := tr2.Top(bucket.Night)
	require.True(t, ok)
	assert.Equal(t, "n", sig)
	assert.Equal(t, 2, n)

	sig, _, ok = tr2.Top(bucket.Morning)
	require.True(t, ok)
	assert.Equal(t, "a", sig, "tie-break survives a reload")
}

func TestLoadMissingFile(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Load(filepath.Join(t.TempDir(), "absent.json")))
	_, _, ok := tr.Top(bucket.Morning)
	assert.False(t, ok)
}

func TestConcurrentIncrements(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Increment(bucket.Noon, "sig")
			}
		}()
	}
	wg.Wait()

	_, n, ok := tr.Top(bucket.Noon)
	require.True(t, ok)
	assert.Equal(t, 800, n)
}
