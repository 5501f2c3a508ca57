package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordCacheLookupConcurrent(t *testing.T) {
	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(hit bool) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				RecordCacheLookup(hit)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	// Counters are shared across the package's lifetime, so assert on
	// the delta-consistent invariant rather than absolute values.
	hits := totalHits.Load()
	lookups := totalLookups.Load()
	assert.GreaterOrEqual(t, lookups, int64(workers*perWorker))
	assert.GreaterOrEqual(t, hits, int64(workers/2*perWorker))
	assert.LessOrEqual(t, hits, lookups)
}
