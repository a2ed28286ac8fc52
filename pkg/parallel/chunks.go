package parallel

import "sync"

// ChunkSize splits n items into one chunk per worker, rounding up.
func ChunkSize(n, workers int) int {
	if n <= 0 || workers <= 0 {
		return 1
	}
	// int64 keeps n + workers from overflowing
	size := int((int64(n) + int64(workers) - 1) / int64(workers))
	return max(size, 1)
}

// ForEachChunk calls fn(lo, hi) for consecutive half-open ranges covering
// [0, n), size items at a time, on the pool, and waits for all of them. It
// returns false if the pool closed before every range was submitted; ranges
// already submitted still complete.
func ForEachChunk(wp *WorkerPool, n, size int, fn func(lo, hi int)) bool {
	if size < 1 {
		size = 1
	}

	var wg sync.WaitGroup
	submitted := true
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)

		wg.Add(1)
		ok := wp.Submit(func() {
			defer wg.Done()
			fn(lo, hi)
		})
		if !ok {
			wg.Done()
			submitted = false
			break
		}
	}
	wg.Wait()
	return submitted
}
