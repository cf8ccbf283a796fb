// Package resource governs the memory, worker and IO budgets of a store.
//
//   - Memory: fail-fast accounting for cached link payloads.
//   - Workers: bounds how many segment files a save writes in parallel.
//   - IO: token bucket throttling segment and content writes.
//
// A nil *Controller is valid and imposes no limits:
//
//	rc := resource.NewController(resource.Config{
//	    MaxWorkers:         4,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
package resource
