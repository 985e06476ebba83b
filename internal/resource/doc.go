// Package resource bounds the resources an allocation run may consume.
//
//	┌──────────────────────────────────────────────────────────┐
//	│                       Controller                         │
//	├──────────────────┬──────────────────┬────────────────────┤
//	│  Memory          │  Workers         │  IO                │
//	│  (volume cache,  │  (extraction     │  (sink writes,     │
//	│   fail-fast)     │   slots, sem)    │   token bucket)    │
//	└──────────────────┴──────────────────┴────────────────────┘
//
// Memory reservations never block: the volume cache simply declines to keep
// a volume when the limit is reached. Worker slots block until one is free
// or the context ends. Write throughput is shaped by a token bucket sized to
// one second of budget.
//
//	rc := resource.NewController(resource.Config{
//	    MaxWorkers:         8,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//
// A nil *Controller is valid and imposes no limits.
package resource
