package federation

import "github.com/hupe1980/nodulefed/candidate"

// Unlimited disables a SamplingPolicy limit.
const Unlimited = -1

// SamplingPolicy caps the class-0 and class-1 candidates drawn from a pool
// before allocation, for controlled-imbalance experiments.
type SamplingPolicy struct {
	Class0Limit int
	Class1Limit int
}

// DefaultSamplingPolicy keeps at most 100 candidates per class.
var DefaultSamplingPolicy = SamplingPolicy{Class0Limit: 100, Class1Limit: 100}

// Apply returns the pool truncated to the first Class0Limit class-0 and
// first Class1Limit class-1 candidates, in source order.
func (p SamplingPolicy) Apply(pool *candidate.Pool) *candidate.Pool {
	return pool.Capped(p.Class0Limit, p.Class1Limit)
}
