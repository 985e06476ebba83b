package allocator

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hupe1980/nodulefed/candidate"
)

// IDGenerator names patch files. Implementations must be safe for
// concurrent use and must not repeat an id within one client and class.
type IDGenerator interface {
	NextID(client int, class candidate.Label, index int) string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func(client int, class candidate.Label, index int) string

func (f IDGeneratorFunc) NextID(client int, class candidate.Label, index int) string {
	return f(client, class, index)
}

// RandomIDs names every patch with a random UUID.
func RandomIDs() IDGenerator {
	return IDGeneratorFunc(func(int, candidate.Label, int) string { return uuid.NewString() })
}

// CounterIDs names patches by their zero-padded index in the class list,
// which makes output paths reproducible across runs.
func CounterIDs() IDGenerator {
	return IDGeneratorFunc(func(_ int, _ candidate.Label, index int) string {
		return fmt.Sprintf("%06d", index)
	})
}
