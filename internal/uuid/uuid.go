// Package uuid generates feedback record identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces record identifiers.
type Generator func() string

// New generates a new UUID v4.
func New() string {
	return uuid.New().String()
}

// Sequence returns a Generator yielding prefix-1, prefix-2, ... for tests
// and deterministic fixtures.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
