package services

import (
	"strings"

	"github.com/google/uuid"
)

// UIDGenerator produces respondent identifiers for wrapper links.
// Implementations must be safe for concurrent use.
type UIDGenerator interface {
	Generate() string
}

// uuidGenerator emits 32-char lowercase hex identifiers derived from
// UUIDv4. URL-safe, order-independent, and collision-resistant well past
// the tens-of-thousands-per-project scale; a residual collision surfaces
// as a store conflict and the caller regenerates.
type uuidGenerator struct{}

func NewUIDGenerator() UIDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) Generate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewBatchID returns an identifier stamped into every link of one
// generation batch for later reconciliation.
func NewBatchID() string {
	return uuid.NewString()
}
