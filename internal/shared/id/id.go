// Package id generates the identifiers attached to conversation items.
//
// IDs are prefixed ULIDs ("item_01J..."): unique, and ordered by creation
// time, so the sidebar page can sort or deduplicate replayed history without
// looking at timestamps.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ItemID identifies one entry in the conversation history.
type ItemID string

// ItemPrefix marks conversation item IDs.
const ItemPrefix = "item"

func (id ItemID) String() string { return string(id) }

// Generator produces ULIDs that increase strictly, even within one millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator seeded from crypto/rand.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source, for tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
		now:     time.Now,
	}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateWithPrefix creates a "prefix_ULID" string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewItemID generates a conversation item ID from the default generator.
func NewItemID() ItemID {
	return ItemID(Default().GenerateWithPrefix(ItemPrefix))
}

// IsValid reports whether id is a prefixed or bare ULID.
func IsValid(id string) bool {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	_, err := ulid.ParseStrict(id)
	return err == nil
}
