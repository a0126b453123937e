package id

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateIsMonotonic(t *testing.T) {
	gen := NewGenerator()
	fixed := time.UnixMilli(1700000000000)
	gen.now = func() time.Time { return fixed }

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = gen.Generate().String()
	}

	assert.True(t, sort.StringsAreSorted(ids), "IDs from the same millisecond must still sort in creation order")
}

func TestNewItemID(t *testing.T) {
	item := NewItemID()

	assert.True(t, strings.HasPrefix(item.String(), ItemPrefix+"_"))
	assert.Len(t, item.String(), len(ItemPrefix)+1+26)
	assert.True(t, IsValid(item.String()))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{NewItemID().String(), true},
		{Default().Generate().String(), true},
		{"item_not-a-ulid", false},
		{"", false},
		{"550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.id))
		})
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const workers, perWorker = 8, 100
	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := gen.GenerateWithPrefix(ItemPrefix)
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
