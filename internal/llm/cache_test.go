package llm

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/cardwise/internal/model"
)

func TestResultCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		cache := newResultCache(10, 5*time.Minute)

		_, found := cache.get("non-existent")
		assert.False(t, found)

		result := model.LLMParsedSMS{Bank: "HDFC Bank", Amount: 799, Confidence: 0.9}
		cache.set("key1", result)

		retrieved, found := cache.get("key1")
		assert.True(t, found)
		assert.Equal(t, result, retrieved)
		assert.Equal(t, 1, cache.size())

		cache.clear()
		assert.Equal(t, 0, cache.size())
		_, found = cache.get("key1")
		assert.False(t, found)
	})

	t.Run("expiration", func(t *testing.T) {
		now := time.Date(2025, 7, 30, 0, 0, 0, 0, time.UTC)
		cache := newResultCache(10, time.Hour)
		cache.now = func() time.Time { return now }

		cache.set("key", model.LLMParsedSMS{Bank: "SBI"})
		_, found := cache.get("key")
		assert.True(t, found)

		now = now.Add(2 * time.Hour)
		_, found = cache.get("key")
		assert.False(t, found)
		assert.Equal(t, 0, cache.size())
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		now := time.Now()
		cache := newResultCache(10, 0)
		cache.now = func() time.Time { return now }

		cache.set("key", model.LLMParsedSMS{Bank: "SBI"})
		now = now.Add(1000 * time.Hour)
		_, found := cache.get("key")
		assert.True(t, found)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		cache := newResultCache(2, time.Hour)

		cache.set("a", model.LLMParsedSMS{Bank: "A"})
		cache.set("b", model.LLMParsedSMS{Bank: "B"})
		_, _ = cache.get("a")
		cache.set("c", model.LLMParsedSMS{Bank: "C"})

		assert.Equal(t, 2, cache.size())
		_, found := cache.get("b")
		assert.False(t, found, "b was least recently used")
		_, found = cache.get("a")
		assert.True(t, found)
		_, found = cache.get("c")
		assert.True(t, found)
	})

	t.Run("overwrite keeps size", func(t *testing.T) {
		cache := newResultCache(2, time.Hour)
		cache.set("a", model.LLMParsedSMS{Bank: "A"})
		cache.set("a", model.LLMParsedSMS{Bank: "A2"})

		got, _ := cache.get("a")
		assert.Equal(t, "A2", got.Bank)
		assert.Equal(t, 1, cache.size())
	})

	t.Run("concurrent access", func(t *testing.T) {
		cache := newResultCache(50, 5*time.Minute)

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func(worker int) {
				defer wg.Done()
				for j := range 100 {
					key := fmt.Sprintf("k%d", (worker*100+j)%80)
					cache.set(key, model.LLMParsedSMS{Bank: key})
					_, _ = cache.get(key)
				}
			}(i)
		}
		wg.Wait()

		assert.LessOrEqual(t, cache.size(), 50)
	})
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("HDFCBK", "Spent Rs.799"), cacheKey("HDFCBK", "  spent   RS.799 "))
	assert.NotEqual(t, cacheKey("HDFCBK", "Spent Rs.799"), cacheKey("SBIINB", "Spent Rs.799"))
}
