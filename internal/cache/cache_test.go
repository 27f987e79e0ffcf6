package cache

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcana/internal/reading"
)

func ctxWithIntention(intention string) reading.Context {
	return reading.Context{
		Draws: []reading.Draw{
			{SymbolID: 16, Reversed: true, Position: "past"},
			{SymbolID: 13, Position: "present"},
		},
		Profile:     reading.Profile{Name: "Ada", SunSign: "leo"},
		Intention:   intention,
		ReadingType: "general",
		SpreadType:  "three_card",
	}
}

func TestKey(t *testing.T) {
	t.Run("seed plays no part", func(t *testing.T) {
		// Key takes no seed at all; two requests differing only in seed are
		// indistinguishable here by construction. Assert the semantic parts
		// that do participate.
		k := Key(ctxWithIntention("Find Clarity!"))
		assert.Contains(t, k, "16:r:past")
		assert.Contains(t, k, "13:u:present")
		assert.Contains(t, k, "i=findclarity")
		assert.Contains(t, k, "t=general")
		assert.Contains(t, k, "s=three_card")
	})

	t.Run("intention normalization collapses case and punctuation", func(t *testing.T) {
		a := Key(ctxWithIntention("Find Clarity, about my career?"))
		b := Key(ctxWithIntention("find clarity about my career"))
		assert.Equal(t, a, b)
	})

	t.Run("long intentions truncate to a bounded contribution", func(t *testing.T) {
		long := strings.Repeat("clarity ", 40)
		k := Key(ctxWithIntention(long))
		for _, part := range strings.Split(k, "|") {
			if strings.HasPrefix(part, "i=") {
				assert.LessOrEqual(t, len(part)-2, maxIntentionKeyLen)
				return
			}
		}
		t.Fatal("key has no intention component")
	})

	t.Run("orientation flips change the key", func(t *testing.T) {
		a := ctxWithIntention("x")
		b := ctxWithIntention("x")
		b.Draws[0].Reversed = false
		assert.NotEqual(t, Key(a), Key(b))
	})

	t.Run("profile essentials participate", func(t *testing.T) {
		a := ctxWithIntention("x")
		b := ctxWithIntention("x")
		b.Profile.SunSign = "virgo"
		assert.NotEqual(t, Key(a), Key(b))
	})
}

func TestCacheLRU(t *testing.T) {
	rc := func(i int) reading.Context {
		return ctxWithIntention(fmt.Sprintf("intention %d", i))
	}

	t.Run("get after put round-trips", func(t *testing.T) {
		c := New(2)
		c.Put(rc(1), "doc one")
		v, ok := c.Get(rc(1))
		require.True(t, ok)
		assert.Equal(t, "doc one", v)
	})

	t.Run("miss on unknown context", func(t *testing.T) {
		c := New(2)
		_, ok := c.Get(rc(1))
		assert.False(t, ok)
	})

	t.Run("eviction drops the least recently used", func(t *testing.T) {
		c := New(2)
		c.Put(rc(1), "one")
		c.Put(rc(2), "two")

		// Touch 1 so 2 becomes the eviction target.
		_, ok := c.Get(rc(1))
		require.True(t, ok)

		c.Put(rc(3), "three")
		assert.Equal(t, 2, c.Len())

		_, ok = c.Get(rc(2))
		assert.False(t, ok, "least recently used entry must be gone")
		_, ok = c.Get(rc(1))
		assert.True(t, ok)
		_, ok = c.Get(rc(3))
		assert.True(t, ok)
	})

	t.Run("put on existing key updates in place", func(t *testing.T) {
		c := New(2)
		c.Put(rc(1), "old")
		c.Put(rc(1), "new")
		assert.Equal(t, 1, c.Len())
		v, _ := c.Get(rc(1))
		assert.Equal(t, "new", v)
	})

	t.Run("capacity clamps to one", func(t *testing.T) {
		c := New(0)
		assert.Equal(t, 1, c.Capacity())
		c.Put(rc(1), "one")
		c.Put(rc(2), "two")
		assert.Equal(t, 1, c.Len())
	})

	t.Run("clear empties memory", func(t *testing.T) {
		c := New(4)
		c.Put(rc(1), "one")
		c.Clear()
		assert.Equal(t, 0, c.Len())
		_, ok := c.Get(rc(1))
		assert.False(t, ok)
	})

	t.Run("access bookkeeping advances with the injected clock", func(t *testing.T) {
		tick := time.Unix(1000, 0)
		c := New(2, WithClock(func() time.Time { return tick }))
		c.Put(rc(1), "one")

		tick = time.Unix(2000, 0)
		_, ok := c.Get(rc(1))
		require.True(t, ok)

		el := c.items[Key(rc(1))]
		e := el.Value.(*Entry)
		assert.Equal(t, time.Unix(1000, 0), e.CreatedAt)
		assert.Equal(t, time.Unix(2000, 0), e.LastAccessedAt)
		assert.Equal(t, 1, e.AccessCount)
	})
}

func TestStore(t *testing.T) {
	open := func(t *testing.T) *Store {
		t.Helper()
		s, err := OpenStore(filepath.Join(t.TempDir(), "cache", "syntheses.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("round-trip and upsert", func(t *testing.T) {
		s := open(t)

		_, ok, err := s.Get("k")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Put("k", "v1"))
		v, ok, err := s.Get("k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "v1", v)

		require.NoError(t, s.Put("k", "v2"))
		v, _, err = s.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "v2", v)

		n, err := s.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put("a", "1"))
		require.NoError(t, s.Put("b", "2"))
		require.NoError(t, s.Clear())
		n, err := s.Count()
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("prune keeps recently accessed documents", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put("fresh", "doc"))
		dropped, err := s.Prune(time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(0), dropped)
	})
}

func TestCacheWithStoreTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syntheses.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rc := ctxWithIntention("persist me")

	t.Run("put writes through to the store", func(t *testing.T) {
		c := New(2, WithStore(store))
		c.Put(rc, "document")

		v, ok, err := store.Get(Key(rc))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "document", v)
	})

	t.Run("store hit is pulled into memory", func(t *testing.T) {
		// A fresh cache sharing the same store simulates a process restart.
		c := New(2, WithStore(store))
		v, ok := c.Get(rc)
		require.True(t, ok)
		assert.Equal(t, "document", v)
		assert.Equal(t, 1, c.Len(), "store hit must be promoted into memory")
	})
}
