package typetree

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Signature identifies objects that share one field layout.
type Signature struct {
	ClassID         int32
	ScriptTypeIndex int16
	TypeHash        [16]byte
	Script          ClassIdentity
}

func (s Signature) key() string {
	return fmt.Sprintf("%d/%d/%x/%s", s.ClassID, s.ScriptTypeIndex, s.TypeHash, s.Script)
}

// Cache memoises derived schemas by signature.
//
// Concurrent Get calls for the same signature share one derivation.
// Calls for different signatures never wait on each other. A failed
// derivation is not stored, so the next caller retries it.
type Cache struct {
	mu          sync.RWMutex
	entries     map[Signature]*Node
	group       singleflight.Group
	derivations atomic.Int64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Signature]*Node)}
}

// Get returns the cached schema for sig, calling derive at most once per
// signature across concurrent callers when it is missing.
func (c *Cache) Get(sig Signature, derive func() (*Node, error)) (*Node, error) {
	if n, ok := c.lookup(sig); ok {
		return n, nil
	}

	result, err, _ := c.group.Do(sig.key(), func() (any, error) {
		// Another flight may have stored it between the lookup and Do.
		if n, ok := c.lookup(sig); ok {
			return n, nil
		}
		c.derivations.Add(1)
		n, err := derive()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[sig] = n
		c.mu.Unlock()
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	n, _ := result.(*Node) //nolint:errcheck // always *Node when err is nil
	return n, nil
}

func (c *Cache) lookup(sig Signature) (*Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.entries[sig]
	return n, ok
}

// Len returns the number of cached schemas.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Derivations returns how many times a derive function has been invoked.
func (c *Cache) Derivations() int64 { return c.derivations.Load() }
