package typetree

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSingleDerivation(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	sig := Signature{ClassID: 114, ScriptTypeIndex: 3}

	var calls atomic.Int64
	derive := func() (*Node, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return sampleTree(), nil
	}

	const n = 32
	results := make([]*Node, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			node, err := cache.Get(sig, derive)
			assert.NoError(t, err)
			results[i] = node
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, int64(1), cache.Derivations())
	assert.Equal(t, 1, cache.Len())
	for i := range results {
		assert.Same(t, results[0], results[i], "result %d differs", i)
	}
}

func TestCacheFailureNotCached(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	sig := Signature{ClassID: 114}
	boom := errors.New("boom")

	_, err := cache.Get(sig, func() (*Node, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())

	got, err := cache.Get(sig, func() (*Node, error) { return sampleTree(), nil })
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, int64(2), cache.Derivations())
}

func TestCacheKeysIndependent(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	slow := Signature{ClassID: 114, Script: ClassIdentity{Class: "Slow"}}
	fast := Signature{ClassID: 114, Script: ClassIdentity{Class: "Fast"}}

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(slow, func() (*Node, error) {
			close(started)
			<-release
			return sampleTree(), nil
		})
		done <- err
	}()
	<-started

	// The slow derivation is still blocked; an unrelated key must not wait on it.
	got, err := cache.Get(fast, func() (*Node, error) { return sampleTree(), nil })
	require.NoError(t, err)
	assert.NotNil(t, got)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, cache.Len())
}
