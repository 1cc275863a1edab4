package catalog

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []Item {
	return []Item{
		{UniqueID: "_#2", Name: "hero", Container: "assets/chars/hero.png", Type: "Texture2D", ClassID: 28, PathID: 7, Source: "a.assets", Size: 4096},
		{UniqueID: "_#1", Name: "clip", Container: "assets/anim/idle.anim", Type: "AnimationClip", ClassID: 74, PathID: -3, Source: "a.assets", Size: 120},
		{UniqueID: "_#10", Name: "Sprite_#10", Type: "Sprite", ClassID: 213, PathID: 99, Source: "b.assets", Size: 64},
	}
}

func mustLoad(tb testing.TB, items []Item) *Catalog {
	tb.Helper()
	c, err := Load(Build(items))
	require.NoError(tb, err)
	return c
}

func TestBuildLoad(t *testing.T) {
	t.Parallel()

	items := sampleItems()
	c := mustLoad(t, items)
	assert.Equal(t, uint32(Version), c.Version())
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "_#2", items[0].UniqueID, "input is not reordered")

	var ids []string
	for ev := range c.Entries() {
		ids = append(ids, ev.UniqueID())
	}
	assert.Equal(t, []string{"_#1", "_#10", "_#2"}, ids)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	c := mustLoad(t, sampleItems())
	for _, want := range sampleItems() {
		ev, ok := c.Lookup(want.UniqueID)
		require.True(t, ok, want.UniqueID)
		assert.Equal(t, want, ev.Item())
	}

	_, ok := c.Lookup("_#3")
	assert.False(t, ok)
	_, ok = c.Lookup("")
	assert.False(t, ok)
}

func TestLookupEmpty(t *testing.T) {
	t.Parallel()

	c := mustLoad(t, nil)
	assert.Equal(t, 0, c.Len())
	_, ok := c.Lookup("_#1")
	assert.False(t, ok)
	assert.Empty(t, slices.Collect(c.Entries()))
}

func TestWithContainerPrefix(t *testing.T) {
	t.Parallel()

	c := mustLoad(t, sampleItems())
	var names []string
	for ev := range c.WithContainerPrefix("assets/") {
		names = append(names, ev.Name())
	}
	assert.Equal(t, []string{"clip", "hero"}, names)

	var first []string
	for ev := range c.WithContainerPrefix("") {
		first = append(first, ev.UniqueID())
		break
	}
	assert.Equal(t, []string{"_#1"}, first)
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	_, err := Load(nil)
	require.ErrorIs(t, err, ErrInvalid)

	data := Build(sampleItems())
	_, err = Load(data[:len(data)/4])
	assert.ErrorIs(t, err, ErrInvalid)
}
