// Package catalog encodes a session's asset listing as a FlatBuffers
// catalogue. Entries are sorted by unique id so lookups are a binary search
// over the encoded buffer without unpacking it.
package catalog

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/meigma/assetkit/internal/fb"
)

// Version is the catalogue format version written by Build.
const Version = 1

// ErrInvalid is returned when catalogue data cannot be read.
var ErrInvalid = errors.New("catalog: invalid data")

// Item is one asset to record.
type Item struct {
	UniqueID  string
	Name      string
	Container string
	Type      string
	ClassID   int32
	PathID    int64
	Source    string
	Size      uint64
}

// Build encodes items into a catalogue. The input slice is not modified.
func Build(items []Item) []byte {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b Item) int {
		return strings.Compare(a.UniqueID, b.UniqueID)
	})

	builder := flatbuffers.NewBuilder(256 + 64*len(sorted))

	// Tables are built back to front.
	offsets := make([]flatbuffers.UOffsetT, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		it := sorted[i]
		id := builder.CreateString(it.UniqueID)
		name := builder.CreateString(it.Name)
		container := builder.CreateString(it.Container)
		typ := builder.CreateString(it.Type)
		source := builder.CreateString(it.Source)

		fb.EntryStart(builder)
		fb.EntryAddUniqueId(builder, id)
		fb.EntryAddName(builder, name)
		fb.EntryAddContainer(builder, container)
		fb.EntryAddType(builder, typ)
		fb.EntryAddClassId(builder, it.ClassID)
		fb.EntryAddPathId(builder, it.PathID)
		fb.EntryAddSource(builder, source)
		fb.EntryAddSize(builder, it.Size)
		offsets[i] = fb.EntryEnd(builder)
	}

	fb.CatalogStartEntriesVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	entries := builder.EndVector(len(offsets))

	fb.CatalogStart(builder)
	fb.CatalogAddVersion(builder, Version)
	fb.CatalogAddEntries(builder, entries)
	fb.FinishCatalogBuffer(builder, fb.CatalogEnd(builder))
	return builder.FinishedBytes()
}

// Catalog is a loaded catalogue.
//
// Accessors return EntryView values that alias the catalogue data.
type Catalog struct {
	data []byte
	root *fb.Catalog
}

// Load parses a catalogue produced by Build.
//
// The data is retained; callers must not modify it after calling Load. Every
// entry is visited once so corrupt data fails here instead of in a later
// accessor.
func Load(data []byte) (c *Catalog, err error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalid, len(data))
	}
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("%w: %v", ErrInvalid, r)
		}
	}()

	root := fb.GetRootAsCatalog(data, 0)
	var e fb.Entry
	for i := range root.EntriesLength() {
		if !root.Entries(&e, i) {
			break
		}
		_ = e.UniqueId()
		_ = e.Name()
		_ = e.Container()
		_ = e.Type()
		_ = e.Source()
		_ = e.PathId()
		_ = e.Size()
	}
	return &Catalog{data: data, root: root}, nil
}

// Version returns the catalogue format version.
func (c *Catalog) Version() uint32 {
	return c.root.Version()
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return c.root.EntriesLength()
}

// Lookup returns the entry with the given unique id.
func (c *Catalog) Lookup(uniqueID string) (EntryView, bool) {
	var e fb.Entry
	if !c.root.EntriesByKey(&e, uniqueID) {
		return EntryView{}, false
	}
	return EntryView{entry: e}, true
}

// Entries returns an iterator over all entries in unique id order.
func (c *Catalog) Entries() iter.Seq[EntryView] {
	return func(yield func(EntryView) bool) {
		var e fb.Entry
		for i := range c.root.EntriesLength() {
			if !c.root.Entries(&e, i) {
				return
			}
			if !yield(EntryView{entry: e}) {
				return
			}
		}
	}
}

// WithContainerPrefix returns an iterator over entries whose container path
// starts with prefix, in unique id order.
func (c *Catalog) WithContainerPrefix(prefix string) iter.Seq[EntryView] {
	return func(yield func(EntryView) bool) {
		for ev := range c.Entries() {
			if !strings.HasPrefix(string(ev.entry.Container()), prefix) {
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// EntryView is a read-only view of a catalogue entry. It is only valid while
// the Catalog that produced it remains alive.
type EntryView struct {
	entry fb.Entry
}

// UniqueID returns the entry's unique id.
func (ev EntryView) UniqueID() string { return string(ev.entry.UniqueId()) }

// Name returns the display name.
func (ev EntryView) Name() string { return string(ev.entry.Name()) }

// Container returns the logical container path, if any.
func (ev EntryView) Container() string { return string(ev.entry.Container()) }

// Type returns the kind name.
func (ev EntryView) Type() string { return string(ev.entry.Type()) }

// ClassID returns the engine class id.
func (ev EntryView) ClassID() int32 { return ev.entry.ClassId() }

// PathID returns the object's path id within its container.
func (ev EntryView) PathID() int64 { return ev.entry.PathId() }

// Source returns the name of the container the object was read from.
func (ev EntryView) Source() string { return string(ev.entry.Source()) }

// Size returns the object size plus any streamed data size.
func (ev EntryView) Size() uint64 { return ev.entry.Size() }

// Item returns a copy of the entry.
func (ev EntryView) Item() Item {
	return Item{
		UniqueID:  ev.UniqueID(),
		Name:      ev.Name(),
		Container: ev.Container(),
		Type:      ev.Type(),
		ClassID:   ev.ClassID(),
		PathID:    ev.PathID(),
		Source:    ev.Source(),
		Size:      ev.Size(),
	}
}
