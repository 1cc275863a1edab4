package assetkit

import (
	"slices"
	"strconv"

	"github.com/meigma/assetkit/catalog"
	"github.com/meigma/assetkit/graph"
	"github.com/meigma/assetkit/internal/pathutil"
)

// AssetItem is one entry of the session's asset listing.
type AssetItem struct {
	Object *graph.Object
	// UniqueID is "_#N" where N is the object's position in Objects order.
	UniqueID string
	// Text is the display name: the object's name, the script class of an
	// unnamed script instance, or Type followed by UniqueID.
	Text string
	// Container is the logical path assigned during resolution, if any.
	Container string
	Type      string
	ClassID   int32
	PathID    int64
	// Source is the name of the container the object was read from.
	Source string
	// Size is the object's serialized size plus any streamed data size.
	Size int64
}

// Filter selects asset items. Assets keeps the items every filter accepts.
type Filter func(AssetItem) bool

// OfKind keeps items whose class id is one of classIDs.
func OfKind(classIDs ...int32) Filter {
	return func(it AssetItem) bool { return slices.Contains(classIDs, it.ClassID) }
}

// ByName keeps items whose Text contains any of terms, ignoring case.
func ByName(terms ...string) Filter {
	return func(it AssetItem) bool { return anyFold(it.Text, terms) }
}

// ByContainer keeps items whose logical path contains any of terms,
// ignoring case.
func ByContainer(terms ...string) Filter {
	return func(it AssetItem) bool { return anyFold(it.Container, terms) }
}

// ByPathID keeps items whose decimal path id contains any of terms.
func ByPathID(terms ...string) Filter {
	return func(it AssetItem) bool { return anyFold(strconv.FormatInt(it.PathID, 10), terms) }
}

// ByNameOrContainer keeps items whose Text or logical path contains any of
// terms.
func ByNameOrContainer(terms ...string) Filter {
	return func(it AssetItem) bool { return anyFold(it.Text, terms) || anyFold(it.Container, terms) }
}

// ByNameAndContainer keeps items whose Text contains one of names and whose
// logical path contains one of containers.
func ByNameAndContainer(names, containers []string) Filter {
	return func(it AssetItem) bool { return anyFold(it.Text, names) && anyFold(it.Container, containers) }
}

func anyFold(s string, terms []string) bool {
	for _, t := range terms {
		if pathutil.ContainsFold(s, t) {
			return true
		}
	}
	return false
}

// Assets lists the session's objects that every filter accepts, in Objects
// order. The listing is built on first use and reused until the next Load.
func (s *Session) Assets(filters ...Filter) []AssetItem {
	all := s.listing()
	out := make([]AssetItem, 0, len(all))
outer:
	for _, it := range all {
		for _, f := range filters {
			if f != nil && !f(it) {
				continue outer
			}
		}
		out = append(out, it)
	}
	return out
}

func (s *Session) listing() []AssetItem {
	s.assetsMu.Lock()
	defer s.assetsMu.Unlock()
	if s.assets != nil {
		return s.assets
	}

	items := make([]AssetItem, 0)
	var i int
	for obj := range s.Objects() {
		items = append(items, s.assetItem(obj, "_#"+strconv.Itoa(i)))
		i++
	}
	s.assets = items
	return items
}

func (s *Session) assetItem(obj *graph.Object, uniqueID string) AssetItem {
	it := AssetItem{
		Object:   obj,
		UniqueID: uniqueID,
		Type:     obj.ClassName(),
		ClassID:  obj.ClassID,
		PathID:   obj.PathID,
		Source:   obj.Container().Name(),
		Size:     obj.Size,
	}
	it.Container, _ = obj.Path()

	p, err := obj.Decode()
	if err != nil {
		s.log().Debug("asset listed without payload", "container", it.Source, "path_id", obj.PathID, "error", err)
	}
	switch v := p.(type) {
	case *graph.Texture2D:
		if v.Stream.Path != "" {
			it.Size += int64(v.Stream.Size)
		}
		it.Text = v.Name
	case *graph.MonoBehaviour:
		it.Text = v.Name
		if it.Text == "" {
			if ms, ok := s.monoScript(obj.Container(), v.Script); ok {
				it.Text = ms.ClassName
			}
		}
	case graph.Named:
		it.Text = v.ObjectName()
	}
	if it.Text == "" {
		it.Text = it.Type + it.UniqueID
	}
	return it
}

// monoScript resolves a script reference to its decoded MonoScript.
func (s *Session) monoScript(from *graph.Container, ref graph.PPtr) (*graph.MonoScript, bool) {
	obj, ok := s.Resolve(from, ref)
	if !ok {
		return nil, false
	}
	p, err := obj.Decode()
	if err != nil {
		return nil, false
	}
	ms, ok := p.(*graph.MonoScript)
	return ms, ok
}

// Catalog encodes the items every filter accepts as a FlatBuffers
// catalogue.
func (s *Session) Catalog(filters ...Filter) []byte {
	items := s.Assets(filters...)
	entries := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		size := it.Size
		if size < 0 {
			size = 0
		}
		entries = append(entries, catalog.Item{
			UniqueID:  it.UniqueID,
			Name:      it.Text,
			Container: it.Container,
			Type:      it.Type,
			ClassID:   it.ClassID,
			PathID:    it.PathID,
			Source:    it.Source,
			Size:      uint64(size),
		})
	}
	return catalog.Build(entries)
}
