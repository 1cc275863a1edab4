package graph

import (
	"github.com/meigma/assetkit/internal/binutil"
	"github.com/meigma/assetkit/typetree"
)

// MonoScript names the managed class behind script-defined instances.
type MonoScript struct {
	Name           string
	ExecutionOrder int32
	PropertiesHash [16]byte
	ClassName      string
	Namespace      string
	AssemblyName   string
}

func (*MonoScript) payload() {}

// ObjectName returns the script's name.
func (s *MonoScript) ObjectName() string { return s.Name }

// Identity returns the class identity used to look up external layouts.
func (s *MonoScript) Identity() typetree.ClassIdentity {
	return typetree.ClassIdentity{Assembly: s.AssemblyName, Namespace: s.Namespace, Class: s.ClassName}
}

func decodeMonoScript(l *Layout) Payload {
	v := l.Engine
	s := &MonoScript{Name: l.Name()}
	if v.AtLeast(3, 4) {
		s.ExecutionOrder = l.I32()
	}
	if v.AtLeast(5) {
		copy(s.PropertiesHash[:], l.Bytes(16))
	} else {
		l.U32()
	}
	s.ClassName = l.AlignedString()
	s.Namespace = l.AlignedString()
	s.AssemblyName = l.AlignedString()
	if !v.AtLeast(2018, 2) {
		l.Bool() // m_IsEditorScript
		l.Align(4)
	}
	return s
}

// MonoBehaviour is a script-defined instance. Only the base fields have a
// fixed layout; the script's own fields start at FieldsOffset and are
// decoded against a schema.
type MonoBehaviour struct {
	GameObject   PPtr
	Enabled      bool
	Script       PPtr
	Name         string
	FieldsOffset int
}

func (*MonoBehaviour) payload() {}

// ObjectName returns the instance's name.
func (m *MonoBehaviour) ObjectName() string { return m.Name }

func decodeMonoBehaviour(l *Layout) Payload {
	m := &MonoBehaviour{GameObject: l.PPtr()}
	m.Enabled = l.Bool()
	l.Align(4)
	m.Script = l.PPtr()
	m.Name = l.AlignedString()
	m.FieldsOffset = l.Pos()
	return m
}

// AssetInfo is an AssetBundle container entry: a span of the preload
// table plus the primary asset.
type AssetInfo struct {
	PreloadIndex int32
	PreloadSize  int32
	Asset        PPtr
}

// ContainerEntry maps a logical path to an AssetInfo. Entries keep their
// table order; a path may appear more than once.
type ContainerEntry struct {
	Path string
	Info AssetInfo
}

// AssetBundle indexes the objects of a bundle by logical path.
type AssetBundle struct {
	Name         string
	PreloadTable []PPtr
	Container    []ContainerEntry
}

func (*AssetBundle) payload() {}

// ObjectName returns the bundle's name.
func (b *AssetBundle) ObjectName() string { return b.Name }

// Preload returns the preload table span of info. Out-of-range spans
// are clipped to the table.
func (b *AssetBundle) Preload(info AssetInfo) []PPtr {
	start := int(info.PreloadIndex)
	end := start + int(info.PreloadSize)
	if start < 0 {
		start = 0
	}
	if end > len(b.PreloadTable) {
		end = len(b.PreloadTable)
	}
	if start >= end {
		return nil
	}
	return b.PreloadTable[start:end]
}

func decodeAssetBundle(l *Layout) Payload {
	b := &AssetBundle{Name: l.Name()}
	b.PreloadTable = l.PPtrs()
	b.Container = binutil.Array(l.Reader, 24, func(r *binutil.Reader) ContainerEntry {
		e := ContainerEntry{Path: r.AlignedString()}
		e.Info.PreloadIndex = r.I32()
		e.Info.PreloadSize = r.I32()
		e.Info.Asset = ReadPPtr(r)
		return e
	})
	return b
}

// ResourceEntry maps a logical path to one object.
type ResourceEntry struct {
	Path   string
	Object PPtr
}

// ResourceManager indexes objects loadable by path at runtime.
type ResourceManager struct {
	Container []ResourceEntry
}

func (*ResourceManager) payload() {}

func decodeResourceManager(l *Layout) Payload {
	m := &ResourceManager{}
	m.Container = binutil.Array(l.Reader, 16, func(r *binutil.Reader) ResourceEntry {
		return ResourceEntry{Path: r.AlignedString(), Object: ReadPPtr(r)}
	})
	return m
}
