package typetree

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ClassIdentity names a script class.
type ClassIdentity struct {
	Assembly  string
	Namespace string
	Class     string
}

// normalized strips the assembly file extension, which the engine records
// inconsistently across versions.
func (id ClassIdentity) normalized() ClassIdentity {
	id.Assembly = strings.TrimSuffix(id.Assembly, ".dll")
	return id
}

// FullName returns Namespace.Class, or Class when there is no namespace.
func (id ClassIdentity) FullName() string {
	if id.Namespace == "" {
		return id.Class
	}
	return id.Namespace + "." + id.Class
}

func (id ClassIdentity) String() string {
	if id.Assembly == "" {
		return id.FullName()
	}
	return id.Assembly + ":" + id.FullName()
}

// Source provides field layouts for script classes from outside the
// container, typically generated from the game's managed assemblies.
type Source interface {
	Loaded() bool
	Load(path string) error
	Lookup(id ClassIdentity) (*Node, bool)
}

// ErrDefinition is returned when a type-definition document is invalid.
var ErrDefinition = errors.New("typetree: invalid type definition")

// FileSource is a Source backed by a YAML type-definition document:
//
//	classes:
//	  - assembly: Assembly-CSharp
//	    namespace: Game
//	    class: Stats
//	    fields:
//	      - {name: hp, type: int}
//	      - {name: tags, type: string, array: true}
//	      - {name: owner, type: PPtr<GameObject>}
//	      - {name: child, type: Game.Child}
//
// Field types are engine primitive names, string, PPtr<T>, the engine's
// vector and color structs, or another class from the same document.
// JSON documents are accepted since JSON is a YAML subset.
type FileSource struct {
	mu      sync.RWMutex
	loaded  bool
	classes map[ClassIdentity]*Node
}

// NewFileSource returns an empty, unloaded source.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Loaded reports whether a document has been loaded.
func (s *FileSource) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Load reads and parses the document at path, replacing any previous one.
func (s *FileSource) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("typetree: load type definitions: %w", err)
	}
	return s.LoadBytes(data)
}

// LoadBytes parses a document held in memory.
func (s *FileSource) LoadBytes(data []byte) error {
	var doc definitionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrDefinition, err)
	}
	classes, err := doc.build()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.classes = classes
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Lookup returns the field layout of id. The returned tree has the class
// as its root and the declared fields as children.
func (s *FileSource) Lookup(id ClassIdentity) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.classes[id.normalized()]
	if !ok && id.Assembly == "" {
		// Callers that only know the class name still get a match when it
		// is unambiguous.
		for k, v := range s.classes {
			if k.Namespace == id.Namespace && k.Class == id.Class {
				if ok {
					return nil, false
				}
				n, ok = v, true
			}
		}
	}
	return n, ok
}

type definitionDoc struct {
	Classes []classDef `yaml:"classes"`
}

type classDef struct {
	Assembly  string     `yaml:"assembly"`
	Namespace string     `yaml:"namespace"`
	Class     string     `yaml:"class"`
	Fields    []fieldDef `yaml:"fields"`
}

type fieldDef struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Array bool   `yaml:"array"`
	Align *bool  `yaml:"align"`
}

func (d definitionDoc) build() (map[ClassIdentity]*Node, error) {
	b := builder{
		defs:     make(map[string]*classDef, len(d.Classes)),
		building: make(map[string]bool),
		built:    make(map[string]*Node),
	}
	for i := range d.Classes {
		c := &d.Classes[i]
		if c.Class == "" {
			return nil, fmt.Errorf("%w: class %d has no name", ErrDefinition, i)
		}
		id := ClassIdentity{Namespace: c.Namespace, Class: c.Class}
		if _, dup := b.defs[id.FullName()]; dup {
			return nil, fmt.Errorf("%w: duplicate class %s", ErrDefinition, id.FullName())
		}
		b.defs[id.FullName()] = c
	}
	out := make(map[ClassIdentity]*Node, len(d.Classes))
	for _, c := range d.Classes {
		id := ClassIdentity{Assembly: c.Assembly, Namespace: c.Namespace, Class: c.Class}
		n, err := b.class(id.FullName())
		if err != nil {
			return nil, err
		}
		root := n.clone()
		root.Name = "Base"
		root.renumber()
		out[id.normalized()] = root
	}
	return out, nil
}

type builder struct {
	defs     map[string]*classDef
	building map[string]bool
	built    map[string]*Node
}

func (b *builder) class(name string) (*Node, error) {
	if n, ok := b.built[name]; ok {
		return n, nil
	}
	def, ok := b.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %s", ErrDefinition, name)
	}
	if b.building[name] {
		return nil, fmt.Errorf("%w: class %s contains itself", ErrDefinition, name)
	}
	b.building[name] = true
	defer delete(b.building, name)

	n := &Node{Type: def.Class, ByteSize: -1}
	for _, f := range def.Fields {
		if f.Name == "" || f.Type == "" {
			return nil, fmt.Errorf("%w: %s: field needs name and type", ErrDefinition, name)
		}
		elem, err := b.field(f.Type, def.Namespace)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, f.Name, err)
		}
		var fn *Node
		if f.Array {
			fn = VectorNode(f.Name, elem)
		} else {
			fn = elem.clone()
			fn.Name = f.Name
			if fn.ByteSize > 0 && fn.ByteSize < 4 {
				fn.MetaFlag |= AlignFlag
			}
		}
		if f.Align != nil {
			if *f.Align {
				fn.MetaFlag |= AlignFlag
			} else {
				fn.MetaFlag &^= AlignFlag
			}
		}
		n.Children = append(n.Children, fn)
	}
	b.built[name] = n
	return n, nil
}

// field resolves a type name to a template node with an empty name.
func (b *builder) field(typ, namespace string) (*Node, error) {
	if w, ok := primitiveWidth(typ); ok {
		return &Node{Type: typ, ByteSize: int32(w)}, nil //nolint:gosec // widths are at most 8
	}
	if typ == "string" {
		return StringNode(""), nil
	}
	if strings.HasPrefix(typ, "PPtr<") {
		return PPtrNode("", strings.TrimSuffix(strings.TrimPrefix(typ, "PPtr<"), ">")), nil
	}
	if n, ok := builtinStruct(typ); ok {
		return n, nil
	}
	if namespace != "" {
		if _, ok := b.defs[namespace+"."+typ]; ok {
			return b.class(namespace + "." + typ)
		}
	}
	return b.class(typ)
}

func builtinStruct(typ string) (*Node, bool) {
	var names []string
	switch typ {
	case "Vector2f":
		names = []string{"x", "y"}
	case "Vector3f":
		names = []string{"x", "y", "z"}
	case "Vector4f", "Quaternionf":
		names = []string{"x", "y", "z", "w"}
	case "ColorRGBA":
		names = []string{"r", "g", "b", "a"}
	case "Rectf":
		names = []string{"x", "y", "width", "height"}
	default:
		return nil, false
	}
	n := &Node{Type: typ, ByteSize: int32(4 * len(names))} //nolint:gosec // at most 16
	for _, name := range names {
		n.Children = append(n.Children, &Node{Name: name, Type: "float", ByteSize: 4})
	}
	return n, true
}

// clone copies n and its descendants.
func (n *Node) clone() *Node {
	c := *n
	if len(n.Children) == 0 {
		c.Children = nil
		return &c
	}
	c.Children = make([]*Node, len(n.Children))
	for i, child := range n.Children {
		c.Children[i] = child.clone()
	}
	return &c
}

// StringNode returns the engine layout of a string field.
func StringNode(name string) *Node {
	return &Node{
		Name: name, Type: "string", ByteSize: -1,
		Children: []*Node{{
			Name: "Array", Type: "Array", ByteSize: -1, IsArray: true, MetaFlag: AlignFlag,
			Children: []*Node{
				{Name: "size", Type: "int", ByteSize: 4},
				{Name: "data", Type: "char", ByteSize: 1},
			},
		}},
	}
}

// VectorNode returns the engine layout of a dynamic array of elem.
func VectorNode(name string, elem *Node) *Node {
	data := elem.clone()
	data.Name = "data"
	return &Node{
		Name: name, Type: "vector", ByteSize: -1,
		Children: []*Node{{
			Name: "Array", Type: "Array", ByteSize: -1, IsArray: true, MetaFlag: AlignFlag,
			Children: []*Node{
				{Name: "size", Type: "int", ByteSize: 4},
				data,
			},
		}},
	}
}

// PPtrNode returns the engine layout of an object reference field.
func PPtrNode(name, target string) *Node {
	return &Node{
		Name: name, Type: "PPtr<" + target + ">", ByteSize: 12,
		Children: []*Node{
			{Name: "m_FileID", Type: "int", ByteSize: 4},
			{Name: "m_PathID", Type: "SInt64", ByteSize: 8},
		},
	}
}
