package typetree

import (
	"fmt"
	"log/slog"

	"github.com/meigma/assetkit/internal/asseterr"
)

// classMonoBehaviour is the engine class id of script-defined instances.
const classMonoBehaviour = 114

// Subject is an object whose field layout is being described.
type Subject interface {
	Signature() Signature
	// EmbeddedType returns the layout stored in the container, or nil.
	EmbeddedType() *Node
	// ScriptIdentity returns the script class of a script-defined object.
	ScriptIdentity() (ClassIdentity, bool)
}

// Describer derives field layouts, preferring the container's embedded
// type tree and falling back to an external Source for script classes.
type Describer struct {
	source Source
	cache  *Cache
	logger *slog.Logger
}

// DescriberOption configures a Describer.
type DescriberOption func(*Describer)

// WithCache shares a schema cache between describers.
func WithCache(c *Cache) DescriberOption {
	return func(d *Describer) {
		d.cache = c
	}
}

// WithLogger sets the logger for derivation events.
func WithLogger(logger *slog.Logger) DescriberOption {
	return func(d *Describer) {
		d.logger = logger
	}
}

// NewDescriber returns a Describer using source for script classes.
// source may be nil.
func NewDescriber(source Source, opts ...DescriberOption) *Describer {
	d := &Describer{source: source}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(d)
	}
	if d.cache == nil {
		d.cache = NewCache()
	}
	return d
}

func (d *Describer) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Cache returns the describer's schema cache.
func (d *Describer) Cache() *Cache { return d.cache }

// Describe returns the field layout for s. When neither the embedded tree
// nor the external source can supply one, the error wraps
// ErrSchemaUnavailable.
func (d *Describer) Describe(s Subject) (*Node, error) {
	if n := s.EmbeddedType(); n != nil {
		return n, nil
	}
	sig := s.Signature()
	return d.cache.Get(sig, func() (*Node, error) {
		return d.derive(sig, s)
	})
}

func (d *Describer) derive(sig Signature, s Subject) (*Node, error) {
	id, ok := s.ScriptIdentity()
	if !ok {
		return nil, fmt.Errorf("%w: class %d has no embedded type tree", asseterr.ErrSchemaUnavailable, sig.ClassID)
	}
	if d.source == nil || !d.source.Loaded() {
		return nil, fmt.Errorf("%w: no type source loaded for %s", asseterr.ErrSchemaUnavailable, id)
	}
	fields, ok := d.source.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s not in type source", asseterr.ErrSchemaUnavailable, id)
	}
	d.log().Debug("derived schema from type source", "script", id.String(), "fields", len(fields.Children))
	if sig.ClassID != classMonoBehaviour {
		return fields, nil
	}
	return withScriptBase(fields), nil
}

// withScriptBase prefixes the serialized base fields every script-defined
// instance carries before its own fields.
func withScriptBase(fields *Node) *Node {
	enabled := &Node{Name: "m_Enabled", Type: "UInt8", ByteSize: 1, MetaFlag: AlignFlag}
	root := &Node{
		Name:     "Base",
		Type:     "MonoBehaviour",
		ByteSize: -1,
		Children: []*Node{
			PPtrNode("m_GameObject", "GameObject"),
			enabled,
			PPtrNode("m_Script", "MonoScript"),
			StringNode("m_Name"),
		},
	}
	for _, c := range fields.Children {
		root.Children = append(root.Children, c.clone())
	}
	root.renumber()
	return root
}

// ScriptBase returns the base layout shared by all script-defined
// instances, without class-specific fields.
func ScriptBase() *Node {
	return withScriptBase(&Node{})
}
