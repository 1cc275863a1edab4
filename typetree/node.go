package typetree

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// AlignFlag is the meta flag bit requesting 4-byte alignment after a field.
const AlignFlag int32 = 0x4000

// Node is one field in a type tree.
//
// Trees are immutable once built and are shared by every object with the
// same signature; callers must not modify a Node obtained from a Describer
// or Cache.
type Node struct {
	Name     string
	Type     string
	ByteSize int32
	Index    int32
	Level    int
	IsArray  bool
	MetaFlag int32
	Children []*Node
}

// Aligned reports whether the stream is aligned to 4 bytes after this field.
func (n *Node) Aligned() bool { return n.MetaFlag&AlignFlag != 0 }

// Child returns the first direct child with the given field name.
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// arrayChild returns the Array node of a vector-like field.
func (n *Node) arrayChild() (*Node, bool) {
	if len(n.Children) == 0 {
		return nil, false
	}
	c := n.Children[0]
	if c.Type != "Array" && !c.IsArray {
		return nil, false
	}
	if len(c.Children) < 2 {
		return nil, false
	}
	return c, true
}

// Walk visits n and its descendants depth-first in field order.
// Returning false from fn stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

// Fingerprint returns a BLAKE3 digest of the tree's structure.
// Two trees with equal fingerprints decode identically.
func (n *Node) Fingerprint() [32]byte {
	h := blake3.New()
	var scratch [4]byte
	n.Walk(func(c *Node) bool {
		writeField(h, c.Type)
		writeField(h, c.Name)
		binary.LittleEndian.PutUint32(scratch[:], uint32(c.ByteSize)) //nolint:gosec // bit reinterpretation
		_, _ = h.Write(scratch[:])
		binary.LittleEndian.PutUint32(scratch[:], uint32(c.MetaFlag)) //nolint:gosec // bit reinterpretation
		_, _ = h.Write(scratch[:])
		flags := byte(c.Level) << 1 //nolint:gosec // levels are shallow
		if c.IsArray {
			flags |= 1
		}
		_, _ = h.Write([]byte{flags})
		return true
	})
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writeField(h *blake3.Hasher, s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s))) //nolint:gosec // names are short
	_, _ = h.Write(n[:])
	_, _ = h.Write([]byte(s))
}

// String renders the tree in the indented dump layout:
//
//	Type Name // ByteSize{4}, Index{1}, IsArray{0}, MetaFlag{4000}
func (n *Node) String() string {
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		array := 0
		if c.IsArray {
			array = 1
		}
		fmt.Fprintf(&b, "%s%s %s // ByteSize{%x}, Index{%x}, IsArray{%d}, MetaFlag{%x}\n",
			strings.Repeat("\t", c.Level), c.Type, c.Name, uint32(c.ByteSize), c.Index, array, uint32(c.MetaFlag)) //nolint:gosec // hex dump of raw bits
		return true
	})
	return b.String()
}

// renumber assigns Level and Index from the tree shape. Builders call it
// once after assembling a tree.
func (n *Node) renumber() {
	var index int32
	var visit func(*Node, int)
	visit = func(c *Node, level int) {
		c.Level = level
		c.Index = index
		index++
		for _, child := range c.Children {
			visit(child, level+1)
		}
	}
	visit(n, n.Level)
}
