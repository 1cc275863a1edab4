package typetree

import (
	"errors"
	"fmt"

	"github.com/meigma/assetkit/internal/asseterr"
	"github.com/meigma/assetkit/internal/binutil"
)

// ErrTrailingBytes is returned by DecodeExact when the schema does not
// consume the whole payload.
var ErrTrailingBytes = errors.New("typetree: trailing bytes after decode")

// FieldError locates a decode failure inside the schema.
type FieldError struct {
	Path string
	Err  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("typetree: field %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrDecode and the underlying cause.
func (e *FieldError) Unwrap() []error { return []error{asseterr.ErrDecode, e.Err} }

// Decode reads a value tree from r following schema. The root node's
// children become the tree's fields. Any field failure aborts the whole
// decode; no partial tree is returned.
func Decode(r *binutil.Reader, schema *Node) (*Tree, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: typetree: nil schema", asseterr.ErrDecode)
	}
	d := decoder{r: r}
	tree := d.class(schema, schema.Name)
	if d.err != nil {
		return nil, d.err
	}
	return tree, nil
}

// DecodeExact is Decode with an additional check that every byte of r was
// consumed.
func DecodeExact(r *binutil.Reader, schema *Node) (*Tree, error) {
	tree, err := Decode(r, schema)
	if err != nil {
		return nil, err
	}
	if n := r.Remaining(); n > 0 {
		return nil, &FieldError{Path: schema.Name, Err: fmt.Errorf("%w: %d bytes", ErrTrailingBytes, n)}
	}
	return tree, nil
}

type decoder struct {
	r   *binutil.Reader
	err error
}

func (d *decoder) fail(path string, err error) {
	if d.err == nil {
		d.err = &FieldError{Path: path, Err: err}
	}
}

// check converts a reader failure into a field error at path.
func (d *decoder) check(path string) bool {
	if d.err != nil {
		return false
	}
	if err := d.r.Err(); err != nil {
		d.fail(path, err)
		return false
	}
	return true
}

func (d *decoder) class(n *Node, path string) *Tree {
	t := &Tree{Type: n.Type, Fields: make([]Field, 0, len(n.Children))}
	for _, c := range n.Children {
		v := d.value(c, path+"."+c.Name)
		if d.err != nil {
			return nil
		}
		t.Fields = append(t.Fields, Field{Name: c.Name, Value: v})
	}
	return t
}

func (d *decoder) value(n *Node, path string) Value {
	align := n.Aligned()
	var v Value
	switch n.Type {
	case "SInt8":
		v = d.r.I8()
	case "UInt8", "char":
		v = d.r.U8()
	case "short", "SInt16":
		v = d.r.I16()
	case "UInt16", "unsigned short":
		v = d.r.U16()
	case "int", "SInt32":
		v = d.r.I32()
	case "UInt32", "unsigned int", "Type*":
		v = d.r.U32()
	case "long long", "SInt64":
		v = d.r.I64()
	case "UInt64", "unsigned long long", "FileSize":
		v = d.r.U64()
	case "float":
		v = d.r.F32()
	case "double":
		v = d.r.F64()
	case "bool":
		v = d.r.Bool()
	case "string":
		v = d.r.AlignedString()
	case "TypelessData":
		v = d.r.ByteArray()
	case "map":
		v, align = d.mapValue(n, path, align)
	default:
		if arr, ok := n.arrayChild(); ok {
			if arr.Aligned() {
				align = true
			}
			v = d.vector(arr, path)
		} else {
			v = d.class(n, path)
		}
	}
	if align {
		d.r.Align(4)
	}
	if !d.check(path) {
		return nil
	}
	return v
}

func (d *decoder) vector(arr *Node, path string) Value {
	elem := arr.Children[1]
	if elem.Type == "UInt8" || elem.Type == "char" {
		b := d.r.ByteArray()
		if !d.check(path) {
			return nil
		}
		return append([]byte(nil), b...)
	}
	n := d.r.Count(minSize(elem))
	if !d.check(path) {
		return nil
	}
	out := make([]Value, 0, n)
	for i := range n {
		v := d.value(elem, fmt.Sprintf("%s[%d]", path, i))
		if d.err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

func (d *decoder) mapValue(n *Node, path string, align bool) (Value, bool) {
	arr, ok := n.arrayChild()
	if !ok {
		d.fail(path, fmt.Errorf("%w: map without Array child", asseterr.ErrDecode))
		return nil, false
	}
	if arr.Aligned() {
		align = true
	}
	pair := arr.Children[1]
	if len(pair.Children) < 2 {
		d.fail(path, fmt.Errorf("%w: map pair needs first and second", asseterr.ErrDecode))
		return nil, false
	}
	first, second := pair.Children[0], pair.Children[1]
	count := d.r.Count(minSize(first) + minSize(second))
	if !d.check(path) {
		return nil, false
	}
	out := make([]Pair, 0, count)
	for i := range count {
		elem := fmt.Sprintf("%s[%d]", path, i)
		k := d.value(first, elem+".first")
		if d.err != nil {
			return nil, false
		}
		v := d.value(second, elem+".second")
		if d.err != nil {
			return nil, false
		}
		out = append(out, Pair{Key: k, Value: v})
	}
	return out, align
}

// minSize is a lower bound on the encoded size of one value of n, used
// to reject element counts that cannot fit in the remaining bytes.
func minSize(n *Node) int {
	if w, ok := primitiveWidth(n.Type); ok {
		return w
	}
	switch n.Type {
	case "string", "TypelessData":
		return 4
	}
	if _, ok := n.arrayChild(); ok {
		return 4
	}
	total := 0
	for _, c := range n.Children {
		total += minSize(c)
	}
	return total
}

func primitiveWidth(typ string) (int, bool) {
	switch typ {
	case "SInt8", "UInt8", "char", "bool":
		return 1, true
	case "short", "SInt16", "UInt16", "unsigned short":
		return 2, true
	case "int", "SInt32", "UInt32", "unsigned int", "Type*", "float":
		return 4, true
	case "long long", "SInt64", "UInt64", "unsigned long long", "FileSize", "double":
		return 8, true
	}
	return 0, false
}
