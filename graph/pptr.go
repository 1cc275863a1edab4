package graph

import "github.com/meigma/assetkit/internal/binutil"

// PPtr is a serialized object reference. FileID 0 names the referencing
// container; FileID N > 0 names its N-th external reference.
type PPtr struct {
	FileID int32
	PathID int64
}

// IsNull reports whether the reference points nowhere.
func (p PPtr) IsNull() bool { return p.PathID == 0 }

// ReadPPtr reads a reference in the layout used by formats 14 and later.
func ReadPPtr(r *binutil.Reader) PPtr {
	return PPtr{FileID: r.I32(), PathID: r.I64()}
}

// ObjectID identifies an object within a session.
type ObjectID struct {
	Container int
	PathID    int64
}
