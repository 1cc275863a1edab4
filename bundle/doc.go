// Package bundle unpacks asset bundle archives.
//
// An archive is a header, a block table and a node table followed by a
// stream of compressed blocks. Open decompresses the stream and exposes
// each node as a slice of it; nodes flagged as serialized files are then
// parsed by the graph package. Unwrap strips the gzip wrapper used by web
// builds before any of this happens.
package bundle
