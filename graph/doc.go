// Package graph parses serialized asset files into containers of objects.
//
// Parse reads a file's header and metadata tables and builds the object
// table without touching any payload. Each Object decodes its payload on
// first use through the kind registry; classes without a registered kind
// decode to *Unknown.
//
// Objects reference each other with PPtr values. A PPtr is relative to the
// container holding it; mapping it to an Object across containers is the
// job of the session that owns them.
package graph
