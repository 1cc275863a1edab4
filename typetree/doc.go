// Package typetree describes and decodes the field layouts of serialized
// objects.
//
// A layout is a tree of Node values. Layouts come from the type tree
// embedded in a container (ParseBlob), or for script-defined objects from
// an external type-definition Source. A Describer picks between the two
// and a Cache keeps one derived layout per Signature.
//
// Decode walks a layout over an object's bytes and returns an ordered
// value Tree. Decoding is all or nothing: any field failure aborts.
package typetree
