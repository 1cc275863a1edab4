// Package assetkit reconstructs typed object graphs from serialized game
// asset containers and converts selected objects into application
// artifacts.
//
// A [Session] owns every container of one load batch. [Session.Load] parses
// containers in parallel, unpacking compressed bundles and web-build
// wrappers on the way, then runs a single resolution pass that links each
// container's external references and assigns logical paths from the
// bundle and resource indexes. After Load returns, the session is read-only
// and safe for concurrent use.
//
// # Quick Start
//
//	s := assetkit.NewSession(assetkit.WithLogger(logger))
//	report, err := s.Load(assetkit.Source{Name: "data.unity3d", Data: buf})
//	if err != nil {
//	    return err
//	}
//	for _, item := range s.Assets(assetkit.OfKind(graph.ClassTexture2D)) {
//	    img, err := s.Texture(item.Object, true)
//	    ...
//	}
//
// # Conversions
//
// Texture decodes a texture's pixel data, SpriteImage cuts a sprite out of
// its texture or atlas, Motion converts animation clips into motion
// documents, and Schema and Dump describe and decode objects against their
// field layout. Conversions are per object; a failure affects only that
// object. [Session.Process] runs a conversion over many objects and
// collects failures without stopping siblings.
//
// # Errors
//
// Errors wrap the sentinels exported here. Typed errors such as
// [*FormatError] and [*DecodeError] carry the container and object that
// failed.
package assetkit
