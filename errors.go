package assetkit

import (
	"errors"

	"github.com/meigma/assetkit/bundle"
	"github.com/meigma/assetkit/curve"
	"github.com/meigma/assetkit/internal/asseterr"
)

// Errors re-exported from the shared error package.
var (
	// ErrFormat is returned when a container header or table is inconsistent.
	ErrFormat = asseterr.ErrFormat

	// ErrSchemaUnavailable is returned when no field layout can be derived for an object.
	ErrSchemaUnavailable = asseterr.ErrSchemaUnavailable

	// ErrUnsupportedFormat is returned for pixel formats without a decoder.
	ErrUnsupportedFormat = asseterr.ErrUnsupportedFormat

	// ErrDecode is returned when object data is inconsistent mid-decode.
	ErrDecode = asseterr.ErrDecode

	// ErrDanglingReference is returned when a referenced object is not loaded.
	ErrDanglingReference = asseterr.ErrDanglingReference

	// ErrSizeOverflow is returned when a size or offset exceeds supported limits.
	ErrSizeOverflow = asseterr.ErrSizeOverflow
)

// Errors re-exported from the codec packages.
var (
	// ErrUnsupportedCompression is returned for bundle blocks in a codec without a decoder.
	ErrUnsupportedCompression = bundle.ErrUnsupportedCompression

	// ErrInvalidTrack is returned when an animation track's keyframe times are not increasing.
	ErrInvalidTrack = curve.ErrInvalidTrack
)

var (
	// ErrNoContainers is returned by Load when no source produced a container.
	ErrNoContainers = errors.New("assetkit: no containers loaded")

	// ErrWrongKind is returned when a conversion is asked of an object of another kind.
	ErrWrongKind = errors.New("assetkit: wrong object kind")
)

// Typed errors carrying the failing container and object.
type (
	// FormatError describes a container that could not be parsed.
	FormatError = asseterr.FormatError
	// DecodeError describes a per-object decode failure.
	DecodeError = asseterr.DecodeError
	// SchemaError reports that no field layout exists for an object.
	SchemaError = asseterr.SchemaError
	// FormatUnsupportedError reports a pixel format without a decoder.
	FormatUnsupportedError = asseterr.FormatUnsupportedError
	// DanglingReferenceError reports a reference whose target is not loaded.
	DanglingReferenceError = asseterr.DanglingReferenceError
)
