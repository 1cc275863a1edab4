package bundle

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/meigma/assetkit/internal/asseterr"
)

var gzipMagic = []byte{0x1f, 0x8b}

// IsGzip reports whether buf starts with a gzip member header.
func IsGzip(buf []byte) bool { return bytes.HasPrefix(buf, gzipMagic) }

// readerPool reuses gzip readers across Unwrap calls.
var readerPool sync.Pool

func getReader(r io.Reader) (*gzip.Reader, func(), error) {
	if zr, ok := readerPool.Get().(*gzip.Reader); ok {
		if err := zr.Reset(r); err != nil {
			readerPool.Put(zr)
			return nil, nil, err
		}
		return zr, func() { readerPool.Put(zr) }, nil
	}
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return zr, func() { readerPool.Put(zr) }, nil
}

// Unwrap removes a gzip wrapper from buf. Buffers without one are returned
// unchanged. The expanded size is bounded by WithMaxSize.
func Unwrap(buf []byte, opts ...Option) ([]byte, error) {
	if !IsGzip(buf) {
		return buf, nil
	}
	cfg := newConfig(opts)

	zr, release, err := getReader(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: bundle: gzip header: %w", asseterr.ErrFormat, err)
	}
	defer release()

	out, err := io.ReadAll(io.LimitReader(zr, cfg.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: bundle: gzip: %w", asseterr.ErrFormat, err)
	}
	if int64(len(out)) > cfg.maxSize {
		return nil, fmt.Errorf("%w: bundle: gzip stream exceeds %d bytes", asseterr.ErrSizeOverflow, cfg.maxSize)
	}
	cfg.logger.Debug("gzip wrapper removed", "compressed", len(buf), "size", len(out))
	return out, nil
}
