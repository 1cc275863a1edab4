package assetkit

import (
	"log/slog"

	"github.com/meigma/assetkit/typetree"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for load, resolution and conversion events.
// Per-object events log at debug, skipped containers at warn.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithWorkers sets the number of workers for parallel parsing and Process.
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count.
func WithWorkers(n int) Option {
	return func(s *Session) {
		s.workers = n
	}
}

// WithVersionOverride supplies the engine version for containers whose
// builds stripped it, such as "2019.4.31f1".
func WithVersionOverride(v string) Option {
	return func(s *Session) {
		s.versionOverride = v
	}
}

// WithTypeSource sets the external type-definition source used to describe
// script classes without an embedded layout.
func WithTypeSource(src typetree.Source) Option {
	return func(s *Session) {
		s.typeSource = src
	}
}

// WithPathPolicy selects which logical path an object keeps when several
// index entries name it. The default is PathLastWins.
func WithPathPolicy(p PathPolicy) Option {
	return func(s *Session) {
		s.pathPolicy = p
	}
}

// WithMaxBundleSize limits the unpacked size of one bundle or gzip wrapper.
// Zero keeps the default of 4 GiB.
func WithMaxBundleSize(n int64) Option {
	return func(s *Session) {
		s.maxBundleSize = n
	}
}
