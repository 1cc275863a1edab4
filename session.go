package assetkit

import (
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/assetkit/bundle"
	"github.com/meigma/assetkit/graph"
	"github.com/meigma/assetkit/internal/batch"
	"github.com/meigma/assetkit/internal/pathutil"
	"github.com/meigma/assetkit/typetree"
)

// PathPolicy decides which logical path an object keeps when more than one
// index entry names it.
type PathPolicy int

const (
	// PathLastWins keeps the path assigned last in container and table order.
	PathLastWins PathPolicy = iota
	// PathFirstWins keeps the first path assigned.
	PathFirstWins
)

func (p PathPolicy) String() string {
	switch p {
	case PathLastWins:
		return "last-wins"
	case PathFirstWins:
		return "first-wins"
	default:
		return fmt.Sprintf("PathPolicy(%d)", int(p))
	}
}

// Source is one input buffer. Name identifies it in errors and is how other
// containers reference it, so it should be the file's name.
type Source struct {
	Name string
	Data []byte
}

// LoadFailure records a source or bundle node that could not be loaded.
type LoadFailure struct {
	Name string
	Err  error
}

// LoadReport summarises one Load call.
type LoadReport struct {
	// Containers lists the names of the containers added, in session order.
	Containers []string
	// Resources lists the resource files registered for streamed data.
	Resources []string
	// Duplicates lists containers skipped because identical bytes were
	// already loaded.
	Duplicates []string
	// Failed lists the sources and nodes that were skipped.
	Failed []LoadFailure
}

// Session owns the containers of one load batch and the caches built over
// them.
//
// Load must not run concurrently with other methods. Between loads every
// method is safe for concurrent use.
type Session struct {
	logger          *slog.Logger
	workers         int
	versionOverride string
	typeSource      typetree.Source
	pathPolicy      PathPolicy
	maxBundleSize   int64

	describer *typetree.Describer
	processor *batch.Processor

	containers []*graph.Container
	byKey      map[string]int
	resources  map[string][]byte
	digests    map[digest.Digest]string
	// externals maps each container's external table to session indexes,
	// -1 where the external is not loaded.
	externals [][]int

	assetsMu sync.Mutex
	assets   []AssetItem
}

// NewSession creates an empty session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		byKey:     make(map[string]int),
		resources: make(map[string][]byte),
		digests:   make(map[digest.Digest]string),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.describer = typetree.NewDescriber(s.typeSource, typetree.WithLogger(s.logger))
	s.processor = batch.NewProcessor(batch.WithWorkers(s.workers))
	return s
}

func (s *Session) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.New(slog.DiscardHandler)
}

// candidate is a serialized file waiting to be parsed.
type candidate struct {
	name string
	data []byte
	// engine is the version recorded by the enclosing bundle, if any.
	engine string
}

// resource is a raw file holding streamed payload data.
type resource struct {
	name string
	data []byte
}

// unpacked is the outcome of one source's parse phase.
type unpacked struct {
	containers []*graph.Container
	resources  []resource
	failed     []LoadFailure
}

// Load adds sources to the session. Each source is unwrapped from gzip,
// unpacked when it is a bundle, and its serialized files are parsed in
// parallel. A source that fails is recorded in the report and skipped; Load
// itself fails only when the session ends up with no containers at all.
//
// After parsing, Load links external references and assigns logical paths
// over every container in the session.
func (s *Session) Load(sources ...Source) (*LoadReport, error) {
	results := make([]unpacked, len(sources))

	var g errgroup.Group
	if n := s.parseLimit(); n > 0 {
		g.SetLimit(n)
	}
	for i, src := range sources {
		g.Go(func() error {
			results[i] = s.unpack(src)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // failures are recorded per source

	report := &LoadReport{}
	for _, res := range results {
		report.Failed = append(report.Failed, res.failed...)
		for _, r := range res.resources {
			s.addResource(r, report)
		}
		for _, c := range res.containers {
			s.addContainer(c, report)
		}
	}
	for _, f := range report.Failed {
		s.log().Warn("skipped source", "name", f.Name, "error", f.Err)
	}

	s.resolve()
	s.assetsMu.Lock()
	s.assets = nil
	s.assetsMu.Unlock()

	s.log().Info("load complete",
		"containers", len(report.Containers),
		"resources", len(report.Resources),
		"duplicates", len(report.Duplicates),
		"failed", len(report.Failed))
	if len(s.containers) == 0 {
		return report, ErrNoContainers
	}
	return report, nil
}

// parseLimit returns the errgroup limit for the parse phase, or 0 for no
// limit.
func (s *Session) parseLimit() int {
	switch {
	case s.workers < 0:
		return 1
	case s.workers > 0:
		return s.workers
	default:
		return 0
	}
}

func (s *Session) bundleOptions() []bundle.Option {
	opts := []bundle.Option{bundle.WithLogger(s.logger)}
	if s.maxBundleSize > 0 {
		opts = append(opts, bundle.WithMaxSize(s.maxBundleSize))
	}
	return opts
}

// unpack sniffs one source and parses every serialized file inside it.
func (s *Session) unpack(src Source) unpacked {
	var out unpacked
	data, err := bundle.Unwrap(src.Data, s.bundleOptions()...)
	if err != nil {
		out.failed = append(out.failed, LoadFailure{Name: src.Name, Err: err})
		return out
	}

	var candidates []candidate
	switch {
	case bundle.IsArchive(data):
		a, err := bundle.Open(data, s.bundleOptions()...)
		if err != nil {
			out.failed = append(out.failed, LoadFailure{Name: src.Name, Err: err})
			return out
		}
		engine := a.Header().EngineRevision
		for _, n := range a.Nodes() {
			if bundle.IsSerialized(n) {
				candidates = append(candidates, candidate{name: n.Name(), data: n.Data(), engine: engine})
				continue
			}
			out.resources = append(out.resources, resource{name: n.Name(), data: n.Data()})
		}
	case pathutil.IsResource(src.Name):
		out.resources = append(out.resources, resource{name: src.Name, data: data})
		return out
	default:
		candidates = append(candidates, candidate{name: src.Name, data: data})
	}

	for _, cand := range candidates {
		c, err := graph.Parse(cand.name, cand.data, s.parseOptions(cand)...)
		if err != nil {
			out.failed = append(out.failed, LoadFailure{Name: cand.name, Err: err})
			continue
		}
		out.containers = append(out.containers, c)
	}
	return out
}

func (s *Session) parseOptions(cand candidate) []graph.Option {
	override := s.versionOverride
	if override == "" {
		override = cand.engine
	}
	return []graph.Option{
		graph.WithLogger(s.logger),
		graph.WithVersionOverride(override),
	}
}

func (s *Session) addResource(r resource, report *LoadReport) {
	key := pathutil.Key(r.name)
	if _, dup := s.resources[key]; dup {
		s.log().Warn("duplicate resource skipped", "name", r.name)
		report.Duplicates = append(report.Duplicates, r.name)
		return
	}
	s.resources[key] = r.data
	report.Resources = append(report.Resources, r.name)
}

func (s *Session) addContainer(c *graph.Container, report *LoadReport) {
	if prev, dup := s.digests[c.Digest()]; dup {
		s.log().Warn("duplicate container skipped", "name", c.Name(), "same_as", prev, "digest", c.Digest().String())
		report.Duplicates = append(report.Duplicates, c.Name())
		return
	}
	s.digests[c.Digest()] = c.Name()

	idx := len(s.containers)
	c.SetIndex(idx)
	s.containers = append(s.containers, c)
	key := pathutil.Key(c.Name())
	if _, taken := s.byKey[key]; taken {
		s.log().Warn("container name already loaded; references resolve to the first", "name", c.Name())
	} else {
		s.byKey[key] = idx
	}
	report.Containers = append(report.Containers, c.Name())
}

// resolve links external tables and assigns logical paths. It runs single
// threaded over the whole session after every container has parsed.
func (s *Session) resolve() {
	s.externals = make([][]int, len(s.containers))
	for i, c := range s.containers {
		ext := make([]int, len(c.Externals()))
		for j, e := range c.Externals() {
			idx, ok := s.byKey[pathutil.Key(e.PathName)]
			if !ok {
				idx = -1
				s.log().Debug("external not loaded", "container", c.Name(), "external", e.PathName)
			}
			ext[j] = idx
		}
		s.externals[i] = ext
	}

	var assigned int
	for _, c := range s.containers {
		for _, obj := range c.Objects() {
			if obj.ClassID != graph.ClassAssetBundle && obj.ClassID != graph.ClassResourceManager {
				continue
			}
			p, err := obj.Decode()
			if err != nil {
				s.log().Debug("index object skipped", "container", c.Name(), "path_id", obj.PathID, "error", err)
				continue
			}
			switch idx := p.(type) {
			case *graph.AssetBundle:
				for _, e := range idx.Container {
					for _, ref := range idx.Preload(e.Info) {
						if s.assignPath(c, ref, e.Path) {
							assigned++
						}
					}
				}
			case *graph.ResourceManager:
				for _, e := range idx.Container {
					if s.assignPath(c, e.Object, e.Path) {
						assigned++
					}
				}
			}
		}
	}
	s.log().Debug("resolution pass complete", "containers", len(s.containers), "paths", assigned)
}

func (s *Session) assignPath(from *graph.Container, ref graph.PPtr, path string) bool {
	obj, ok := s.Resolve(from, ref)
	if !ok {
		return false
	}
	if s.pathPolicy == PathFirstWins {
		if _, has := obj.Path(); has {
			return false
		}
	}
	obj.Container().SetPath(obj.PathID, path)
	return true
}

// Containers returns the session's containers in load order. The slice
// must not be modified.
func (s *Session) Containers() []*graph.Container { return s.containers }

// Objects returns an iterator over every object, in container order then
// table order.
func (s *Session) Objects() iter.Seq[*graph.Object] {
	return func(yield func(*graph.Object) bool) {
		for _, c := range s.containers {
			for _, obj := range c.Objects() {
				if !yield(obj) {
					return
				}
			}
		}
	}
}

// Object returns the object with the given session identity.
func (s *Session) Object(id graph.ObjectID) (*graph.Object, bool) {
	if id.Container < 0 || id.Container >= len(s.containers) {
		return nil, false
	}
	return s.containers[id.Container].Object(id.PathID)
}

// Resolve returns the object ref points to, interpreting ref relative to
// from. It reports false for null references, references to containers
// that are not loaded, and missing path ids.
func (s *Session) Resolve(from *graph.Container, ref graph.PPtr) (*graph.Object, bool) {
	id, ok := s.ResolveID(from, ref)
	if !ok {
		return nil, false
	}
	return s.Object(id)
}

// ResolveID maps ref, relative to from, to a session identity without
// checking that the target object exists.
func (s *Session) ResolveID(from *graph.Container, ref graph.PPtr) (graph.ObjectID, bool) {
	if from == nil || ref.IsNull() {
		return graph.ObjectID{}, false
	}
	idx := from.Index()
	if idx < 0 || idx >= len(s.containers) || s.containers[idx] != from {
		return graph.ObjectID{}, false
	}
	if ref.FileID == 0 {
		return graph.ObjectID{Container: idx, PathID: ref.PathID}, true
	}
	ext := s.externals[idx]
	n := int(ref.FileID) - 1
	if n < 0 || n >= len(ext) || ext[n] < 0 {
		return graph.ObjectID{}, false
	}
	return graph.ObjectID{Container: ext[n], PathID: ref.PathID}, true
}

// LogicalPath returns the path the bundle or resource indexes assign to
// obj.
func (s *Session) LogicalPath(obj *graph.Object) (string, bool) {
	return obj.Path()
}

// resourceData returns a registered resource file by name.
func (s *Session) resourceData(name string) ([]byte, bool) {
	data, ok := s.resources[pathutil.Key(name)]
	return data, ok
}
