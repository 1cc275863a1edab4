package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"

	"github.com/meigma/assetkit"
	"github.com/meigma/assetkit/catalog"
	"github.com/meigma/assetkit/graph"
	"github.com/meigma/assetkit/raster"
	"github.com/meigma/assetkit/typetree"
)

type config struct {
	mode       string
	types      string
	version    string
	workers    int
	firstWins  bool
	flip       bool
	mask       string
	verbose    bool
	fgProfile  string
	duration   time.Duration
	iterations int
	pprofAddr  string
	cpuProfile string
	memProfile string
	traceFile  string
	inputs     []string
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkCount int
	sinkBytes []byte
)

//nolint:gocognit,gocyclo // main function complexity is acceptable for CLI tool
func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	sources, total, err := readSources(cfg.inputs)
	if err != nil {
		log.Fatal(err)
	}
	if len(sources) == 0 {
		log.Fatal("no input files")
	}

	opts, err := sessionOptions(cfg)
	if err != nil {
		log.Fatal(err)
	}

	var stopFG func() error
	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		stopFG = fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr) //nolint:gocritic // exitAfterDefer is intentional - profile stop is best-effort
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, opts, sources)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s inputs=%d input_bytes=%d ops=%d items=%d failed=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		len(sources),
		total,
		stats.ops,
		stats.items,
		stats.failed,
		stats.elapsed,
		float64(total)*float64(stats.ops)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops     int
	items   int
	failed  int
	elapsed time.Duration
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func sessionOptions(cfg config) ([]assetkit.Option, error) {
	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	opts := []assetkit.Option{
		assetkit.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))),
		assetkit.WithWorkers(cfg.workers),
		assetkit.WithVersionOverride(cfg.version),
	}
	if cfg.firstWins {
		opts = append(opts, assetkit.WithPathPolicy(assetkit.PathFirstWins))
	}
	if cfg.types != "" {
		src := typetree.NewFileSource()
		if err := src.Load(cfg.types); err != nil {
			return nil, err
		}
		opts = append(opts, assetkit.WithTypeSource(src))
	}
	return opts, nil
}

func parseMask(name string) (raster.MaskMode, error) {
	for _, m := range []raster.MaskMode{raster.MaskOff, raster.MaskOn, raster.MaskOnly, raster.MaskExport} {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mask mode: %s", name)
}

// load builds a fresh session over sources. Every mode but load reuses one
// session across iterations so the timing covers only the conversion.
func load(opts []assetkit.Option, sources []assetkit.Source) (*assetkit.Session, *assetkit.LoadReport, error) {
	s := assetkit.NewSession(opts...)
	report, err := s.Load(sources...)
	if err != nil {
		return nil, nil, err
	}
	return s, report, nil
}

//nolint:gocognit,gocyclo,gocritic // complexity is inherent to multi-mode profiler dispatch; hugeParam acceptable for profiler
func runProfile(cfg config, opts []assetkit.Option, sources []assetkit.Source) (profileStats, error) {
	var stats profileStats

	var s *assetkit.Session
	if cfg.mode != "load" {
		var err error
		if s, _, err = load(opts, sources); err != nil {
			return profileStats{}, err
		}
	}

	mask, err := parseMask(cfg.mask)
	if err != nil {
		return profileStats{}, err
	}

	start := time.Now()
	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return stats.ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	convert := func(kind int32, fn func(*graph.Object) error) {
		var objs []*graph.Object
		for _, it := range s.Assets(assetkit.OfKind(kind)) {
			objs = append(objs, it.Object)
		}
		failures := s.Process(objs, fn)
		stats.items += len(objs)
		stats.failed += len(failures)
	}

	switch cfg.mode {
	case "load":
		for shouldContinue() {
			sess, report, err := load(opts, sources)
			if err != nil {
				return profileStats{}, err
			}
			var n int
			for range sess.Objects() {
				n++
			}
			sinkCount = n
			stats.items += n
			stats.failed += len(report.Failed)
			stats.ops++
		}

	case "assets":
		for shouldContinue() {
			items := s.Assets()
			sinkCount = len(items)
			stats.items += len(items)
			stats.ops++
		}

	case "textures":
		for shouldContinue() {
			convert(graph.ClassTexture2D, func(obj *graph.Object) error {
				img, err := s.Texture(obj, cfg.flip)
				if err == nil {
					sinkBytes = img.Pix
				}
				return err
			})
			stats.ops++
		}

	case "sprites":
		for shouldContinue() {
			convert(graph.ClassSprite, func(obj *graph.Object) error {
				img, err := s.SpriteImage(obj, mask)
				if err == nil {
					sinkBytes = img.Pix
				}
				return err
			})
			stats.ops++
		}

	case "motions":
		for shouldContinue() {
			convert(graph.ClassAnimationClip, func(obj *graph.Object) error {
				_, err := s.Motion(obj)
				return err
			})
			stats.ops++
		}

	case "dump":
		for shouldContinue() {
			convert(graph.ClassMonoBehaviour, func(obj *graph.Object) error {
				tree, err := s.Dump(obj)
				if err == nil {
					sinkCount = tree.Len()
				}
				return err
			})
			stats.ops++
		}

	case "catalog":
		for shouldContinue() {
			data := s.Catalog()
			c, err := catalog.Load(data)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = data
			stats.items += c.Len()
			stats.ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	stats.elapsed = time.Since(start)
	return stats, nil
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.mode, "mode", "load", "mode: load, assets, textures, sprites, motions, dump, catalog")
	flag.StringVar(&cfg.types, "types", "", "type-definition document for script classes")
	flag.StringVar(&cfg.version, "unity-version", "", "engine version for files with a stripped version")
	flag.IntVar(&cfg.workers, "workers", 0, "workers: <0 serial, 0 auto, >0 fixed")
	flag.BoolVar(&cfg.firstWins, "first-path-wins", false, "keep the first logical path assigned to an object")
	flag.BoolVar(&cfg.flip, "flip", true, "flip textures upright in textures mode")
	flag.StringVar(&cfg.mask, "mask", raster.MaskOn.String(), "sprite alpha mask: off, on, mask-only, export")
	flag.BoolVar(&cfg.verbose, "v", false, "log per-object events")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] file-or-dir...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	cfg.inputs = flag.Args()
	return cfg
}

// readSources reads every regular file named by inputs, walking
// directories.
func readSources(inputs []string) ([]assetkit.Source, int64, error) {
	var sources []assetkit.Source
	var total int64
	add := func(path string) error {
		data, err := os.ReadFile(path) //nolint:gosec // paths come from the command line
		if err != nil {
			return err
		}
		sources = append(sources, assetkit.Source{Name: filepath.Base(path), Data: data})
		total += int64(len(data))
		return nil
	}
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, 0, err
		}
		if !info.IsDir() {
			if err := add(in); err != nil {
				return nil, 0, err
			}
			continue
		}
		err = filepath.WalkDir(in, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				return add(path)
			}
			return nil
		})
		if err != nil {
			return nil, 0, err
		}
	}
	if total < 0 {
		return nil, 0, errors.New("input size overflow")
	}
	return sources, total, nil
}
