// Package loader fetches and parses vehicle scene files into scene
// graphs. Loading is strategy-driven: an ordered list of load paths is
// tried in sequence, which keeps the workarounds for awkward hosting
// environments (virtual dev-server paths) out of the main path.
package loader

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/assets"
	"github.com/wrapstudio/wrapview/internal/engine/scenegraph"
	"github.com/wrapstudio/wrapview/internal/logger"
)

// ProgressFunc receives integer load progress 0-100, monotonic within one
// load.
type ProgressFunc func(percent int)

// fetchProgressCeiling reserves 0..85 for the scene-file fetch; parsing
// and graph building jump straight to 100.
const fetchProgressCeiling = 85

// Options tunes the loader for a hosting environment.
type Options struct {
	// VirtualPrefix is a development-only path prefix (a dev server's
	// filesystem mount) that the direct fetch path cannot dereference.
	// URLs under it go through the rebased fallback strategies.
	VirtualPrefix string

	// RebaseURL is the origin the fallback strategies resolve
	// virtual-prefix paths against.
	RebaseURL string

	// AssetVersion keys the binary cache; bumping it invalidates cached
	// scene files.
	AssetVersion string
}

// DefaultOptions returns the options for the standard hosting setup.
func DefaultOptions() Options {
	return Options{
		VirtualPrefix: "/@fs",
	}
}

// Loader loads scene files through an ordered strategy list.
type Loader struct {
	fetcher    *assets.Fetcher
	opts       Options
	strategies []strategy
	generation atomic.Uint64
	log        *zap.Logger
}

// New creates a loader over fetcher.
func New(fetcher *assets.Fetcher, opts Options) *Loader {
	l := &Loader{
		fetcher: fetcher,
		opts:    opts,
		log:     logger.Named("loader"),
	}
	l.strategies = []strategy{
		&directStrategy{},
		&rebasedStrategy{name: "rebased", stripPrefix: false},
		&rebasedStrategy{name: "rebased-stripped", stripPrefix: true},
	}
	return l
}

// Cancel invalidates every in-flight load: their progress callbacks stop
// firing and their results are discarded. Used on viewport teardown.
func (l *Loader) Cancel() {
	l.generation.Add(1)
}

// Load fetches and parses the scene at url. Progress (may be nil) sees
// monotonically increasing percentages, and stops after Cancel.
func (l *Loader) Load(ctx context.Context, url string, progress ProgressFunc) (*scenegraph.SceneGraph, error) {
	gen := l.generation.Add(1)
	report := l.progressReporter(gen, progress)
	report(0)

	var lastErr *LoadError
	for _, s := range l.strategies {
		if !s.applies(l, url) {
			continue
		}

		graph, err := s.load(ctx, l, url, report)
		if err == nil {
			if l.generation.Load() != gen {
				return nil, ErrSuperseded
			}
			report(100)
			l.log.Info("scene loaded",
				zap.String("url", url),
				zap.String("strategy", s.strategyName()),
				zap.Int("meshes", len(graph.Meshes)),
				zap.Int("triangles", graph.TriangleCount()))
			return graph, nil
		}

		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			loadErr = &LoadError{Kind: KindFetchFailure, URL: url, Err: err}
		}
		l.log.Warn("load strategy failed",
			zap.String("strategy", s.strategyName()),
			zap.String("url", url),
			zap.Error(err))
		lastErr = loadErr

		// A malformed document stays malformed on every path.
		if loadErr.Kind == KindParseFailure {
			break
		}
	}

	if l.generation.Load() != gen {
		return nil, ErrSuperseded
	}
	if lastErr == nil {
		lastErr = &LoadError{Kind: KindAssetNotFound, URL: url, Err: errors.New("no load strategy applies")}
	}
	return nil, lastErr
}

// LoadModel resolves a model id through the resolver and loads its scene.
func (l *Loader) LoadModel(ctx context.Context, resolver *assets.Resolver, modelID string, progress ProgressFunc) (*scenegraph.SceneGraph, error) {
	desc, err := resolver.Resolve(modelID)
	if err != nil {
		return nil, &LoadError{Kind: KindAssetNotFound, URL: modelID, Err: err}
	}
	return l.Load(ctx, desc.SceneURL, progress)
}

// progressReporter clamps reported progress to 0-100, enforces
// monotonicity, and drops callbacks from superseded loads.
func (l *Loader) progressReporter(gen uint64, progress ProgressFunc) func(int) {
	var last int = -1
	return func(percent int) {
		if progress == nil {
			return
		}
		if l.generation.Load() != gen {
			return
		}
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		if percent <= last {
			return
		}
		last = percent
		progress(percent)
	}
}

// classifyFetchError maps transport errors onto the load taxonomy.
func classifyFetchError(url string, err error) *LoadError {
	var httpErr *assets.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return &LoadError{Kind: KindAssetNotFound, URL: url, Err: err}
	}
	return &LoadError{Kind: KindFetchFailure, URL: url, Err: err}
}
