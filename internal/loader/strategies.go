package loader

import (
	"context"
	"encoding/json"
	"fmt"
	neturl "net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/engine/scenegraph"
	"github.com/wrapstudio/wrapview/pkg/formats"
)

// strategy is one load path. Strategies are tried in order; each either
// produces a scene graph or fails and hands over to the next.
type strategy interface {
	strategyName() string
	applies(l *Loader, url string) bool
	load(ctx context.Context, l *Loader, url string, report func(int)) (*scenegraph.SceneGraph, error)
}

// directStrategy is the primary path: fetch the scene file and parse it,
// with sibling binaries resolved against the scene's own base directory.
type directStrategy struct{}

func (directStrategy) strategyName() string { return "direct" }

// The direct fetch path cannot dereference virtual dev-server paths;
// those go straight to the rebased strategies.
func (directStrategy) applies(l *Loader, url string) bool {
	return l.opts.VirtualPrefix == "" || !strings.HasPrefix(url, l.opts.VirtualPrefix)
}

func (directStrategy) load(ctx context.Context, l *Loader, url string, report func(int)) (*scenegraph.SceneGraph, error) {
	return fetchAndParse(ctx, l, url, url, report)
}

// rebasedStrategy is the manual fallback for virtual-prefix URLs: fetch
// the scene file's raw body from the rebased URL, parse the JSON
// document, then hand document plus resolved base directory to the
// buffer source so sibling resolution still succeeds. The stripped
// variant retries with the virtual prefix removed.
type rebasedStrategy struct {
	name        string
	stripPrefix bool
}

func (s *rebasedStrategy) strategyName() string { return s.name }

func (s *rebasedStrategy) applies(l *Loader, url string) bool {
	return l.opts.VirtualPrefix != "" &&
		l.opts.RebaseURL != "" &&
		strings.HasPrefix(url, l.opts.VirtualPrefix)
}

func (s *rebasedStrategy) load(ctx context.Context, l *Loader, url string, report func(int)) (*scenegraph.SceneGraph, error) {
	path := url
	if s.stripPrefix {
		path = strings.TrimPrefix(path, l.opts.VirtualPrefix)
	}
	rebased := strings.TrimSuffix(l.opts.RebaseURL, "/") + path

	body, err := l.fetcher.FetchProgress(ctx, rebased, l.opts.AssetVersion, fetchProgress(report))
	if err != nil {
		return nil, classifyFetchError(rebased, err)
	}

	// Manual parse of the raw text body; GLB never sits behind a virtual
	// prefix in the environments this fallback exists for.
	if !json.Valid(body) {
		return nil, &LoadError{Kind: KindParseFailure, URL: rebased, Err: fmt.Errorf("scene body is not a JSON document")}
	}
	doc, err := formats.ParseGLTF(body)
	if err != nil {
		return nil, &LoadError{Kind: KindParseFailure, URL: rebased, Err: err}
	}

	return buildGraph(ctx, l, doc, nil, baseDir(rebased))
}

// fetchAndParse implements the shared fetch-sniff-parse-build sequence.
// fetchURL is where bytes come from; baseURL anchors sibling resolution.
func fetchAndParse(ctx context.Context, l *Loader, fetchURL, baseURL string, report func(int)) (*scenegraph.SceneGraph, error) {
	data, err := l.fetcher.FetchProgress(ctx, fetchURL, l.opts.AssetVersion, fetchProgress(report))
	if err != nil {
		return nil, classifyFetchError(fetchURL, err)
	}

	var doc *formats.GLTF
	var bin []byte
	if formats.IsGLB(data) {
		doc, bin, err = formats.ParseGLB(data)
	} else {
		doc, err = formats.ParseGLTF(data)
	}
	if err != nil {
		return nil, &LoadError{Kind: KindParseFailure, URL: fetchURL, Err: err}
	}

	return buildGraph(ctx, l, doc, bin, baseDir(baseURL))
}

// buildGraph assembles the scene graph, resolving sibling buffers against
// base through the cached fetcher.
func buildGraph(ctx context.Context, l *Loader, doc *formats.GLTF, bin []byte, base string) (*scenegraph.SceneGraph, error) {
	resolve := func(uri string) ([]byte, error) {
		resolved, err := resolveSibling(base, uri)
		if err != nil {
			return nil, err
		}
		return l.fetcher.FetchWithCache(ctx, resolved, l.opts.AssetVersion)
	}
	src := formats.NewBufferSource(doc, bin, resolve)

	graph, err := scenegraph.Build(doc, src)
	if err != nil {
		return nil, &LoadError{Kind: KindParseFailure, URL: base, Err: err}
	}

	attachImages(l, graph, doc, src, resolve)
	return graph, nil
}

// attachImages pulls the encoded payloads of every base-color image the
// materials reference. An unresolvable image is not fatal; its material
// just renders with the color factor.
func attachImages(l *Loader, graph *scenegraph.SceneGraph, doc *formats.GLTF, src formats.BufferSource, resolve formats.ResolveFunc) {
	if len(doc.Images) == 0 {
		return
	}
	graph.Images = make([][]byte, len(doc.Images))
	for _, mat := range graph.Materials {
		idx := mat.BaseColorImage
		if idx < 0 || idx >= len(graph.Images) || graph.Images[idx] != nil {
			continue
		}
		data, err := formats.ImageBytes(doc, src, idx, resolve)
		if err != nil {
			l.log.Warn("base color image unavailable",
				zap.String("material", mat.Name),
				zap.Int("image", idx),
				zap.Error(err))
			continue
		}
		graph.Images[idx] = data
	}
}

// fetchProgress adapts byte-level fetch progress into the reserved 0..85
// percentage sub-range.
func fetchProgress(report func(int)) func(done, total int64) {
	return func(done, total int64) {
		if total <= 0 {
			return // unknown length; the completion jump covers it
		}
		report(int(done * fetchProgressCeiling / total))
	}
}

// baseDir returns the URL up to and including the last slash.
func baseDir(url string) string {
	i := strings.LastIndex(url, "/")
	if i < 0 {
		return ""
	}
	return url[:i+1]
}

// resolveSibling resolves a relative payload URI against the scene base.
func resolveSibling(base, uri string) (string, error) {
	baseURL, err := neturl.Parse(base)
	if err != nil {
		return "", fmt.Errorf("bad base url %q: %w", base, err)
	}
	ref, err := neturl.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("bad sibling uri %q: %w", uri, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
