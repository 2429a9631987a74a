package loader

import (
	"errors"
	"fmt"
)

// Kind partitions load failures by how the UI should react.
type Kind int

const (
	// KindAssetNotFound: no scene is registered or the URL 404s. Surfaced
	// as a non-fatal "3D preview unavailable" state.
	KindAssetNotFound Kind = iota
	// KindFetchFailure: network or HTTP error on the scene or a sibling
	// file. Retried once through the candidate fallbacks before surfacing.
	KindFetchFailure
	// KindParseFailure: malformed scene document. Never retried.
	KindParseFailure
)

func (k Kind) String() string {
	switch k {
	case KindAssetNotFound:
		return "asset-not-found"
	case KindFetchFailure:
		return "fetch-failure"
	case KindParseFailure:
		return "parse-failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Kind sentinels for errors.Is checks.
var (
	ErrAssetNotFound = errors.New("3D model unavailable")
	ErrFetchFailure  = errors.New("scene fetch failed")
	ErrParseFailure  = errors.New("scene document malformed")

	// ErrSuperseded marks a load whose result arrived after cancellation
	// or after a newer load started; callers discard it silently.
	ErrSuperseded = errors.New("load superseded")
)

// LoadError is a classified load failure. None of these are fatal to the
// application: the 2D design surface stays fully interactive.
type LoadError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is lets errors.Is match the kind sentinels.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrAssetNotFound:
		return e.Kind == KindAssetNotFound
	case ErrFetchFailure:
		return e.Kind == KindFetchFailure
	case ErrParseFailure:
		return e.Kind == KindParseFailure
	}
	return false
}
