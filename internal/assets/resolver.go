// Package assets resolves vehicle model identifiers to scene-file URLs and
// fetches large binary assets through a disk-backed cache.
package assets

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrModelNotFound is returned when no scene is registered for a model id.
var ErrModelNotFound = errors.New("no 3D asset registered for model")

// ModelDescriptor identifies one vehicle model and where its assets live.
type ModelDescriptor struct {
	ID             string `yaml:"id"`
	DisplayName    string `yaml:"display_name"`
	SceneURL       string `yaml:"scene_url"`
	ReferenceImage string `yaml:"reference_image,omitempty"`
}

// manifest is the on-disk model registry format.
type manifest struct {
	Models []ModelDescriptor `yaml:"models"`
}

// Resolver maps model identifiers to their asset locations.
type Resolver struct {
	mu     sync.RWMutex
	models map[string]ModelDescriptor
}

// NewResolver creates a resolver over a fixed descriptor set.
func NewResolver(models []ModelDescriptor) *Resolver {
	r := &Resolver{models: make(map[string]ModelDescriptor, len(models))}
	for _, m := range models {
		r.models[m.ID] = m
	}
	return r
}

// LoadManifest reads a YAML model manifest from disk.
func LoadManifest(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	for i, desc := range m.Models {
		if desc.ID == "" || desc.SceneURL == "" {
			return nil, fmt.Errorf("manifest %s: entry %d missing id or scene_url", path, i)
		}
	}
	return NewResolver(m.Models), nil
}

// Resolve returns the descriptor for a model id, or ErrModelNotFound.
func (r *Resolver) Resolve(id string) (ModelDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.models[id]
	if !ok {
		return ModelDescriptor{}, fmt.Errorf("%w: %q", ErrModelNotFound, id)
	}
	return desc, nil
}

// Register adds or replaces a descriptor at runtime.
func (r *Resolver) Register(desc ModelDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[desc.ID] = desc
}

// IDs returns all registered model ids.
func (r *Resolver) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	return ids
}
