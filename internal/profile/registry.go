package profile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownPlatform is returned when no profile matches a URL or id.
var ErrUnknownPlatform = errors.New("unknown platform")

//go:embed profiles.yaml
var builtin []byte

type document struct {
	Profiles []*Profile `yaml:"profiles"`
}

// Registry holds compiled profiles in detection order.
type Registry struct {
	order []*Profile
	byID  map[string]*Profile
}

// Default returns a registry of the built-in profiles.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(builtin))
}

// Load parses a YAML profiles document into a new registry.
func Load(r io.Reader) (*Registry, error) {
	reg := &Registry{byID: map[string]*Profile{}}
	if err := reg.read(r); err != nil {
		return nil, err
	}
	return reg, nil
}

// MergeFile adds or replaces profiles from a YAML file. A replaced profile
// keeps its detection position; new ones are appended.
func (r *Registry) MergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := r.read(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (r *Registry) read(src io.Reader) error {
	var doc document
	dec := yaml.NewDecoder(src)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return fmt.Errorf("decode profiles: %w", err)
	}
	for _, p := range doc.Profiles {
		if p == nil {
			continue
		}
		if err := p.Compile(); err != nil {
			return err
		}
		if _, ok := r.byID[p.ID]; ok {
			for i, old := range r.order {
				if old.ID == p.ID {
					r.order[i] = p
				}
			}
		} else {
			r.order = append(r.order, p)
		}
		r.byID[p.ID] = p
	}
	return nil
}

// Detect returns the first profile whose URL patterns match rawURL.
func (r *Registry) Detect(rawURL string) (*Profile, error) {
	for _, p := range r.order {
		if p.Matches(rawURL) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, rawURL)
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (*Profile, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, id)
	}
	return p, nil
}

// List returns all profiles sorted by id.
func (r *Registry) List() []*Profile {
	out := make([]*Profile, len(r.order))
	copy(out, r.order)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
