// Package storage reads and writes table snapshots at the locations named
// by request documents. Locations are URIs; the scheme selects a backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
)

// Store moves one snapshot per call. Implementations do not retry;
// retry policy belongs to the supervisor.
type Store interface {
	Read(ctx context.Context, location domain.Location) (*frame.Frame, error)
	Write(ctx context.Context, location domain.Location, f *frame.Frame) error
}

var ErrNullLocation = errors.New("storage location has no uri")

// Resolver dispatches on the location URI scheme. Backends are registered
// at process start; an unknown scheme is a configuration error.
type Resolver struct {
	backends map[string]Store
}

func NewResolver() *Resolver {
	return &Resolver{backends: make(map[string]Store)}
}

func (r *Resolver) Register(scheme string, store Store) {
	r.backends[scheme] = store
}

func (r *Resolver) backend(location domain.Location) (Store, *url.URL, error) {
	if location.IsNull() {
		return nil, nil, ErrNullLocation
	}
	resolved := location.Resolve()
	parsed, err := url.Parse(resolved)
	if err != nil {
		return nil, nil, fmt.Errorf("parse location %q: %w", resolved, err)
	}
	store, ok := r.backends[parsed.Scheme]
	if !ok {
		return nil, nil, fmt.Errorf("no storage backend for scheme %q (location %q)", parsed.Scheme, resolved)
	}
	return store, parsed, nil
}

func (r *Resolver) Read(ctx context.Context, location domain.Location) (*frame.Frame, error) {
	store, _, err := r.backend(location)
	if err != nil {
		return nil, err
	}
	return store.Read(ctx, location)
}

func (r *Resolver) Write(ctx context.Context, location domain.Location, f *frame.Frame) error {
	store, _, err := r.backend(location)
	if err != nil {
		return err
	}
	return store.Write(ctx, location, f)
}
