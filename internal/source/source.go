// Package source fetches the dashboard datasets as decoded tables.
package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/competitor-radar/internal/dataset"
)

// Dataset names.
const (
	News     = "news"
	Snapshot = "snapshot"
	History  = "history"
)

var (
	// ErrUnknownDataset is returned for a dataset name no source serves.
	ErrUnknownDataset = errors.New("unknown dataset")
	// ErrNotConfigured is returned when a dataset has no location configured.
	ErrNotConfigured = errors.New("dataset not configured")
)

// Source fetches a named dataset.
type Source interface {
	Fetch(ctx context.Context, name string) (*dataset.Table, error)
}

// Mux routes dataset names to the sources that serve them.
type Mux struct {
	routes map[string]Source
}

// NewMux returns an empty Mux.
func NewMux() *Mux {
	return &Mux{routes: make(map[string]Source)}
}

// Handle routes name to src and returns the Mux for chaining.
func (m *Mux) Handle(name string, src Source) *Mux {
	m.routes[name] = src
	return m
}

// Fetch implements Source.
func (m *Mux) Fetch(ctx context.Context, name string) (*dataset.Table, error) {
	src, ok := m.routes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return src.Fetch(ctx, name)
}

// Datasets holds every dataset fetched by LoadAll. A dataset that failed to
// load is nil and its error is kept in Errors.
type Datasets struct {
	News     *dataset.Table
	Snapshot *dataset.Table
	History  *dataset.Table
	Errors   map[string]error
}

// Err joins the per-dataset errors, or returns nil when every dataset loaded.
func (d Datasets) Err() error {
	var errs []error
	for _, name := range []string{News, Snapshot, History} {
		if err, ok := d.Errors[name]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadAll fetches the three datasets concurrently. One failing dataset does
// not cancel the others.
func LoadAll(ctx context.Context, src Source) Datasets {
	out := Datasets{Errors: make(map[string]error)}
	targets := map[string]**dataset.Table{
		News:     &out.News,
		Snapshot: &out.Snapshot,
		History:  &out.History,
	}

	var mu sync.Mutex
	var g errgroup.Group
	for name, dst := range targets {
		g.Go(func() error {
			tbl, err := src.Fetch(ctx, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Errors[name] = fmt.Errorf("%s: %w", name, err)
				return nil
			}
			*dst = tbl
			return nil
		})
	}
	_ = g.Wait()

	return out
}
