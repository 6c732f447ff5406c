package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/DeafMist/competitor-radar/internal/dataset"
)

// Files reads datasets from local CSV files keyed by dataset name.
type Files map[string]string

// Fetch implements Source. An empty file yields an empty table.
func (f Files) Fetch(_ context.Context, name string) (*dataset.Table, error) {
	path, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	tbl, err := dataset.DecodeCSV(file)
	if errors.Is(err, dataset.ErrEmpty) {
		return &dataset.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return tbl, nil
}
