package storage

import (
	"context"
	"errors"

	"github.com/linkysync/linkysync/pkg/types"
)

// ErrInvalidDataset is returned when the persisted document can't be decoded.
var ErrInvalidDataset = errors.New("invalid dataset")

// Database persists the consumption dataset between runs.
type Database interface {
	// LoadDataset returns the persisted dataset. A dataset that was never
	// saved is returned empty, with every series nil.
	LoadDataset(ctx context.Context) (types.Dataset, error)
	// SaveDataset replaces the persisted dataset.
	SaveDataset(ctx context.Context, ds types.Dataset) error

	// Lifecycle
	Close() error
}
