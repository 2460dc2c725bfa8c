package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

func TestFileProvider(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := NewFileProvider(filepath.Join(dir, "linky-data.json"))
	defer f.Close()

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, f.Validate())
		assert.Error(t, NewFileProvider("").Validate())
	})

	t.Run("Missing", func(t *testing.T) {
		ds, err := f.LoadDataset(ctx)
		require.NoError(t, err)
		assert.Nil(t, ds.Hours)
		assert.Nil(t, ds.Days)
		assert.Nil(t, ds.Months)
		assert.Nil(t, ds.Years)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		ds := types.Dataset{
			Days: types.Series{
				"2020-01-02": types.NewValue(3.2),
				"2020-01-01": types.Null(),
			},
			Years:   types.Series{"2019": types.NewUnitValue(3600)},
			Updated: "15/03/2020 06:30:00",
		}
		require.NoError(t, f.SaveDataset(ctx, ds))

		b, err := os.ReadFile(f.Path())
		require.NoError(t, err)
		expected := `{
  "hours": null,
  "days": {
    "2020-01-01": null,
    "2020-01-02": 3.2
  },
  "months": null,
  "years": {
    "2019": "3600kWh"
  },
  "update": "15/03/2020 06:30:00"
}
`
		assert.Equal(t, expected, string(b))

		got, err := f.LoadDataset(ctx)
		require.NoError(t, err)
		assert.Equal(t, ds.Days, got.Days)
		assert.Equal(t, ds.Years, got.Years)
		assert.Nil(t, got.Hours)
		assert.Equal(t, ds.Updated, got.Updated)

		// no temporary files are left behind
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, f.SaveDataset(ctx, types.Dataset{Hours: types.Series{"2020-01-01 00:00": types.NewValue(0.1)}}))
		got, err := f.LoadDataset(ctx)
		require.NoError(t, err)
		assert.Len(t, got.Hours, 1)
		assert.Nil(t, got.Days)
	})

	t.Run("Invalid", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"days": {"2020-01-01": "lots"}}`), 0o644))
		_, err := NewFileProvider(path).LoadDataset(ctx)
		assert.ErrorIs(t, err, ErrInvalidDataset)
	})

	t.Run("Empty", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
		ds, err := NewFileProvider(path).LoadDataset(ctx)
		require.NoError(t, err)
		assert.Nil(t, ds.Days)
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		err := NewFileProvider(filepath.Join(dir, "nope", "data.json")).SaveDataset(ctx, types.Dataset{})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "temporary"))
	})
}
