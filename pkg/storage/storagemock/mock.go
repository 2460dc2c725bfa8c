package storagemock

import (
	"context"

	"github.com/linkysync/linkysync/pkg/storage"
	"github.com/linkysync/linkysync/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) LoadDataset(ctx context.Context) (types.Dataset, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.Dataset), args.Error(1)
	}
	return types.Dataset{}, nil
}

func (m *MockDatabase) SaveDataset(ctx context.Context, ds types.Dataset) error {
	args := m.Called(ctx, ds)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
