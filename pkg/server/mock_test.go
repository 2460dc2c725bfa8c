package server

import (
	"context"
	"log/slog"

	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/updater"
	"github.com/stretchr/testify/mock"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Periodic(ctx context.Context) (updater.Report, error) {
	args := m.Called(ctx)
	return args.Get(0).(updater.Report), args.Error(1)
}

func (m *mockRunner) Backfill(ctx context.Context) (updater.Report, error) {
	args := m.Called(ctx)
	return args.Get(0).(updater.Report), args.Error(1)
}
