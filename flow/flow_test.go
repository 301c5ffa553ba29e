package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/carebook/agent"
	"github.com/hupe1980/carebook/logging"
	"github.com/hupe1980/carebook/schedule"
)

func newSeededDescriptors(t *testing.T) *agent.Descriptors {
	t.Helper()

	store, err := schedule.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = schedule.Seed(context.Background(), store, schedule.DefaultSeedFrom, schedule.DefaultSeedTo)
	require.NoError(t, err)

	ds, err := agent.NewDescriptors(store)
	require.NoError(t, err)

	return ds
}

func testEnv() *Env {
	return &Env{ThreadID: "t1", Logger: logging.NoOpLogger{}}
}
