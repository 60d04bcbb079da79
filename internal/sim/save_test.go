package sim

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UnHumbleBen/ppsim/internal/compiler"
)

func TestSave_RoundTripsThroughJSON(t *testing.T) {
	s := newApproxMajority(t)
	require.NoError(t, s.Run(context.Background(), RunFor(3), WithProgress(false)))

	data, err := json.Marshal(s.Save())
	require.NoError(t, err)
	var sv SavedState
	require.NoError(t, json.Unmarshal(data, &sv))

	restored, err := Restore(&sv)
	require.NoError(t, err)

	assert.Equal(t, s.Time(), restored.Time())
	assert.Equal(t, s.Step(), restored.Step())
	assert.Equal(t, s.Seed(), restored.Seed())
	assert.Equal(t, s.N(), restored.N())
	assert.Equal(t, s.History().Times(), restored.History().Times())
	assert.Equal(t, s.History().Configs(), restored.History().Configs())
	assert.Equal(t, s.Config(), restored.Config())
	assert.Equal(t, []string{"A", "B", "U"}, sv.States)
}

func TestSave_IsIndependentOfLiveSimulation(t *testing.T) {
	s := newApproxMajority(t)
	sv := s.Save()

	require.NoError(t, s.Run(context.Background(), RunFor(2), WithProgress(false)))

	assert.Equal(t, 0.0, sv.Time)
	assert.Equal(t, []float64{0}, sv.Times)
}

func TestRestore_ContinuesRunning(t *testing.T) {
	s := newApproxMajority(t)
	require.NoError(t, s.Run(context.Background(), RunFor(2), WithProgress(false)))

	restored, err := Restore(s.Save())
	require.NoError(t, err)
	require.NoError(t, restored.Run(context.Background(), RunFor(1), WithProgress(false)))

	assert.Equal(t, 3.0, restored.Time())
	assert.Equal(t, int64(100), sumConfig(restored.Config()))
	assert.Equal(t, []float64{0, 1, 2, 3}, restored.History().Times())
}

func TestRestore_IsDeterministic(t *testing.T) {
	s := newApproxMajority(t)
	require.NoError(t, s.Run(context.Background(), RunFor(1), WithProgress(false)))
	sv := s.Save()

	a, err := Restore(sv)
	require.NoError(t, err)
	b, err := Restore(sv)
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background(), RunFor(2), WithProgress(false)))
	require.NoError(t, b.Run(context.Background(), RunFor(2), WithProgress(false)))

	assert.Equal(t, a.Config(), b.Config(), "two restores of the same state replay identically")
	assert.Equal(t, a.History().Configs(), b.History().Configs())
}

func TestRestore_Invalid(t *testing.T) {
	var cerr *ConfigError

	_, err := Restore(&SavedState{})
	assert.ErrorAs(t, err, &cerr, "missing table")

	_, err = Restore(&SavedState{
		Table:  &compiler.Table{Q: 2},
		States: []string{"A"},
	})
	assert.ErrorAs(t, err, &cerr, "table/state count mismatch")

	_, err = Restore(&SavedState{
		Table:  &compiler.Table{Q: 1},
		States: []string{"A"},
		Engine: "batch",
	})
	assert.ErrorAs(t, err, &cerr, "empty history")
}
