package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "items"))
	require.NoError(t, err)
	return store
}

func TestKey_ZeroPadded(t *testing.T) {
	tests := []struct {
		num      int
		expected string
	}{
		{1, "000001"},
		{123, "000123"},
		{99999, "099999"},
		{135000, "135000"},
		{1234567, "1234567"},
	}

	for _, tt := range tests {
		if got := Key(tt.num); got != tt.expected {
			t.Errorf("Key(%d) = %q, want %q", tt.num, got, tt.expected)
		}
	}
}

func TestStore_TerminalMarkers(t *testing.T) {
	store := newTestStore(t)

	require.Equal(t, TerminalNone, store.Terminal(42))

	require.NoError(t, store.WriteTerminal(42, TerminalNotFound))
	assert.Equal(t, TerminalNotFound, store.Terminal(42))
	assert.FileExists(t, filepath.Join(store.Dir(), "000042.404"))

	require.NoError(t, store.WriteTerminal(43, TerminalCutoff))
	assert.Equal(t, TerminalCutoff, store.Terminal(43))
	assert.FileExists(t, filepath.Join(store.Dir(), "000043.skip"))

	// Markers for one item do not leak to neighbours.
	assert.Equal(t, TerminalNone, store.Terminal(44))
}

func TestStore_WriteTerminal_InvalidKind(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.WriteTerminal(1, TerminalNone))
}

func TestStore_ComponentMarkers(t *testing.T) {
	store := newTestStore(t)

	assert.False(t, store.HasComponent(7, ComponentMain))

	require.NoError(t, store.WriteComponent(7, ComponentMain, []byte(`{"number": 7}`)))
	assert.True(t, store.HasComponent(7, ComponentMain))
	assert.False(t, store.HasComponent(7, ComponentComments))

	data, err := os.ReadFile(filepath.Join(store.Dir(), "000007-main.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\"number\": 7}\n", string(data))
}

func TestStore_FailureRecord(t *testing.T) {
	store := newTestStore(t)

	before := time.Now().UTC()
	require.NoError(t, store.WriteFailure(9, ComponentComments, errors.New("HTTP 500 from /x")))

	record, err := store.ReadFailure(9, ComponentComments)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "HTTP 500 from /x", record.Error)
	assert.Equal(t, "comments", record.Component)
	assert.False(t, record.Timestamp.Before(before.Truncate(time.Second)))
	assert.Equal(t, time.UTC, record.Timestamp.Location())

	// A failure marker never blocks: there is still no success marker.
	assert.False(t, store.HasComponent(9, ComponentComments))
}

func TestStore_ReadFailure_Missing(t *testing.T) {
	store := newTestStore(t)

	record, err := store.ReadFailure(1, ComponentMain)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestStore_SuccessClearsFailure(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.WriteFailure(5, ComponentTimeline, errors.New("boom")))
	require.NoError(t, store.WriteComponent(5, ComponentTimeline, []byte("[]")))

	assert.True(t, store.HasComponent(5, ComponentTimeline))
	record, err := store.ReadFailure(5, ComponentTimeline)
	require.NoError(t, err)
	assert.Nil(t, record, "success must invalidate the failure marker")
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "items")
	_, err := NewStore(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}
