package media

import (
	"path/filepath"
	"testing"

	"github.com/alexjbarnes/media-sync/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSink struct {
	invalidations int
}

func (s *countingSink) InvalidateRemoteCache() { s.invalidations++ }

func newTestListener(t *testing.T) (*EventListener, *countingSink, *state.Store, chan struct{}) {
	t.Helper()

	store, err := state.LoadAt(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sink := &countingSink{}
	trigger := make(chan struct{}, 1)
	l := NewEventListener("https://store.example.com", nil, store, sink, trigger, quietLogger)

	return l, sink, store, trigger
}

// triggered reports whether a sync run was requested, draining the
// trigger so later assertions start clean.
func triggered(trigger chan struct{}) bool {
	select {
	case <-trigger:
		return true
	default:
		return false
	}
}

func TestHandleEvent_RemovedPrunesSyncRecords(t *testing.T) {
	l, sink, store, trigger := newTestListener(t)

	require.NoError(t, store.UpsertSynced([]state.SyncedRecord{
		{Identifier: "a.jpg", RemoteID: "r1"},
		{Identifier: "b.jpg", RemoteID: "r2"},
	}))

	l.handleEvent([]byte(`{"op":"removed","id":"r1"}`))

	assert.Equal(t, 1, sink.invalidations)

	_, ok := store.SyncedRemoteID("a.jpg")
	assert.False(t, ok, "record pointing at the removed id must be dropped")

	_, ok = store.SyncedRemoteID("b.jpg")
	assert.True(t, ok)

	// A removal schedules a sync run so the item is re-offered promptly.
	assert.True(t, triggered(trigger))
}

func TestHandleEvent_RemovedWithoutID(t *testing.T) {
	l, sink, _, trigger := newTestListener(t)

	l.handleEvent([]byte(`{"op":"removed"}`))
	assert.Zero(t, sink.invalidations)
	assert.False(t, triggered(trigger))
}

func TestHandleEvent_AddedInvalidatesOnly(t *testing.T) {
	l, sink, store, trigger := newTestListener(t)

	require.NoError(t, store.UpsertSynced([]state.SyncedRecord{
		{Identifier: "a.jpg", RemoteID: "r1"},
	}))

	l.handleEvent([]byte(`{"op":"added","id":"r9"}`))
	assert.Equal(t, 1, sink.invalidations)
	assert.False(t, triggered(trigger), "remote additions do not affect local candidates")

	_, ok := store.SyncedRemoteID("a.jpg")
	assert.True(t, ok)
}

func TestHandleEvent_RemovedWithNilTrigger(t *testing.T) {
	store, err := state.LoadAt(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sink := &countingSink{}
	l := NewEventListener("https://store.example.com", nil, store, sink, nil, quietLogger)

	l.handleEvent([]byte(`{"op":"removed","id":"r1"}`))
	assert.Equal(t, 1, sink.invalidations)
}

func TestHandleEvent_UnknownOpStillInvalidates(t *testing.T) {
	l, sink, _, _ := newTestListener(t)

	l.handleEvent([]byte(`{"op":"compacted"}`))
	assert.Equal(t, 1, sink.invalidations)
}

func TestHandleEvent_MissingOp(t *testing.T) {
	l, sink, _, _ := newTestListener(t)

	l.handleEvent([]byte(`{"id":"r1"}`))
	assert.Zero(t, sink.invalidations)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://store.example.com", "wss://store.example.com"},
		{"http://localhost:8080", "ws://localhost:8080"},
		{"wss://already.example.com", "wss://already.example.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, websocketURL(tt.in))
	}
}
