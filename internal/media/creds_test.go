package media

import (
	"path/filepath"
	"testing"

	"github.com/alexjbarnes/media-sync/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCredentials(t *testing.T) {
	store, err := state.LoadAt(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	creds := NewStateCredentials(store, quietLogger)

	assert.Empty(t, creds.CurrentToken())

	require.NoError(t, store.SetToken("tok"))
	assert.Equal(t, "tok", creds.CurrentToken())

	creds.ForceLogout()
	assert.Empty(t, creds.CurrentToken())
}
