package media

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLibrary_RequiresExistingDirectory(t *testing.T) {
	_, err := NewLibrary(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	_, err = NewLibrary("")
	require.Error(t, err)
}

func TestNewLibrary_RejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := NewLibrary(path)
	require.Error(t, err)
}

func TestLibraryOpen(t *testing.T) {
	lib := testLibrary(t, map[string]string{"2024/a.jpg": "content"})

	f, err := lib.Open("2024/a.jpg")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestLibraryResolve_BlocksTraversal(t *testing.T) {
	lib := testLibrary(t, map[string]string{"a.jpg": "x"})

	tests := []struct {
		name       string
		identifier string
	}{
		{"empty", ""},
		{"parent segment", "../etc/passwd"},
		{"nested parent segment", "a/../../etc/passwd"},
		{"backslash traversal", "..\\..\\etc\\passwd"},
		{"null byte", "a\x00.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.Open(tt.identifier)
			require.Error(t, err)
		})
	}
}

func TestLibraryStat(t *testing.T) {
	lib := testLibrary(t, map[string]string{"a.jpg": "12345"})

	info, err := lib.Stat("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "2024/a.jpg", "2024/a.jpg"},
		{"backslashes", "2024\\a.jpg", "2024/a.jpg"},
		{"repeated slashes", "2024//sub///a.jpg", "2024/sub/a.jpg"},
		{"surrounding slashes", "/2024/a.jpg/", "2024/a.jpg"},
		// NFD (e + combining acute) normalizes to the NFC form.
		{"unicode normalization", "cafe\u0301.jpg", "caf\u00e9.jpg"},
		{"nfc input unchanged", "caf\u00e9.jpg", "caf\u00e9.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.in))
		})
	}
}
