package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileStorage_InsertPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "urls.json")

	fs, err := NewFileStorage(path, zap.NewNop())
	require.NoError(t, err)

	r, err := fs.Insert(ctx, "https://www.freecodecamp.org")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ShortID)

	r, err = fs.Insert(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.ShortID)

	_, err = fs.Insert(ctx, "https://example.com")
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, fs.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"{\"short_url\":1,\"original_url\":\"https://www.freecodecamp.org\"}\n"+
			"{\"short_url\":2,\"original_url\":\"https://example.com\"}\n",
		string(content))
}

func TestFileStorage_ReloadContinuesSequence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "urls.json")

	fs, err := NewFileStorage(path, zap.NewNop())
	require.NoError(t, err)
	_, err = fs.Insert(ctx, "https://a.example.com")
	require.NoError(t, err)
	_, err = fs.Insert(ctx, "https://b.example.com")
	require.NoError(t, err)
	require.NoError(t, fs.Close())

	reopened, err := NewFileStorage(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	found, err := reopened.FindByShortID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example.com", found.Original)

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	r, err := reopened.Insert(ctx, "https://c.example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.ShortID)
}

func TestFileStorage_BrokenLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o600))

	_, err := NewFileStorage(path, zap.NewNop())
	assert.Error(t, err)
}

func TestFileStorage_ReloadLongRecord(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "urls.json")
	long := "https://example.com/" + strings.Repeat("a", 70000)

	fs, err := NewFileStorage(path, zap.NewNop())
	require.NoError(t, err)
	_, err = fs.Insert(ctx, long)
	require.NoError(t, err)
	_, err = fs.Insert(ctx, "https://example.com")
	require.NoError(t, err)
	require.NoError(t, fs.Close())

	reopened, err := NewFileStorage(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	found, err := reopened.FindByShortID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, long, found.Original)

	r, err := reopened.Insert(ctx, "https://b.example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.ShortID)
}
