package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	t.Parallel()

	fetchedAt := time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC)
	name := ObjectName("pages", "www.shop.example", fetchedAt, []byte("content"))
	assert.Regexp(t, `^pages/2026-08-30/www\.shop\.example_[0-9a-f]{16}\.txt$`, name)

	// Identical content on the same day collapses to the same object.
	again := ObjectName("pages", "www.shop.example", fetchedAt.Add(-time.Hour), []byte("content"))
	assert.Equal(t, name, again)

	other := ObjectName("pages", "www.shop.example", fetchedAt, []byte("different"))
	assert.NotEqual(t, name, other)

	bare := ObjectName("", "shop.example:8080/x", fetchedAt, []byte("content"))
	assert.Regexp(t, `^2026-08-30/shop\.example_8080_x_[0-9a-f]{16}\.txt$`, bare)
}

func TestLocalProviderSave(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	provider, err := NewLocalProvider(root)
	require.NoError(t, err)

	name := ObjectName("pages", "shop.example", time.Now(), []byte("hello"))
	require.NoError(t, provider.Save(context.Background(), name, []byte("hello")))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestNewLocalProviderRequiresRoot(t *testing.T) {
	t.Parallel()

	_, err := NewLocalProvider("")
	require.Error(t, err)
}
