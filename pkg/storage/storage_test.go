package storage_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/pkg/storage"
)

func TestLocalDiskRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := storage.NewLocalDisk(t.TempDir(), "http://localhost:5000/storage/")

	require.NoError(t, d.Put(ctx, "images/thumbnails/a.jpg", []byte("jpeg"), "image/jpeg"))
	assert.True(t, d.Exists(ctx, "images/thumbnails/a.jpg"))

	data, err := d.Get(ctx, "images/thumbnails/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
	assert.Equal(t, "http://localhost:5000/storage/images/thumbnails/a.jpg", d.URL("images/thumbnails/a.jpg"))

	require.NoError(t, d.Delete(ctx, "images/thumbnails/a.jpg"))
	assert.False(t, d.Exists(ctx, "images/thumbnails/a.jpg"))
	assert.NoError(t, d.Delete(ctx, "images/thumbnails/a.jpg"), "deleting a missing object is not an error")

	_, err = d.Get(ctx, "images/thumbnails/a.jpg")
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestLocalDiskStaysInsideRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := storage.NewLocalDisk(root, "http://x")

	require.NoError(t, d.Put(ctx, "../../escape.jpg", []byte("x"), ""))
	assert.True(t, d.Exists(ctx, "escape.jpg"), "traversal is clamped to the root")
}

func TestManagerDefaultIsFirstDisk(t *testing.T) {
	local := storage.NewLocalDisk(t.TempDir(), "http://x")
	m := storage.NewManager(local)

	assert.Equal(t, "local", m.Default().Name())
	_, err := m.Disk("s3")
	assert.Error(t, err)

	ld, ok := m.Local()
	require.True(t, ok)
	assert.Equal(t, local.Root(), ld.Root())
}

func TestS3DiskAgainstFakeEndpoint(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	d, err := storage.NewS3Disk(ctx, storage.S3Options{
		Bucket:   "portfolio",
		Region:   "us-east-1",
		Key:      "test",
		Secret:   "test",
		Endpoint: srv.URL,
		BaseURL:  "https://cdn.example.com",
	})
	require.NoError(t, err)

	require.NoError(t, d.Put(ctx, "images/a.jpg", []byte("jpeg"), "image/jpeg"))
	require.NoError(t, d.Delete(ctx, "images/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/images/a.jpg", d.URL("images/a.jpg"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"PUT /portfolio/images/a.jpg", "DELETE /portfolio/images/a.jpg"}, calls)
}
