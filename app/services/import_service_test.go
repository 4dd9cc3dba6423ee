package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/app/repositories/memory"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/storage"
)

func newImportFixture(t *testing.T) (*ImportService, *memory.UserStore, *memDisk) {
	t.Helper()
	users := memory.NewUserStore()
	disk := newMemDisk("local")
	images := NewImageService(memory.NewImageStore(), storage.NewManager(disk), nil, nil)
	return NewImportService(images, users, 2*time.Second), users, disk
}

func TestImportURLs(t *testing.T) {
	svc, users, disk := newImportFixture(t)
	owner := seedUser(t, users, "owner@example.com", models.RoleAdmin)
	png := pngBytes(t, 20, 20)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/golden-hour_01.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(png)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	results, err := svc.ImportURLs(context.Background(), identity(owner), ImportInput{
		URLs: []string{
			srv.URL + "/golden-hour_01.png",
			srv.URL + "/missing.png",
			srv.URL + "/script.sh",
			"ftp://example.com/a.png",
		},
		InPortfolio: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.NotEmpty(t, results[0].ImageID)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, "Image could not be fetched", results[1].Error)
	assert.Equal(t, "Please upload an image file (jpg, jpeg, png, gif, webp)", results[2].Error)
	assert.Equal(t, "Invalid URL", results[3].Error)
	assert.Equal(t, 2, disk.size())

	img, err := svc.images.Get(context.Background(), results[0].ImageID)
	require.NoError(t, err)
	assert.Equal(t, "golden hour 01", img.Title)
	assert.True(t, img.InPortfolio)
}

func TestImportURLsValidation(t *testing.T) {
	svc, users, _ := newImportFixture(t)
	owner := seedUser(t, users, "owner@example.com", models.RoleAdmin)

	_, err := svc.ImportURLs(context.Background(), identity(owner), ImportInput{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestImportDir(t *testing.T) {
	svc, users, disk := newImportFixture(t)
	seedUser(t, users, "owner@example.com", models.RoleAdmin)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), pngBytes(t, 10, 10), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("not really a png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o755))

	results, err := svc.ImportDir(context.Background(), "owner@example.com", dir, ImportInput{Category: "nature"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].ImageID)
	assert.Equal(t, "Please upload an image file", results[1].Error)
	assert.Equal(t, 2, disk.size())

	_, err = svc.ImportDir(context.Background(), "ghost@example.com", dir, ImportInput{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestTitleFromName(t *testing.T) {
	assert.Equal(t, "golden hour 01", titleFromName("golden-hour_01.jpg"))
	assert.Equal(t, "Untitled", titleFromName(".png"))
}
