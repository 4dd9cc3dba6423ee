package services

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/app/repositories/memory"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/storage"
)

type imageFixture struct {
	svc    *ImageService
	images *memory.ImageStore
	disk   *memDisk
	owner  *models.User
	other  *models.User
	admin  *models.User
}

func newImageFixture(t *testing.T) *imageFixture {
	t.Helper()
	users := memory.NewUserStore()
	f := &imageFixture{images: memory.NewImageStore(), disk: newMemDisk("local")}
	f.svc = NewImageService(f.images, storage.NewManager(f.disk), nil, nil)
	f.owner = seedUser(t, users, "owner@example.com", models.RoleUser)
	f.other = seedUser(t, users, "other@example.com", models.RoleUser)
	f.admin = seedUser(t, users, "admin@example.com", models.RoleAdmin)
	return f
}

func (f *imageFixture) upload(t *testing.T, in ImageInput) *models.Image {
	t.Helper()
	img, err := f.svc.Upload(context.Background(), identity(f.owner), "shot.png", bytes.NewReader(pngBytes(t, 64, 48)), in)
	require.NoError(t, err)
	return img
}

func TestUploadRejectsExtensionBeforeReading(t *testing.T) {
	f := newImageFixture(t)

	_, err := f.svc.Upload(context.Background(), identity(f.owner), "payload.exe", explodingReader{t}, ImageInput{Title: "x"})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.EqualError(t, err, "Please upload an image file (jpg, jpeg, png, gif, webp)")
	assert.Zero(t, f.disk.puts)
}

func TestUploadRejectsNonImageContent(t *testing.T) {
	f := newImageFixture(t)

	_, err := f.svc.Upload(context.Background(), identity(f.owner), "fake.jpg", strings.NewReader("GIF? no, plain text"), ImageInput{Title: "x"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Zero(t, f.disk.puts)
}

func TestUploadStoresBothVariants(t *testing.T) {
	f := newImageFixture(t)

	img := f.upload(t, ImageInput{Title: " Dunes ", Tags: []string{"Desert", "desert", " sand "}, IsForSale: true, Price: ptr(25.0)})

	assert.Equal(t, "Dunes", img.Title)
	assert.Equal(t, "other", img.Category)
	assert.Equal(t, []string{"desert", "sand"}, img.Tags)
	assert.Equal(t, 64, img.Metadata.Width)
	assert.Equal(t, 48, img.Dimensions.Height)
	assert.Equal(t, "png", img.Metadata.Format)
	assert.Equal(t, "local", img.StorageDisk)
	assert.True(t, strings.HasPrefix(img.StorageKey, "images/"))
	assert.True(t, strings.HasPrefix(img.ThumbnailKey, "images/thumbnails/"))
	assert.Equal(t, "https://cdn.test/"+img.StorageKey, img.ImageURL)
	require.NotNil(t, img.Price)
	assert.Equal(t, 25.0, *img.Price)
	assert.Equal(t, 2, f.disk.size())
}

func TestUploadIgnoresPriceWhenNotForSale(t *testing.T) {
	f := newImageFixture(t)
	img := f.upload(t, ImageInput{Title: "x", Price: ptr(10.0)})
	assert.Nil(t, img.Price)
}

func TestUploadThumbnailFailureRemovesWebObject(t *testing.T) {
	f := newImageFixture(t)
	f.disk.failPut = func(path string) bool { return strings.Contains(path, "thumbnails/") }

	_, err := f.svc.Upload(context.Background(), identity(f.owner), "shot.png", bytes.NewReader(pngBytes(t, 32, 32)), ImageInput{Title: "x"})
	require.True(t, apperr.Is(err, apperr.KindIntegration))
	assert.Equal(t, 2, f.disk.puts)
	assert.Zero(t, f.disk.size())

	page, err := f.svc.List(context.Background(), url.Values{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestImageOwnership(t *testing.T) {
	f := newImageFixture(t)
	img := f.upload(t, ImageInput{Title: "Mine"})

	_, err := f.svc.Update(context.Background(), identity(f.other), img.ID.Hex(), ImageUpdate{Title: ptr("Stolen")})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	err = f.svc.Delete(context.Background(), identity(f.other), img.ID.Hex())
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	got, err := f.svc.Update(context.Background(), identity(f.admin), img.ID.Hex(), ImageUpdate{Featured: ptr(true), Tags: &[]string{"A", "b"}})
	require.NoError(t, err)
	assert.True(t, got.Featured)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
}

func TestDeleteSwallowsStorageErrors(t *testing.T) {
	f := newImageFixture(t)
	img := f.upload(t, ImageInput{Title: "Gone"})
	f.disk.deleteErr = errors.New("permission denied")

	require.NoError(t, f.svc.Delete(context.Background(), identity(f.owner), img.ID.Hex()))

	_, err := f.svc.Get(context.Background(), img.ID.Hex())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteRemovesObjects(t *testing.T) {
	f := newImageFixture(t)
	img := f.upload(t, ImageInput{Title: "Gone"})
	require.Equal(t, 2, f.disk.size())

	require.NoError(t, f.svc.Delete(context.Background(), identity(f.owner), img.ID.Hex()))
	assert.Zero(t, f.disk.size())
}

func TestFeaturedAndPortfolioLists(t *testing.T) {
	f := newImageFixture(t)
	f.upload(t, ImageInput{Title: "Hero", Featured: true})
	f.upload(t, ImageInput{Title: "Portfolio piece", InPortfolio: true, Category: "wedding"})
	f.upload(t, ImageInput{Title: "Draft"})

	page, err := f.svc.Featured(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Hero", page.Items[0].Title)

	page, err = f.svc.Portfolio(context.Background(), url.Values{"category": {"wedding"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Portfolio piece", page.Items[0].Title)

	page, err = f.svc.List(context.Background(), url.Values{"search": {"draft"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.EqualValues(t, 1, page.Pagination.Total)
}
