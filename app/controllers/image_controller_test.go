package controllers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/studio/app/controllers"
	"github.com/shashiranjanraj/studio/app/repositories/memory"
	"github.com/shashiranjanraj/studio/app/services"
	"github.com/shashiranjanraj/studio/pkg/auth"
	"github.com/shashiranjanraj/studio/pkg/ctx"
	"github.com/shashiranjanraj/studio/pkg/imaging"
	"github.com/shashiranjanraj/studio/pkg/storage"
)

func uploadHandler(t *testing.T) http.Handler {
	t.Helper()
	disks := storage.NewManager(storage.NewLocalDisk(t.TempDir(), "http://localhost/storage"))
	ic := controllers.NewImageController(services.NewImageService(memory.NewImageStore(), disks, nil, nil))
	store := ctx.Wrap(ic.Store)

	owner := auth.Identity{ID: primitive.NewObjectID().Hex(), Role: auth.RoleUser}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store(w, r.WithContext(auth.WithIdentity(r.Context(), owner)))
	})
}

func multipartUpload(t *testing.T, filename string, size int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Harbour at dusk"))
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(make([]byte, size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.False(t, env.Success)
	return env.Error
}

func TestStoreRejectsOversizedUpload(t *testing.T) {
	rec := httptest.NewRecorder()
	uploadHandler(t).ServeHTTP(rec, multipartUpload(t, "big.jpg", imaging.MaxUploadBytes+2<<20))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please upload an image less than 10MB", errorMessage(t, rec))
}

func TestStoreRequiresMultipartFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/images", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	uploadHandler(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please upload a file", errorMessage(t, rec))
}
