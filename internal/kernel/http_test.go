package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/pkg/mail"
	"github.com/shashiranjanraj/studio/pkg/payment"
	"github.com/shashiranjanraj/studio/pkg/storage"
)

type nopGateway struct{}

func (nopGateway) CreateIntent(context.Context, int64, string, map[string]string) (*payment.Intent, error) {
	return &payment.Intent{ID: "pi_1", ClientSecret: "secret"}, nil
}

func (nopGateway) ParseWebhook([]byte, string) (*payment.Event, error) {
	return nil, errors.New("no signatures found matching the expected signature")
}

type nopCalendar struct{}

func (nopCalendar) CancelEvent(context.Context, string, string) error { return nil }

type nopMailer struct{}

func (nopMailer) Send(context.Context, mail.Message) error { return nil }

func newTestServer(t *testing.T) (*App, *httptest.Server) {
	t.Helper()
	app := New(Options{
		Stores:   MemoryStores(),
		Disks:    storage.NewManager(storage.NewLocalDisk(t.TempDir(), "http://localhost/storage")),
		Gateway:  nopGateway{},
		Calendar: nopCalendar{},
		Mailer:   nopMailer{},
	})
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return app, srv
}

type envelope struct {
	Success bool              `json:"success"`
	Token   string            `json:"token"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
	Data    json.RawMessage   `json:"data"`
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestAuthFlow(t *testing.T) {
	_, srv := newTestServer(t)

	status, env := call(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, env.Token)

	status, env = call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, status)
	token := env.Token

	status, env = call(t, srv, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Equal(t, "user", me.Role)

	status, _ = call(t, srv, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterValidation(t *testing.T) {
	_, srv := newTestServer(t)

	status, env := call(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "not-an-email", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "password")
}

func TestAdminOnlyRoutes(t *testing.T) {
	app, srv := newTestServer(t)

	_, env := call(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Bob", "email": "bob@example.com", "password": "secret1",
	})
	userToken := env.Token

	product := map[string]any{"name": "Print", "price": 25, "stock": 3, "category": "print"}
	status, _ := call(t, srv, http.MethodPost, "/api/products", userToken, product)
	assert.Equal(t, http.StatusForbidden, status)

	_, err := app.Auth.CreateAdmin(context.Background(), "Root", "root@example.com", "secret1")
	require.NoError(t, err)
	_, env = call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "root@example.com", "password": "secret1",
	})
	adminToken := env.Token

	status, env = call(t, srv, http.MethodPost, "/api/products", adminToken, product)
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		ID string `json:"_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	status, env = call(t, srv, http.MethodGet, "/api/products/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	_, srv := newTestServer(t)

	status, env := call(t, srv, http.MethodPost, "/api/orders/webhook", "", map[string]string{"type": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
}

func TestNotFoundEnvelope(t *testing.T) {
	_, srv := newTestServer(t)

	status, env := call(t, srv, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Route not found", env.Error)

	status, env = call(t, srv, http.MethodGet, "/api/products/507f1f77bcf86cd799439011", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t)

	status, env := call(t, srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","database":"memory"}`, string(env.Data))
}

func TestCloseWithoutConnections(t *testing.T) {
	app, _ := newTestServer(t)
	assert.NoError(t, app.Close(context.Background()))
}
