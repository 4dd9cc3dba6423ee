package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/app/repositories/memory"
	"github.com/shashiranjanraj/studio/pkg/auth"
	"github.com/shashiranjanraj/studio/pkg/mail"
	"github.com/shashiranjanraj/studio/pkg/payment"
	"github.com/shashiranjanraj/studio/pkg/storage"
)

type fakeGateway struct {
	mu       sync.Mutex
	amounts  []int64
	metadata []map[string]string
	err      error

	event    *payment.Event
	parseErr error
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount int64, _ string, md map[string]string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.amounts = append(g.amounts, amount)
	g.metadata = append(g.metadata, md)
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Intent{ID: "pi_test_1", ClientSecret: "pi_test_1_secret_abc"}, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, _ string) (*payment.Event, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	return g.event, nil
}

type fakeCalendar struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (c *fakeCalendar) CancelEvent(_ context.Context, eventID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, eventID+":"+reason)
	return c.err
}

func (c *fakeCalendar) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// memDisk is an in-memory storage.Disk that can fail selected operations.
type memDisk struct {
	mu        sync.Mutex
	name      string
	objects   map[string][]byte
	puts      int
	failPut   func(path string) bool
	deleteErr error
}

func newMemDisk(name string) *memDisk {
	return &memDisk{name: name, objects: map[string][]byte{}}
}

func (d *memDisk) Name() string { return d.name }

func (d *memDisk) Put(_ context.Context, path string, content []byte, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.puts++
	if d.failPut != nil && d.failPut(path) {
		return errors.New("disk full")
	}
	d.objects[path] = content
	return nil
}

func (d *memDisk) Get(_ context.Context, path string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.objects[path]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return b, nil
}

func (d *memDisk) Exists(_ context.Context, path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.objects[path]
	return ok
}

func (d *memDisk) Delete(_ context.Context, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deleteErr != nil {
		return d.deleteErr
	}
	delete(d.objects, path)
	return nil
}

func (d *memDisk) URL(path string) string { return "https://cdn.test/" + path }

func (d *memDisk) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.objects)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// explodingReader fails the test if anything reads from it.
type explodingReader struct{ t *testing.T }

func (r explodingReader) Read([]byte) (int, error) {
	r.t.Fatal("body was read")
	return 0, nil
}

func seedUser(t *testing.T, users *memory.UserStore, email, role string) *models.User {
	t.Helper()
	hashed, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	u := &models.User{
		Name:      strings.Split(email, "@")[0],
		Email:     email,
		Password:  hashed,
		Role:      role,
		CreatedAt: time.Now(),
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func identity(u *models.User) auth.Identity {
	return auth.Identity{ID: u.ID.Hex(), Role: u.Role, Email: u.Email, Name: u.Name, IsPhotographer: u.IsPhotographer}
}

func seedProduct(t *testing.T, products *memory.ProductStore, name string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Stock: stock, Category: "print", CreatedAt: time.Now()}
	require.NoError(t, products.Create(context.Background(), p))
	return p
}

func ptr[T any](v T) *T { return &v }
