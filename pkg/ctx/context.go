// Package ctx provides the request context controllers are written against.
//
//	func (c *OrderController) Show(x *ctx.Context) {
//	    order, err := c.orders.Get(x.Context(), x.Param("id"), x.Identity())
//	    if err != nil {
//	        x.Fail(err)
//	        return
//	    }
//	    x.Success(order)
//	}
//
//	router.Get("/orders/{id}", "orders.show", ctx.Wrap(c.Show))
package ctx

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/auth"
	"github.com/shashiranjanraj/studio/pkg/bind"
	"github.com/shashiranjanraj/studio/pkg/response"
	"github.com/shashiranjanraj/studio/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W http.ResponseWriter
	R *http.Request
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter (e.g. "/orders/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// QueryValues returns the full parsed query string.
func (c *Context) QueryValues() url.Values {
	return c.R.URL.Query()
}

func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// Body reads the raw request body, capped at limit bytes.
func (c *Context) Body(limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.R.Body, limit))
}

// ClientIP returns the client IP, respecting X-Forwarded-For.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	ip := c.R.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func (c *Context) Context() context.Context { return c.R.Context() }

// Identity returns the caller attached by middleware.Protect. Handlers
// mounted without Protect get the zero Identity.
func (c *Context) Identity() auth.Identity {
	id, _ := auth.FromContext(c.R.Context())
	return id
}

// ─── Binding / Validation ─────────────────────────────────────────────────────

// BindJSON decodes and validates the body into dest. On failure it writes a
// 400 and returns false.
//
//	var input RegisterInput
//	if !c.BindJSON(&input) {
//	    return // response already sent
//	}
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.Fail(apperr.Invalid(errs))
		return false
	}
	return true
}

// DecodeJSON decodes without validating; used for partial updates.
func (c *Context) DecodeJSON(dest any) bool {
	if err := bind.Decode(c.R, dest); err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// ─── Response helpers ─────────────────────────────────────────────────────────

// SetAuthCookie sets (or with an empty token, expires) the session cookie.
func (c *Context) SetAuthCookie(name, token string, ttl time.Duration, secure bool) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
	}
	if token == "" {
		cookie.Value = "none"
		cookie.Expires = time.Now().Add(10 * time.Second)
	}
	http.SetCookie(c.W, cookie)
}

func (c *Context) JSON(code int, v any) { response.JSON(c.W, code, v) }

func (c *Context) Success(data any) { response.Success(c.W, data) }

func (c *Context) Created(data any) { response.Created(c.W, data) }

// List sends a paginated collection envelope.
func (c *Context) List(data any, count int, pagination any) {
	response.List(c.W, data, count, pagination)
}

func (c *Context) Error(code int, message string) { response.Error(c.W, code, message) }

// Fail maps err through the apperr taxonomy.
func (c *Context) Fail(err error) { response.Fail(c.W, c.R, err) }
