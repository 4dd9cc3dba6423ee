// Package controllers adapts HTTP requests to the service layer. Handlers
// decode input, call one service operation, and answer through the ctx
// response helpers; all business rules live in app/services.
package controllers

import (
	"github.com/shashiranjanraj/studio/app/services"
	"github.com/shashiranjanraj/studio/pkg/ctx"
)

// webhookBodyLimit caps raw webhook payloads.
const webhookBodyLimit = 1 << 20

func list[T any](c *ctx.Context, page *services.Page[T], err error) {
	if err != nil {
		c.Fail(err)
		return
	}
	items := page.Items
	if items == nil {
		items = []T{}
	}
	c.List(items, len(items), page.Pagination)
}

func respond(c *ctx.Context, data any, err error) {
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(data)
}

func created(c *ctx.Context, data any, err error) {
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(data)
}
