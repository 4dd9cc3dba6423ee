package controllers

import (
	"github.com/shashiranjanraj/studio/app/services"
	"github.com/shashiranjanraj/studio/pkg/ctx"
)

type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

func (pc *ProductController) Index(c *ctx.Context) {
	page, err := pc.products.List(c.Context(), c.QueryValues())
	list(c, page, err)
}

func (pc *ProductController) Show(c *ctx.Context) {
	p, err := pc.products.Get(c.Context(), c.Param("id"))
	respond(c, p, err)
}

func (pc *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.products.Create(c.Context(), in)
	created(c, p, err)
}

func (pc *ProductController) Update(c *ctx.Context) {
	var in services.ProductUpdate
	if !c.DecodeJSON(&in) {
		return
	}
	p, err := pc.products.Update(c.Context(), c.Param("id"), in)
	respond(c, p, err)
}

func (pc *ProductController) Destroy(c *ctx.Context) {
	if err := pc.products.Delete(c.Context(), c.Param("id")); err != nil {
		c.Fail(err)
		return
	}
	c.Success(map[string]any{})
}
