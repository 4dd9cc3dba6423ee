package controllers

import (
	"github.com/shashiranjanraj/studio/app/services"
	"github.com/shashiranjanraj/studio/pkg/ctx"
)

type ImportController struct {
	imports *services.ImportService
}

func NewImportController(imports *services.ImportService) *ImportController {
	return &ImportController{imports: imports}
}

// Store fetches a batch of remote images. Per-URL failures are reported in
// the result list; the request itself succeeds.
func (ic *ImportController) Store(c *ctx.Context) {
	var in services.ImportInput
	if !c.BindJSON(&in) {
		return
	}
	results, err := ic.imports.ImportURLs(c.Context(), c.Identity(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.List(results, len(results), nil)
}
