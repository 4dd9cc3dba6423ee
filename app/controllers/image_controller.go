package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/studio/app/services"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/ctx"
	"github.com/shashiranjanraj/studio/pkg/imaging"
)

// uploadFormLimit leaves room for the text fields next to a maximum-size
// image.
const uploadFormLimit = imaging.MaxUploadBytes + 1<<20

type ImageController struct {
	images *services.ImageService
}

func NewImageController(images *services.ImageService) *ImageController {
	return &ImageController{images: images}
}

func (ic *ImageController) Index(c *ctx.Context) {
	page, err := ic.images.List(c.Context(), c.QueryValues())
	list(c, page, err)
}

func (ic *ImageController) Featured(c *ctx.Context) {
	page, err := ic.images.Featured(c.Context(), c.QueryValues())
	list(c, page, err)
}

func (ic *ImageController) Portfolio(c *ctx.Context) {
	page, err := ic.images.Portfolio(c.Context(), c.QueryValues())
	list(c, page, err)
}

func (ic *ImageController) Show(c *ctx.Context) {
	img, err := ic.images.Get(c.Context(), c.Param("id"))
	respond(c, img, err)
}

// Store accepts multipart/form-data with the file in the "image" field and
// the descriptive fields alongside it.
func (ic *ImageController) Store(c *ctx.Context) {
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, uploadFormLimit)
	if err := c.R.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Fail(apperr.Validation("Please upload an image less than 10MB"))
			return
		}
		c.Fail(apperr.Validation("Please upload a file"))
		return
	}
	file, header, err := c.R.FormFile("image")
	if err != nil {
		c.Fail(apperr.Validation("Please upload a file"))
		return
	}
	defer file.Close()

	in, err := imageForm(c.R)
	if err != nil {
		c.Fail(err)
		return
	}
	img, err := ic.images.Upload(c.Context(), c.Identity(), header.Filename, file, in)
	created(c, img, err)
}

func imageForm(r *http.Request) (services.ImageInput, error) {
	in := services.ImageInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}
	for _, raw := range r.Form["tags"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				in.Tags = append(in.Tags, t)
			}
		}
	}

	flags := map[string]*bool{"featured": &in.Featured, "inPortfolio": &in.InPortfolio, "isForSale": &in.IsForSale}
	for name, dst := range flags {
		raw := r.FormValue(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return in, apperr.Invalid(map[string]string{name: "The " + name + " field must be true or false."})
		}
		*dst = v
	}
	if raw := r.FormValue("price"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return in, apperr.Invalid(map[string]string{"price": "The price must be a number."})
		}
		in.Price = &p
	}
	return in, nil
}

func (ic *ImageController) Update(c *ctx.Context) {
	var in services.ImageUpdate
	if !c.DecodeJSON(&in) {
		return
	}
	img, err := ic.images.Update(c.Context(), c.Identity(), c.Param("id"), in)
	respond(c, img, err)
}

func (ic *ImageController) Destroy(c *ctx.Context) {
	if err := ic.images.Delete(c.Context(), c.Identity(), c.Param("id")); err != nil {
		c.Fail(err)
		return
	}
	c.Success(map[string]any{})
}
