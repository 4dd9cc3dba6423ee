package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/pkg/cache"
	"github.com/shashiranjanraj/studio/pkg/logger"
	"github.com/shashiranjanraj/studio/pkg/query"
)

var productSchema = query.Schema{
	Fields: map[string]query.FieldType{
		"name":     query.String,
		"category": query.String,
		"price":    query.Number,
		"stock":    query.Number,
		"image":    query.ID,
	},
	DefaultSort: "-createdAt",
}

type ProductService struct {
	products ProductStore
	cache    *cache.Cache
	now      func() time.Time
}

func NewProductService(products ProductStore, c *cache.Cache) *ProductService {
	return &ProductService{products: products, cache: c, now: time.Now}
}

type ProductInput struct {
	Name        string   `json:"name"        validate:"required,max=100"`
	Description string   `json:"description" validate:"max=1000"`
	Price       *float64 `json:"price"       validate:"required,gte=0"`
	Stock       int      `json:"stock"       validate:"gte=0"`
	Category    string   `json:"category"    validate:"nullable,in=print|canvas|frame|album|digital|other"`
	ImageURL    string   `json:"imageUrl"`
	Image       string   `json:"image"       validate:"nullable,objectid"`
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	p := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       *in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		CreatedAt:   s.now(),
	}
	if p.Category == "" {
		p.Category = "print"
	}
	if in.Image != "" {
		id, _ := objectID(in.Image, "Image")
		p.Image = &id
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context, values url.Values) (*Page[models.Product], error) {
	q, err := query.Parse(values, productSchema)
	if err != nil {
		return nil, err
	}
	docs, total, err := s.products.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Page[models.Product]{Items: docs, Pagination: query.NewPagination(q, total)}, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	var cached models.Product
	if s.cache.Get(ctx, "product:"+id, &cached) {
		return &cached, nil
	}
	oid, err := objectID(id, "Product")
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Product", id)
	}
	if err := s.cache.Set(ctx, "product:"+id, p, CacheTTL); err != nil {
		logger.WithCtx(ctx).Warn("cache set failed", "key", "product:"+id, "error", err)
	}
	return p, nil
}

// ProductUpdate holds the editable fields; nil means keep.
type ProductUpdate struct {
	Name        *string  `json:"name"        validate:"nullable,max=100"`
	Description *string  `json:"description" validate:"nullable,max=1000"`
	Price       *float64 `json:"price"       validate:"nullable,gte=0"`
	Stock       *int     `json:"stock"       validate:"nullable,gte=0"`
	Category    *string  `json:"category"    validate:"nullable,in=print|canvas|frame|album|digital|other"`
	ImageURL    *string  `json:"imageUrl"`
	Image       *string  `json:"image"       validate:"nullable,objectid"`
}

// Update merges the provided fields into the product.
func (s *ProductService) Update(ctx context.Context, id string, in ProductUpdate) (*models.Product, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	oid, err := objectID(id, "Product")
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Product", id)
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.Image != nil {
		ref, _ := objectID(*in.Image, "Image")
		p.Image = &ref
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, notFound(err, "Product", id)
	}
	if in.Stock != nil {
		if err := s.products.SetStock(ctx, oid, *in.Stock); err != nil {
			return nil, notFound(err, "Product", id)
		}
		p.Stock = *in.Stock
	}
	s.invalidate(ctx, id)
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id, "Product")
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, oid); err != nil {
		return notFound(err, "Product", id)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *ProductService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Del(ctx, "product:"+id); err != nil {
		logger.WithCtx(ctx).Warn("cache invalidation failed", "key", "product:"+id, "error", err)
	}
}
