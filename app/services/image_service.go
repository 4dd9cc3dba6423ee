package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/auth"
	"github.com/shashiranjanraj/studio/pkg/besteffort"
	"github.com/shashiranjanraj/studio/pkg/cache"
	"github.com/shashiranjanraj/studio/pkg/event"
	"github.com/shashiranjanraj/studio/pkg/imaging"
	"github.com/shashiranjanraj/studio/pkg/logger"
	"github.com/shashiranjanraj/studio/pkg/query"
	"github.com/shashiranjanraj/studio/pkg/storage"
)

// CacheTTL bounds how long a by-id lookup is served from the cache.
const CacheTTL = 5 * time.Minute

var imageSchema = query.Schema{
	Fields: map[string]query.FieldType{
		"title":       query.String,
		"category":    query.String,
		"tags":        query.String,
		"featured":    query.Bool,
		"inPortfolio": query.Bool,
		"isForSale":   query.Bool,
		"price":       query.Number,
		"uploadedBy":  query.ID,
	},
	DefaultSort: "-createdAt",
}

type ImageService struct {
	images ImageStore
	disks  *storage.Manager
	cache  *cache.Cache
	bus    *event.Bus
	now    func() time.Time
}

func NewImageService(images ImageStore, disks *storage.Manager, c *cache.Cache, bus *event.Bus) *ImageService {
	return &ImageService{images: images, disks: disks, cache: c, bus: bus, now: time.Now}
}

// ImageInput is the descriptive part of an upload.
type ImageInput struct {
	Title       string   `json:"title"       validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Category    string   `json:"category"    validate:"nullable,in=portrait|wedding|nature|event|other"`
	Tags        []string `json:"tags"`
	Featured    bool     `json:"featured"`
	InPortfolio bool     `json:"inPortfolio"`
	IsForSale   bool     `json:"isForSale"`
	Price       *float64 `json:"price"       validate:"nullable,gte=0"`
}

// Upload stores a new image. The file name is checked against the extension
// allow-list before anything is read from body.
func (s *ImageService) Upload(ctx context.Context, owner auth.Identity, filename string, body io.Reader, in ImageInput) (*models.Image, error) {
	if err := imaging.CheckName(filename); err != nil {
		return nil, apperr.Validation("Please upload an image file (jpg, jpeg, png, gif, webp)")
	}
	if err := check(in); err != nil {
		return nil, err
	}
	ownerID, err := objectID(owner.ID, "User")
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(body, imaging.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return s.ingest(ctx, ownerID, data, in)
}

// ingest processes raw bytes and writes both variants to the default disk.
func (s *ImageService) ingest(ctx context.Context, ownerID primitive.ObjectID, data []byte, in ImageInput) (*models.Image, error) {
	res, err := imaging.Process(data)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		return nil, apperr.Validation("Please upload an image less than 10MB")
	case errors.Is(err, imaging.ErrNotImage):
		return nil, apperr.Validation("Please upload an image file")
	case err != nil:
		return nil, err
	}

	disk := s.disks.Default()
	name := uuid.NewString() + ".jpg"
	webKey, thumbKey := "images/"+name, "images/thumbnails/"+name

	if err := disk.Put(ctx, webKey, res.Web, imaging.ContentType); err != nil {
		return nil, apperr.Integration("Image could not be stored").Wrap(err)
	}
	if err := disk.Put(ctx, thumbKey, res.Thumbnail, imaging.ContentType); err != nil {
		besteffort.Run(ctx, "storage.delete", func(ctx context.Context) error {
			return disk.Delete(ctx, webKey)
		}, "disk", disk.Name(), "path", webKey)
		return nil, apperr.Integration("Image could not be stored").Wrap(err)
	}

	img := &models.Image{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Category:     in.Category,
		Tags:         dedupe(in.Tags),
		ImageURL:     disk.URL(webKey),
		ThumbnailURL: disk.URL(thumbKey),
		StorageKey:   webKey,
		ThumbnailKey: thumbKey,
		StorageDisk:  disk.Name(),
		Dimensions:   models.Dimensions{Width: res.Meta.Width, Height: res.Meta.Height},
		Metadata: models.ImageMetadata{
			Width:  res.Meta.Width,
			Height: res.Meta.Height,
			Format: res.Meta.Format,
			Size:   res.Meta.Size,
		},
		UploadedBy:  ownerID,
		Featured:    in.Featured,
		InPortfolio: in.InPortfolio,
		IsForSale:   in.IsForSale,
		CreatedAt:   s.now(),
	}
	if img.Category == "" {
		img.Category = "other"
	}
	if in.IsForSale {
		img.Price = in.Price
	}

	if err := s.images.Create(ctx, img); err != nil {
		s.removeObjects(ctx, disk, webKey, thumbKey)
		return nil, err
	}
	s.bus.FireAsync(ctx, event.ImageUploaded, img)
	return img, nil
}

func (s *ImageService) List(ctx context.Context, values url.Values) (*Page[models.Image], error) {
	return s.list(ctx, values, nil)
}

// Featured lists images flagged for the landing page.
func (s *ImageService) Featured(ctx context.Context, values url.Values) (*Page[models.Image], error) {
	return s.list(ctx, values, map[string]interface{}{"featured": true})
}

// Portfolio lists images included in the public portfolio.
func (s *ImageService) Portfolio(ctx context.Context, values url.Values) (*Page[models.Image], error) {
	return s.list(ctx, values, map[string]interface{}{"inPortfolio": true})
}

func (s *ImageService) list(ctx context.Context, values url.Values, fixed map[string]interface{}) (*Page[models.Image], error) {
	q, err := query.Parse(values, imageSchema)
	if err != nil {
		return nil, err
	}
	for k, v := range fixed {
		q.Filter[k] = v
	}
	docs, total, err := s.images.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Page[models.Image]{Items: docs, Pagination: query.NewPagination(q, total)}, nil
}

func (s *ImageService) Get(ctx context.Context, id string) (*models.Image, error) {
	var cached models.Image
	if s.cache.Get(ctx, "image:"+id, &cached) {
		return &cached, nil
	}

	oid, err := objectID(id, "Image")
	if err != nil {
		return nil, err
	}
	img, err := s.images.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Image", id)
	}
	if err := s.cache.Set(ctx, "image:"+id, img, CacheTTL); err != nil {
		logger.WithCtx(ctx).Warn("cache set failed", "key", "image:"+id, "error", err)
	}
	return img, nil
}

// ImageUpdate holds the editable fields; nil means keep.
type ImageUpdate struct {
	Title       *string   `json:"title"       validate:"nullable,max=100"`
	Description *string   `json:"description" validate:"nullable,max=500"`
	Category    *string   `json:"category"    validate:"nullable,in=portrait|wedding|nature|event|other"`
	Tags        *[]string `json:"tags"`
	Featured    *bool     `json:"featured"`
	InPortfolio *bool     `json:"inPortfolio"`
	IsForSale   *bool     `json:"isForSale"`
	Price       *float64  `json:"price"       validate:"nullable,gte=0"`
}

// Update edits an image; only its uploader or an admin may do so.
func (s *ImageService) Update(ctx context.Context, requester auth.Identity, id string, in ImageUpdate) (*models.Image, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	img, err := s.owned(ctx, requester, id, "update")
	if err != nil {
		return nil, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		img.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		img.Description = *in.Description
	}
	if in.Category != nil {
		img.Category = *in.Category
	}
	if in.Tags != nil {
		img.Tags = dedupe(*in.Tags)
	}
	if in.Featured != nil {
		img.Featured = *in.Featured
	}
	if in.InPortfolio != nil {
		img.InPortfolio = *in.InPortfolio
	}
	if in.IsForSale != nil {
		img.IsForSale = *in.IsForSale
	}
	if in.Price != nil {
		img.Price = in.Price
	}
	if !img.IsForSale {
		img.Price = nil
	}

	if err := s.images.Update(ctx, img); err != nil {
		return nil, notFound(err, "Image", id)
	}
	s.invalidate(ctx, id)
	return img, nil
}

// Delete removes the document and, best-effort, both stored objects.
func (s *ImageService) Delete(ctx context.Context, requester auth.Identity, id string) error {
	img, err := s.owned(ctx, requester, id, "delete")
	if err != nil {
		return err
	}

	if disk, err := s.disks.Disk(img.StorageDisk); err != nil {
		logger.WithCtx(ctx).Warn("image disk unavailable, objects left in place",
			"image_id", id, "disk", img.StorageDisk, "error", err)
	} else {
		s.removeObjects(ctx, disk, img.StorageKey, img.ThumbnailKey)
	}

	if err := s.images.Delete(ctx, img.ID); err != nil {
		return notFound(err, "Image", id)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *ImageService) removeObjects(ctx context.Context, disk storage.Disk, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		key := key
		besteffort.Run(ctx, "storage.delete", func(ctx context.Context) error {
			return disk.Delete(ctx, key)
		}, "disk", disk.Name(), "path", key)
	}
}

func (s *ImageService) owned(ctx context.Context, requester auth.Identity, id, action string) (*models.Image, error) {
	oid, err := objectID(id, "Image")
	if err != nil {
		return nil, err
	}
	img, err := s.images.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Image", id)
	}
	if !requester.Owns(img.UploadedBy.Hex()) {
		return nil, apperr.Forbidden("User %s is not authorized to %s this image", requester.ID, action)
	}
	return img, nil
}

func (s *ImageService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Del(ctx, "image:"+id); err != nil {
		logger.WithCtx(ctx).Warn("cache invalidation failed", "key", "image:"+id, "error", err)
	}
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
