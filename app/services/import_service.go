package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/studio/app/repositories"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/auth"
	xhttp "github.com/shashiranjanraj/studio/pkg/http"
	"github.com/shashiranjanraj/studio/pkg/imaging"
	"github.com/shashiranjanraj/studio/pkg/logger"
	"github.com/shashiranjanraj/studio/pkg/workerpool"
)

type ImportService struct {
	images      *ImageService
	users       UserStore
	timeout     time.Duration
	concurrency int
}

func NewImportService(images *ImageService, users UserStore, timeout time.Duration) *ImportService {
	return &ImportService{images: images, users: users, timeout: timeout, concurrency: 4}
}

type ImportInput struct {
	URLs        []string `json:"urls"     validate:"required,max=50"`
	Category    string   `json:"category" validate:"nullable,in=portrait|wedding|nature|event|other"`
	Tags        []string `json:"tags"`
	InPortfolio bool     `json:"inPortfolio"`
	Featured    bool     `json:"featured"`
}

// ImportResult reports the outcome for one source.
type ImportResult struct {
	Source  string `json:"url"`
	ImageID string `json:"imageId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ImportURLs fetches and ingests every URL. A failing URL is reported in
// its result and does not stop the batch.
func (s *ImportService) ImportURLs(ctx context.Context, owner auth.Identity, in ImportInput) ([]ImportResult, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	ownerID, err := objectID(owner.ID, "User")
	if err != nil {
		return nil, err
	}
	return s.run(ctx, in.URLs, func(ctx context.Context, src string) (string, error) {
		return s.fromURL(ctx, ownerID, src, in)
	}), nil
}

// ImportDir ingests every allowed image file directly inside dir on behalf of
// the user with ownerEmail.
func (s *ImportService) ImportDir(ctx context.Context, ownerEmail, dir string, in ImportInput) ([]ImportResult, error) {
	owner, err := s.users.FindByEmail(ctx, ownerEmail)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("There is no user with that email")
	}
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && imaging.CheckName(e.Name()) == nil {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	return s.run(ctx, files, func(ctx context.Context, file string) (string, error) {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return s.store(ctx, owner.ID, filepath.Base(file), data, in)
	}), nil
}

func (s *ImportService) run(ctx context.Context, sources []string, fn func(context.Context, string) (string, error)) []ImportResult {
	results := make([]ImportResult, len(sources))
	pool := workerpool.New(s.concurrency)
	for i, src := range sources {
		i, src := i, src
		results[i].Source = src
		err := pool.SubmitWait(ctx, func(ctx context.Context) {
			id, err := fn(ctx, src)
			if err != nil {
				results[i].Error = importError(err)
				logger.WithCtx(ctx).Warn("import failed", "source", src, "error", err)
				return
			}
			results[i].ImageID = id
		})
		if err != nil {
			results[i].Error = err.Error()
		}
	}
	pool.Shutdown()
	return results
}

func (s *ImportService) fromURL(ctx context.Context, ownerID primitive.ObjectID, raw string, in ImportInput) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.Validation("Invalid URL")
	}
	name := path.Base(u.Path)
	if err := imaging.CheckName(name); err != nil {
		return "", apperr.Validation("Please upload an image file (jpg, jpeg, png, gif, webp)")
	}

	resp, err := xhttp.Get(u.String()).
		WithContext(ctx).
		Header("Accept", "image/*").
		Timeout(s.timeout).
		Retry(2, 500*time.Millisecond).
		MaxBytes(imaging.MaxUploadBytes).
		Send()
	if errors.Is(err, xhttp.ErrTooLarge) {
		return "", apperr.Validation("Please upload an image less than 10MB")
	}
	if err != nil {
		return "", apperr.Integration("Image could not be fetched").Wrap(err)
	}
	if err := resp.Throw(); err != nil {
		return "", apperr.Integration("Image could not be fetched").Wrap(err)
	}
	return s.store(ctx, ownerID, name, resp.Raw, in)
}

func (s *ImportService) store(ctx context.Context, ownerID primitive.ObjectID, name string, data []byte, in ImportInput) (string, error) {
	img, err := s.images.ingest(ctx, ownerID, data, ImageInput{
		Title:       titleFromName(name),
		Category:    in.Category,
		Tags:        in.Tags,
		InPortfolio: in.InPortfolio,
		Featured:    in.Featured,
	})
	if err != nil {
		return "", err
	}
	return img.ID.Hex(), nil
}

// titleFromName turns "golden-hour_01.jpg" into "golden hour 01".
func titleFromName(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	title := strings.Join(strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(base)), " ")
	if title == "" {
		title = "Untitled"
	}
	if r := []rune(title); len(r) > 100 {
		title = string(r[:100])
	}
	return title
}

func importError(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
