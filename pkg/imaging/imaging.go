// Package imaging turns an uploaded photo into the two variants the catalog
// serves: a web image bounded to 1920x1080 and a 300x300 thumbnail.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

const (
	MaxUploadBytes = 10 << 20

	WebWidth     = 1920
	WebHeight    = 1080
	WebQuality   = 85
	ThumbSize    = 300
	ThumbQuality = 70

	// ContentType of both generated variants.
	ContentType = "image/jpeg"
)

var (
	// ErrExtension is returned for file names outside the allow-list.
	ErrExtension = errors.New("imaging: extension not allowed")
	// ErrTooLarge is returned for payloads above MaxUploadBytes.
	ErrTooLarge = errors.New("imaging: image larger than 10MB")
	// ErrNotImage is returned when the bytes are not a decodable image.
	ErrNotImage = errors.New("imaging: content is not a supported image")
)

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

var allowedMIME = map[string]bool{
	"image/jpeg": true, "image/png": true, "image/gif": true, "image/webp": true,
}

// CheckName applies the extension allow-list. It runs before any bytes are
// read.
func CheckName(name string) error {
	if !allowedExt[strings.ToLower(path.Ext(name))] {
		return ErrExtension
	}
	return nil
}

// Metadata describes the original upload.
type Metadata struct {
	Width  int    `json:"width" bson:"width"`
	Height int    `json:"height" bson:"height"`
	Format string `json:"format" bson:"format"`
	Size   int64  `json:"size" bson:"size"`
}

// Result holds the encoded variants and the original's metadata.
type Result struct {
	Web       []byte
	Thumbnail []byte
	Meta      Metadata
}

// Process validates data and renders both variants.
func Process(data []byte) (*Result, error) {
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	if !allowedMIME[mimetype.Detect(data).String()] {
		return nil, ErrNotImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrNotImage
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}

	web, err := encode(imaging.Fit(src, WebWidth, WebHeight, imaging.Lanczos), WebQuality)
	if err != nil {
		return nil, err
	}
	thumb, err := encode(imaging.Fill(src, ThumbSize, ThumbSize, imaging.Center, imaging.Lanczos), ThumbQuality)
	if err != nil {
		return nil, err
	}

	return &Result{
		Web:       web,
		Thumbnail: thumb,
		Meta: Metadata{
			Width:  cfg.Width,
			Height: cfg.Height,
			Format: format,
			Size:   int64(len(data)),
		},
	}, nil
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("imaging: encode: %w", err)
	}
	return buf.Bytes(), nil
}
