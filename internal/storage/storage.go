// Package storage is the object store for uploaded images. Objects live on
// the local filesystem under one directory per bucket and are served
// read-only from the public URL.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"resort/internal/config"
	"resort/internal/middleware"
	"resort/internal/models"
	"resort/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultDir        = "/tmp/resort/storage"
	DefaultMaxMB      = 10
	MaxEdge           = 2048
	MaxPixels         = 40_000_000
	WebPQuality       = 82
	objectExt         = ".webp"
	objectContentType = "image/webp"
)

// Bucket names a storage bucket.
type Bucket string

const (
	BucketAccommodations Bucket = "accommodations"
	BucketExperiences    Bucket = "experiences"
	BucketAvatars        Bucket = "avatars"
	BucketMessages       Bucket = "messages"
)

// ParseBucket validates a bucket name.
func ParseBucket(raw string) (Bucket, bool) {
	switch b := Bucket(strings.ToLower(strings.TrimSpace(raw))); b {
	case BucketAccommodations, BucketExperiences, BucketAvatars, BucketMessages:
		return b, true
	}
	return "", false
}

// Object describes a stored image.
type Object struct {
	Bucket      Bucket `json:"bucket"`
	Path        string `json:"path"`
	PublicURL   string `json:"public_url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// UploadInput is one uploaded file.
type UploadInput struct {
	ProfileID   uint
	Filename    string
	ContentType string
	Content     []byte
}

// Store writes and deletes bucket objects.
type Store struct {
	dir       string
	publicURL string
	maxBytes  int64
}

// New returns a Store configured from cfg.
func New(cfg *config.Config) *Store {
	dir := DefaultDir
	maxMB := DefaultMaxMB
	publicURL := "/storage"
	if cfg != nil {
		if cfg.StorageDir != "" {
			dir = cfg.StorageDir
		}
		if cfg.StorageMaxUploadMB > 0 {
			maxMB = cfg.StorageMaxUploadMB
		}
		if cfg.StoragePublicURL != "" {
			publicURL = strings.TrimRight(cfg.StoragePublicURL, "/")
		}
	}
	return &Store{dir: dir, publicURL: publicURL, maxBytes: int64(maxMB) * 1024 * 1024}
}

// Dir is the filesystem root served at the public URL.
func (s *Store) Dir() string { return s.dir }

// MaxBytes is the upload size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// PublicURL returns the URL of objectPath within bucket.
func (s *Store) PublicURL(bucket Bucket, objectPath string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, bucket, objectPath)
}

// Upload normalizes an image to WebP and stores it as <profile_id>/<uuid>.webp in bucket.
func (s *Store) Upload(ctx context.Context, bucket Bucket, in UploadInput) (*Object, error) {
	obj, err := s.upload(bucket, in)
	result := "ok"
	if err != nil {
		result = strings.ToLower(models.ErrorCode(err))
		if result == "" {
			result = "error"
		}
	}
	observability.UploadsTotal.WithLabelValues(string(bucket), result).Inc()
	if err == nil {
		middleware.Logger.InfoContext(ctx, "object stored",
			slog.String("bucket", string(bucket)),
			slog.String("path", obj.Path),
			slog.Int64("bytes", obj.SizeBytes),
		)
	}
	return obj, err
}

func (s *Store) upload(bucket Bucket, in UploadInput) (*Object, error) {
	if _, ok := ParseBucket(string(bucket)); !ok {
		return nil, models.NewValidationError("Unknown bucket")
	}
	if in.ProfileID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detected) {
		return nil, models.NewValidationError("Invalid image type")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, models.NewValidationError("Image too large (max 40 megapixels)")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	resized := resizeToFit(decoded, MaxEdge, MaxEdge)
	encoded, err := encodeWebP(resized, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	objectPath := path.Join(strconv.FormatUint(uint64(in.ProfileID), 10), uuid.NewString()+objectExt)
	if err := writeBytesToFile(s.abs(bucket, objectPath), encoded); err != nil {
		return nil, models.NewInternalError(err)
	}

	b := resized.Bounds()
	return &Object{
		Bucket:      bucket,
		Path:        objectPath,
		PublicURL:   s.PublicURL(bucket, objectPath),
		Width:       b.Dx(),
		Height:      b.Dy(),
		SizeBytes:   int64(len(encoded)),
		ContentType: objectContentType,
	}, nil
}

// Delete removes objectPath from bucket. Profiles delete objects under their
// own id prefix; admins delete anything.
func (s *Store) Delete(ctx context.Context, profileID uint, isAdmin bool, bucket Bucket, objectPath string) error {
	if _, ok := ParseBucket(string(bucket)); !ok {
		return models.NewValidationError("Unknown bucket")
	}
	owner, clean, err := parseObjectPath(objectPath)
	if err != nil {
		return err
	}
	if owner != profileID && !isAdmin {
		return models.NewForbiddenError("You can only delete your own files")
	}
	if err := os.Remove(s.abs(bucket, clean)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NewNotFoundError("Object", clean)
		}
		return models.NewInternalError(err)
	}
	middleware.Logger.InfoContext(ctx, "object deleted",
		slog.String("bucket", string(bucket)),
		slog.String("path", clean),
		slog.Bool("admin", isAdmin && owner != profileID),
	)
	return nil
}

// ParseURL maps a public URL issued by this store back to its bucket and path.
func (s *Store) ParseURL(raw string) (Bucket, string, bool) {
	rest, ok := strings.CutPrefix(raw, s.publicURL+"/")
	if !ok {
		return "", "", false
	}
	name, objectPath, ok := strings.Cut(rest, "/")
	if !ok {
		return "", "", false
	}
	bucket, ok := ParseBucket(name)
	if !ok {
		return "", "", false
	}
	if _, clean, err := parseObjectPath(objectPath); err == nil {
		return bucket, clean, true
	}
	return "", "", false
}

func (s *Store) abs(bucket Bucket, objectPath string) string {
	return filepath.Join(s.dir, string(bucket), filepath.FromSlash(objectPath))
}

// parseObjectPath accepts only <profile_id>/<name>.webp.
func parseObjectPath(raw string) (uint, string, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "/")
	owner, name, ok := strings.Cut(raw, "/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(raw, "..") || !strings.HasSuffix(name, objectExt) {
		return 0, "", models.NewValidationError("Invalid object path")
	}
	id, err := strconv.ParseUint(owner, 10, 64)
	if err != nil || id == 0 {
		return 0, "", models.NewValidationError("Invalid object path")
	}
	return uint(id), raw, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
