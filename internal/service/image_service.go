package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"
	"net/http"
	"strings"

	"pulsevote/internal/config"
	"pulsevote/internal/models"
	"pulsevote/internal/observability"
	"pulsevote/internal/repository"
	"pulsevote/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	MasterMaxSize               = 1024
	MaxSourcePixels             = 40_000_000
	JPEGQuality                 = 85
	WebPQuality                 = 80
)

// ImageService stores generated survey images. Data URLs returned by the
// image model are decoded, normalized and written to the object store;
// remote URLs are kept as-is.
type ImageService struct {
	repo         repository.ImageRepository
	store        storage.ObjectStore
	maxSizeBytes int
}

func NewImageService(repo repository.ImageRepository, store storage.ObjectStore, cfg *config.Config) *ImageService {
	maxMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxMB = cfg.ImageMaxUploadSizeMB
	}
	return &ImageService{repo: repo, store: store, maxSizeBytes: maxMB * 1024 * 1024}
}

// StoreGenerated returns a public URL for ref.
func (s *ImageService) StoreGenerated(ctx context.Context, uploaderID, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", models.NewValidationError("Image is empty")
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}

	raw, err := s.decodeDataURL(ref)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])
	if existing, getErr := s.repo.GetByHash(ctx, hash); getErr == nil {
		return s.store.URL(existing.StorageKey), nil
	} else if !repository.IsNotFound(getErr) {
		return "", models.NewInternalError(getErr)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return "", models.NewValidationError("Image dimensions are too large")
	}
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)

	jpg, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	webpBytes, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	jpgKey := storage.ImageKey(hash, "master.jpg")
	webpKey := storage.ImageKey(hash, "master.webp")
	if err := s.store.Put(ctx, jpgKey, "image/jpeg", jpg); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := s.store.Put(ctx, webpKey, "image/webp", webpBytes); err != nil {
		_ = s.store.Delete(ctx, jpgKey)
		return "", models.NewInternalError(err)
	}

	b := master.Bounds()
	record := &models.Image{
		Hash:       hash,
		UploaderID: uploaderID,
		StorageKey: jpgKey,
		Width:      b.Dx(),
		Height:     b.Dy(),
		MimeType:   "image/jpeg",
		SizeBytes:  int64(len(jpg)),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// A concurrent writer may have stored the same hash first.
		if existing, getErr := s.repo.GetByHash(ctx, hash); getErr == nil {
			return s.store.URL(existing.StorageKey), nil
		}
		return "", models.NewInternalError(err)
	}

	observability.GlobalLogger.InfoContext(ctx, "stored generated image",
		slog.String("hash", hash),
		slog.Int("bytes", len(jpg)),
	)
	return s.store.URL(jpgKey), nil
}

// decodeDataURL accepts data:image/...;base64,... and enforces the size bound.
func (s *ImageService) decodeDataURL(ref string) ([]byte, error) {
	if !strings.HasPrefix(ref, "data:") {
		return nil, models.NewValidationError("Unsupported image reference")
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, models.NewValidationError("Image data must be base64 encoded")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > s.maxSizeBytes+3 {
		return nil, models.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", s.maxSizeBytes/(1024*1024)))
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, models.NewValidationError("Invalid image data")
	}
	if len(raw) > s.maxSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", s.maxSizeBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(raw)) {
		return nil, models.NewValidationError("Invalid image type")
	}
	return raw, nil
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

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}
