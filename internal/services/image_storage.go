package services

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/pokstore/backend/internal/apperrors"
)

// MaxImageSize bounds uploaded item photos
const MaxImageSize = 5 << 20

// FileTooLarge reports an upload in field over limit bytes
func FileTooLarge(field string, limit int64) error {
	return validationError(apperrors.KeyFileTooLarge, map[string]string{field: "too large"}, limit>>20)
}

// ImagePathPrefix is the URL prefix stored images are served under
const ImagePathPrefix = "/images/"

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStorageService stores uploaded item images on disk
type ImageStorageService struct {
	storageDir string
}

// NewImageStorageService creates a new image storage service
func NewImageStorageService(storageDir string) *ImageStorageService {
	if storageDir == "" {
		storageDir = "./data/images"
	}

	// Ensure the storage directory exists
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		// Log error but don't fail - will fail on actual writes
		log.Printf("Warning: could not create images directory: %v", err)
	}

	return &ImageStorageService{
		storageDir: storageDir,
	}
}

// SaveImage saves image data to disk and returns the public URL path
func (s *ImageStorageService) SaveImage(imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", validationError(apperrors.KeyImageRequired, map[string]string{"image": "required"})
	}
	if len(imageData) > MaxImageSize {
		return "", FileTooLarge("image", MaxImageSize)
	}

	ext, ok := imageExtensions[http.DetectContentType(imageData)]
	if !ok {
		return "", validationError(apperrors.KeyImageType, map[string]string{"image": "unsupported type"})
	}

	// Generate a unique filename
	filename := uuid.New().String() + ext
	filePath := filepath.Join(s.storageDir, filename)

	if err := os.WriteFile(filePath, imageData, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return ImagePathPrefix + filename, nil
}

// GetStorageDir returns the storage directory path
func (s *ImageStorageService) GetStorageDir() string {
	return s.storageDir
}
