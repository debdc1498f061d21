package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/kendall-kelly/production-tracker-api/utils"
)

// ImageService stores proof-of-work images attached to steps
type ImageService interface {
	// UploadImage validates and uploads an image for a step, returns the storage key
	UploadImage(ctx context.Context, stepID uint, fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// StoreImageService implements ImageService on top of an ObjectStore
type StoreImageService struct {
	store ObjectStore
	now   func() time.Time
}

var imageServiceInstance ImageService

// NewImageService creates an image service over store
func NewImageService(store ObjectStore) *StoreImageService {
	return &StoreImageService{store: store, now: time.Now}
}

// InitImageService initializes the process-wide image service
func InitImageService(store ObjectStore) ImageService {
	imageServiceInstance = NewImageService(store)
	return imageServiceInstance
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// UploadImage validates and uploads an image file
func (s *StoreImageService) UploadImage(ctx context.Context, stepID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	content, err := utils.ReadUploadedFile(fileHeader)
	if err != nil {
		return "", err
	}

	key := utils.AttachmentKey(stepID, s.now().Unix(), fileHeader.Filename)
	if err := s.store.PutObject(ctx, key, content, "image/png"); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// GetImageURL generates a presigned URL for accessing an image
func (s *StoreImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.store.PresignGet(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage deletes an image from storage
func (s *StoreImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.store.DeleteObject(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
