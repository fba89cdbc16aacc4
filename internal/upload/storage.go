package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Storage abstracts the external object store.
type Storage interface {
	// Upload stores the stream under publicID and returns its public URL.
	Upload(ctx context.Context, r io.Reader, publicID, resourceType string) (string, error)
	// Destroy removes the stored object.
	Destroy(ctx context.Context, publicID, resourceType string) error
}

// CloudinaryStorage implements Storage against the Cloudinary upload API.
type CloudinaryStorage struct {
	client *cloudinary.Cloudinary
}

// NewCloudinaryStorage creates a Storage backed by the given Cloudinary account.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret string) (*CloudinaryStorage, error) {
	client, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("creating cloudinary client: %w", err)
	}
	client.Config.URL.Secure = true

	return &CloudinaryStorage{client: client}, nil
}

// Upload stores the stream and returns its secure URL.
func (s *CloudinaryStorage) Upload(ctx context.Context, r io.Reader, publicID, resourceType string) (string, error) {
	result, err := s.client.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: resourceType,
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("uploading to cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("uploading to cloudinary: %s", result.Error.Message)
	}

	return result.SecureURL, nil
}

// Destroy removes the stored object.
func (s *CloudinaryStorage) Destroy(ctx context.Context, publicID, resourceType string) error {
	_, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("destroying cloudinary object: %w", err)
	}
	return nil
}
