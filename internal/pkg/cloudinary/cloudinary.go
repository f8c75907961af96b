package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	ResourceImage = "image"
	ResourceRaw   = "raw"
)

// Service stores attachment blobs in Cloudinary
type Service struct {
	cld          *cloudinary.Cloudinary
	uploadFolder string
}

// Asset describes a stored blob
type Asset struct {
	URL          string
	PublicID     string
	ResourceType string
	FileSize     int64
	Format       string
}

// File validation constants
var (
	ImageExtensions   = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	BlockedExtensions = []string{".exe", ".bat", ".cmd", ".com", ".msi", ".scr"}

	MaxFileSize = int64(25 * 1024 * 1024) // 25MB
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = fmt.Errorf("file size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024))
	ErrBlockedFileType = errors.New("file type is not allowed")
)

// NewService creates a new Cloudinary service instance
func NewService(cloudName, apiKey, apiSecret, uploadFolder string) (*Service, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary credentials are required")
	}

	cloudinaryURL := fmt.Sprintf("cloudinary://%s:%s@%s", apiKey, apiSecret, cloudName)

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	if uploadFolder == "" {
		uploadFolder = "chatter"
	}

	return &Service{
		cld:          cld,
		uploadFolder: uploadFolder,
	}, nil
}

// Upload stores a blob. Images are stored as image resources so Cloudinary
// can serve previews; everything else is stored raw.
func (s *Service) Upload(ctx context.Context, r io.Reader, filename string) (*Asset, error) {
	resourceType := ResourceTypeFor(filename)

	uploadParams := uploader.UploadParams{
		Folder:       s.uploadFolder + "/files",
		ResourceType: resourceType,
	}

	result, err := s.cld.Upload.Upload(ctx, r, uploadParams)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("failed to upload file: %s", result.Error.Message)
	}

	return &Asset{
		URL:          result.SecureURL,
		PublicID:     result.PublicID,
		ResourceType: resourceType,
		FileSize:     int64(result.Bytes),
		Format:       result.Format,
	}, nil
}

// Delete removes an asset from Cloudinary
func (s *Service) Delete(ctx context.Context, publicID string, resourceType string) error {
	if publicID == "" {
		return errors.New("publicID is required")
	}

	if resourceType == "" {
		resourceType = ResourceRaw
	}

	destroyParams := uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	}

	result, err := s.cld.Upload.Destroy(ctx, destroyParams)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to delete asset: %s", result.Error.Message)
	}

	return nil
}

// ResourceTypeFor picks the Cloudinary resource type for a file name
func ResourceTypeFor(filename string) string {
	if isAllowedExtension(getFileExtension(filename), ImageExtensions) {
		return ResourceImage
	}
	return ResourceRaw
}

// ValidateUpload checks the size and extension of an attachment
func ValidateUpload(filename string, size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > MaxFileSize {
		return ErrFileTooLarge
	}

	ext := getFileExtension(filename)
	if isAllowedExtension(ext, BlockedExtensions) {
		return fmt.Errorf("%w: %s. Blocked types: %s", ErrBlockedFileType, ext, strings.Join(BlockedExtensions, ", "))
	}

	return nil
}

// getFileExtension returns the lowercase file extension including the dot
func getFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(ext)
}

// isAllowedExtension checks if the extension is in the allowed list
func isAllowedExtension(ext string, allowedTypes []string) bool {
	for _, allowed := range allowedTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}
