// Package upload archives accepted proof images to S3-compatible object
// storage (R2, MinIO, AWS).
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/takachain/takachain/internal/validate"
)

// Allowed MIME types for proof uploads
const (
	MIMEImageJPEG = "image/jpeg"
	MIMEImagePNG  = "image/png"
)

// Validation errors
var (
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrFileTooLarge    = errors.New("file size exceeds maximum allowed")
	ErrEmptyFile       = errors.New("file is empty")
)

// AllowedMIMETypes maps allowed MIME types to their file extensions.
var AllowedMIMETypes = map[string]string{
	MIMEImageJPEG: ".jpg",
	MIMEImagePNG:  ".png",
}

// StoredObject describes an archived proof image.
type StoredObject struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Archiver stores accepted proof images.
type Archiver interface {
	Store(ctx context.Context, image []byte, contentType string) (*StoredObject, error)
}

// Service stores proof images in an S3-compatible bucket.
type Service struct {
	s3Client     *s3.Client
	bucketName   string
	publicBase   string
	maxSizeBytes int64
}

// ServiceConfig holds configuration for the upload service.
type ServiceConfig struct {
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PublicBaseURL   string // Base URL for serving stored objects; defaults to path-style endpoint
	MaxSizeMB       int
}

// NewService creates a new upload service with the given configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 15
	}

	// R2-compatible client: auto region, path-style addressing
	s3Client := s3.New(s3.Options{
		Region: "auto",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true,
	})

	publicBase := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.BucketName
	}

	return &Service{
		s3Client:     s3Client,
		bucketName:   cfg.BucketName,
		publicBase:   publicBase,
		maxSizeBytes: int64(cfg.MaxSizeMB) * 1024 * 1024,
	}, nil
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	normalized, err := validate.MIMEType(contentType, validate.AllowedImageTypes)
	if err != nil {
		return ErrUnsupportedType
	}
	if _, ok := AllowedMIMETypes[normalized]; !ok {
		return ErrUnsupportedType
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func (s *Service) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return ErrEmptyFile
	}
	if sizeBytes > s.maxSizeBytes {
		return ErrFileTooLarge
	}
	return nil
}

// GenerateObjectKey creates a unique object key for a proof image.
// Pattern: proofs/uuid.ext
func GenerateObjectKey(contentType string) (string, error) {
	ext, ok := AllowedMIMETypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return fmt.Sprintf("proofs/%s%s", uuid.New().String(), ext), nil
}

// Store validates and uploads the image, returning its key and public URL.
func (s *Service) Store(ctx context.Context, image []byte, contentType string) (*StoredObject, error) {
	if err := ValidateContentType(contentType); err != nil {
		return nil, err
	}
	if err := s.ValidateFileSize(int64(len(image))); err != nil {
		return nil, err
	}

	key, err := GenerateObjectKey(contentType)
	if err != nil {
		return nil, err
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(image),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(image))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	return &StoredObject{
		Key: key,
		URL: s.publicBase + "/" + key,
	}, nil
}

// GetS3Client returns the S3 client used by the service.
func (s *Service) GetS3Client() *s3.Client {
	return s.s3Client
}

// GetBucketName returns the bucket name used by the service.
func (s *Service) GetBucketName() string {
	return s.bucketName
}
