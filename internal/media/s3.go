// Package media issues presigned URLs for profile photos.
package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/example/guilda/internal/apperr"
)

const (
	MinPhotos     = 3
	MaxPhotos     = 8
	PresignExpiry = 5 * time.Minute
	keyPrefix     = "profile-pics/"
)

var ErrDisabled = errors.New("photo uploads are not configured")

var allowedTypes = map[string]bool{"image/jpeg": true, "image/png": true, "image/webp": true}

type Upload struct {
	URL       string    `json:"upload_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// S3Presigner signs PUT and GET requests for one bucket.
type S3Presigner struct {
	bucket    string
	presigner *s3.PresignClient
	now       func() time.Time
}

func NewS3Presigner(ctx context.Context, bucket, region string) (*S3Presigner, error) {
	if bucket == "" {
		return nil, ErrDisabled
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3PresignerFromClient(s3.NewFromConfig(cfg), bucket), nil
}

func NewS3PresignerFromClient(client *s3.Client, bucket string) *S3Presigner {
	return &S3Presigner{bucket: bucket, presigner: s3.NewPresignClient(client), now: time.Now}
}

// UploadURL signs a PUT for a new photo of userID.
func (p *S3Presigner) UploadURL(ctx context.Context, userID, fileName, contentType string) (Upload, error) {
	if !allowedTypes[contentType] {
		return Upload{}, apperr.Validation("file_type", "must be a jpeg, png or webp image")
	}
	name := sanitize(fileName)
	if name == "" {
		return Upload{}, apperr.Validation("file_name", "required")
	}
	now := p.now()
	key := fmt.Sprintf("%s%s/%s-%s", keyPrefix, userID, now.UTC().Format("20060102150405"), name)
	req, err := p.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return Upload{}, fmt.Errorf("presign upload: %w", err)
	}
	return Upload{URL: req.URL, Key: key, ExpiresAt: now.Add(PresignExpiry)}, nil
}

// ReadURL signs a GET for a stored photo.
func (p *S3Presigner) ReadURL(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, keyPrefix) {
		return "", apperr.Validation("key", "not a profile photo")
	}
	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign read: %w", err)
	}
	return req.URL, nil
}

// OwnsKey reports whether key was issued for userID.
func OwnsKey(userID, key string) bool {
	return strings.HasPrefix(key, keyPrefix+userID+"/")
}

// ValidatePhotos checks a profile's photo list.
func ValidatePhotos(photos []string) error {
	n := 0
	for _, p := range photos {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	if n < MinPhotos || n > MaxPhotos {
		return apperr.Validation("photos", fmt.Sprintf("a profile needs between %d and %d photos", MinPhotos, MaxPhotos))
	}
	return nil
}

func sanitize(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
