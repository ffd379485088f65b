// Package storage publishes finished artifacts to S3-compatible object
// storage (DigitalOcean Spaces).
package storage

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"T2V/pkg/config"
)

// Publisher uploads a local file under a key and returns its public URL.
type Publisher interface {
	Upload(localPath, key string) (string, error)
}

// SpacesClient is the S3-compatible publisher used in production.
type SpacesClient struct {
	uploader *s3manager.Uploader
	endpoint string
	bucket   string
}

func NewSpacesClient(cfg *config.Config) (*SpacesClient, error) {
	sess, err := session.NewSession(&aws.Config{
		Endpoint:    aws.String(cfg.SpacesEndpoint),
		Region:      aws.String(cfg.SpacesRegion),
		Credentials: credentials.NewStaticCredentials(cfg.SpacesKey, cfg.SpacesSecret, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("spaces session: %w", err)
	}
	return &SpacesClient{
		uploader: s3manager.NewUploader(sess),
		endpoint: strings.TrimSuffix(cfg.SpacesEndpoint, "/"),
		bucket:   cfg.SpacesBucket,
	}, nil
}

func (c *SpacesClient) Upload(localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = c.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        f,
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, key), nil
}
