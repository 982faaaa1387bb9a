package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"relay/internal/config"
)

// S3Store uploads to one bucket with static credentials.
type S3Store struct {
	bucket   string
	prefix   string
	endpoint string
	client   *s3.Client
}

// NewS3 builds a store from cfg. A custom endpoint switches to path-style
// addressing for S3-compatible servers.
func NewS3(cfg config.S3) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3: bucket required")
	}
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return &S3Store{
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		endpoint: endpoint,
		client:   s3.New(opts),
	}, nil
}

// Prefix returns the configured key prefix.
func (s *S3Store) Prefix() string { return s.prefix }

// Put uploads the file at localPath under key. hc, when non-nil, replaces the
// SDK transport for this call so the caller's timeout budget applies.
func (s *S3Store) Put(ctx context.Context, hc *http.Client, key, localPath string) (Object, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return Object{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("stat upload: %w", err)
	}

	uploader := manager.NewUploader(s.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType(localPath)),
	}, func(u *manager.Uploader) {
		if hc != nil {
			u.ClientOptions = append(u.ClientOptions, func(o *s3.Options) { o.HTTPClient = hc })
		}
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)
	}
	return Object{Key: key, URL: fmt.Sprintf("s3://%s/%s", s.bucket, key), Size: info.Size()}, nil
}

func contentType(path string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(strings.ToLower(path), ".webm"):
		return "video/webm"
	case strings.HasSuffix(strings.ToLower(path), ".mkv"):
		return "video/x-matroska"
	}
	return "application/octet-stream"
}
