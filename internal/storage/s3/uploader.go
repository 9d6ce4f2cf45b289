// Package s3 stores chat attachments in an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const cacheControl = "max-age=3600"

type Options struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

// Client writes objects through minio-go and hands back their public URL.
type Client struct {
	bucket        string
	publicBaseURL string
	client        *minio.Client
	logger        *slog.Logger

	bucketOnce sync.Once
	bucketErr  error
}

func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	mc, err := minio.New(hostOf(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	base := strings.TrimSpace(opts.PublicEndpoint)
	if base == "" {
		base = endpoint
		if !strings.Contains(base, "://") {
			scheme := "http"
			if opts.UseSSL {
				scheme = "https"
			}
			base = scheme + "://" + base
		}
	}

	return &Client{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		client:        mc,
		logger:        logger,
	}, nil
}

func (c *Client) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key = strings.Trim(key, "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := c.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.client.PutObject(ctx, c.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}

	u := fmt.Sprintf("%s/%s/%s", c.publicBaseURL, c.bucket, key)
	c.logger.Info("attachment stored", "bucket", c.bucket, "key", key)
	return u, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	c.bucketOnce.Do(func() {
		exists, err := c.client.BucketExists(ctx, c.bucket)
		if err != nil {
			c.bucketErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			c.bucketErr = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, c.bucket)
		if err := c.client.SetBucketPolicy(ctx, c.bucket, policy); err != nil {
			c.bucketErr = fmt.Errorf("s3: set bucket policy: %w", err)
		}
	})
	return c.bucketErr
}

// Unconfigured is used when no bucket is configured; every upload fails.
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, string, io.Reader, string) (string, error) {
	return "", errors.New("s3: object store is not configured")
}

func hostOf(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return endpoint
}
