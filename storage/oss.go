package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSConfig holds Aliyun OSS credentials and addressing.
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint" json:"endpoint" validate:"required"`
	AccessKeyID     string `mapstructure:"access-key-id" json:"accessKeyId" validate:"required"`
	AccessKeySecret string `mapstructure:"access-key-secret" json:"-" validate:"required"`
	Bucket          string `mapstructure:"bucket" json:"bucket" validate:"required"`
	// Domain is an optional custom/CDN domain for public URLs. When empty the
	// bucket endpoint domain is used.
	Domain string `mapstructure:"domain" json:"domain"`
}

// OSSStore implements Store on Aliyun OSS.
type OSSStore struct {
	bucket *oss.Bucket
	domain string
}

// NewOSS creates an OSSStore.
// Endpoint example: oss-cn-hangzhou.aliyuncs.com
func NewOSS(cfg OSSConfig) (*OSSStore, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("get bucket %s: %w", cfg.Bucket, err)
	}

	domain := cfg.Domain
	if domain == "" {
		domain = fmt.Sprintf("https://%s.%s", cfg.Bucket, cfg.Endpoint)
	} else if !strings.HasPrefix(domain, "http") {
		domain = "https://" + domain
	}

	return &OSSStore{bucket: bucket, domain: strings.TrimSuffix(domain, "/")}, nil
}

// Put uploads data under key. OSS PutObject overwrites existing objects,
// which gives the contract its idempotent re-publish semantics.
func (s *OSSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key = strings.TrimPrefix(key, "/")

	err := s.bucket.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType))
	if err != nil {
		return "", fmt.Errorf("upload to OSS: %w", err)
	}
	return s.domain + "/" + key, nil
}

// Delete removes the object under key.
func (s *OSSStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key = strings.TrimPrefix(key, "/")
	if err := s.bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("delete from OSS: %w", err)
	}
	return nil
}

// List returns up to maxKeys objects under prefix.
func (s *OSSStore) List(ctx context.Context, prefix string, maxKeys int) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := []oss.Option{oss.Prefix(strings.TrimPrefix(prefix, "/"))}
	if maxKeys > 0 {
		opts = append(opts, oss.MaxKeys(maxKeys))
	}

	result, err := s.bucket.ListObjects(opts...)
	if err != nil {
		return nil, fmt.Errorf("list OSS objects: %w", err)
	}

	infos := make([]ObjectInfo, 0, len(result.Objects))
	for _, obj := range result.Objects {
		infos = append(infos, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return infos, nil
}
