package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BlobConfig describes the networked object-storage backend.
type BlobConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// BlobStore persists collections as objects in an S3-compatible bucket.
// Object writes are atomic on the service side, which satisfies the Store
// contract without any coordination here.
type BlobStore struct {
	client *minio.Client
	bucket string
}

// NewBlobStore connects to the object store and ensures the bucket exists.
func NewBlobStore(cfg BlobConfig) (*BlobStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("store: blob endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("store: blob client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, checkErr := client.BucketExists(ctx, cfg.Bucket)
		if checkErr != nil || !exists {
			return nil, fmt.Errorf("store: ensure bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &BlobStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *BlobStore) Load(ctx context.Context, collection string, out any) error {
	object, err := s.client.GetObject(ctx, s.bucket, documentName(collection), minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("store: read %s: %w", collection, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("store: read %s: %w", collection, err)
	}
	decodeCollection(data, out)
	return nil
}

func (s *BlobStore) Save(ctx context.Context, collection string, records any) error {
	data, err := encodeCollection(records)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", collection, err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, documentName(collection),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("store: write %s: %w", collection, err)
	}
	return nil
}
