package filestore

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
}

func newConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{
		useSSL: false,
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// minioResolver serves contract files from the pre-positioned object-store
// copy. The file reference is the object key within the configured bucket.
type minioResolver struct {
	cfg    *minioConfig
	client *minio.Client
}

var _ Resolver = (*minioResolver)(nil)

func NewMinioResolver(opts ...MinioOpts) (*minioResolver, error) {
	cfg := newConfig(opts...)

	minioClient, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, err
	}

	return &minioResolver{cfg: cfg, client: minioClient}, nil
}

func (s *minioResolver) Get(ctx context.Context, fileRef string, dst io.Writer) error {
	object, err := s.client.GetObject(ctx, s.cfg.bucket, fileRef, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer object.Close()

	// GetObject is lazy: Stat forces the first roundtrip so a missing key
	// fails here instead of on the first read.
	if _, err := object.Stat(); err != nil {
		return err
	}

	_, err = io.Copy(dst, object)
	return err
}

func (s *minioResolver) Type() string {
	return "minio"
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		c.bucket = bucket
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}
