package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config contains minimal configuration for creating an S3 client.
// Values are optional and will fall back to the standard AWS config/credential chain.
type S3Config struct {
	Region  string
	Profile string
	// UsePathStyle forces path-style addressing (useful for some S3-compatible providers).
	UsePathStyle bool
	// Endpoint overrides the service URL, e.g. for MinIO.
	Endpoint string
}

// S3 wraps the AWS SDK for Go v2 S3 client with the calls the archive needs.
type S3 struct {
	client *s3.Client
}

// NewS3 creates a new S3 wrapper using the default AWS configuration chain,
// with optional overrides from S3Config.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: c}, nil
}

// Put uploads an object to the given bucket/key.
func (s *S3) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	_, err := s.client.PutObject(ctx, in)
	return err
}

// Size returns the stored object size, or -1 if the object does not exist.
func (s *S3) Size(ctx context.Context, bucket, key string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return aws.ToInt64(out.ContentLength), nil
	}
	if isNotFound(err) {
		return -1, nil
	}
	return 0, err
}

func isNotFound(err error) bool {
	var respErr *http.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return true
	}
	return false
}

// ObjectStore is the subset of S3 used by Archive.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	Size(ctx context.Context, bucket, key string) (int64, error)
}

// Archive copies finished topic artifacts to {prefix}/{topic}/{file name}.
type Archive struct {
	Store  ObjectStore
	Bucket string
	Prefix string
}

// Key is the object key of one archived file.
func (a *Archive) Key(topic, file string) string {
	return path.Join(a.Prefix, topic, filepath.Base(file))
}

// Archive uploads each file. Files already stored with the same size are
// skipped. Missing local files are an error.
func (a *Archive) Archive(ctx context.Context, topic string, files ...string) error {
	for _, file := range files {
		if err := a.archiveFile(ctx, topic, file); err != nil {
			return fmt.Errorf("archive %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

func (a *Archive) archiveFile(ctx context.Context, topic, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	key := a.Key(topic, file)
	size, err := a.Store.Size(ctx, a.Bucket, key)
	if err != nil {
		return err
	}
	if size == info.Size() {
		log.Printf("⏭️  s3://%s/%s already archived", a.Bucket, key)
		return nil
	}

	if err := a.Store.Put(ctx, a.Bucket, key, f, mime.TypeByExtension(filepath.Ext(file))); err != nil {
		return err
	}
	log.Printf("☁️  Archived s3://%s/%s", a.Bucket, key)
	return nil
}
