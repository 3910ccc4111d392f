package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"notes-go/internal/notes"
)

// defaultS3Timeout bounds every request made by S3Storage.
const defaultS3Timeout = 30 * time.Second

// s3API is the subset of *s3.Client used by S3Storage.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// uploaderAPI is the subset of *manager.Uploader used by S3Storage.
type uploaderAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Options configures an S3Storage.
type S3Options struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the S3 endpoint (e.g. MinIO). Path-style addressing
	// is used when set.
	Endpoint string
	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Storage stores each key as one object in an S3 bucket:
//
//	s3://<bucket>/<prefix>/<key>
type S3Storage struct {
	name     string
	bucket   string
	prefix   string
	client   s3API
	uploader uploaderAPI
	timeout  time.Duration
}

// NewS3Storage loads the AWS configuration and creates an S3-backed storage.
func NewS3Storage(ctx context.Context, name string, opts S3Options) (*S3Storage, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		provider := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(provider))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3StorageWithClients(name, opts.Bucket, opts.Prefix, client, manager.NewUploader(client)), nil
}

func newS3StorageWithClients(name, bucket, prefix string, client s3API, uploader uploaderAPI) *S3Storage {
	return &S3Storage{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: uploader,
		timeout:  defaultS3Timeout,
	}
}

// Get downloads the object for key and writes it to w.
func (s *S3Storage) Get(key string, w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("key %q: %w", key, notes.ErrNotFound)
		}
		return fmt.Errorf("getting s3 object: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading s3 object: %w", err)
	}
	return nil
}

// Put uploads size bytes from r as the object for key, replacing any prior
// version.
func (s *S3Storage) Put(key string, r io.Reader, size int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("uploading s3 object: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the bucket exists and is reachable.
func (s *S3Storage) ValidateSetup() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %q not accessible: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Storage) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

var _ notes.Storage = (*S3Storage)(nil)
