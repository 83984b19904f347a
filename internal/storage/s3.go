package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/notedex/notedex/internal/service"
)

// S3SourceConfig holds configuration for S3Source
type S3SourceConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	UsePathStyle    bool
}

// S3Source reads markdown documents from an S3-compatible bucket
// (e.g., MinIO, RustFS). Only .md objects under the configured prefix
// are visible.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Source creates a new S3Source with the given configuration
func NewS3Source(ctx context.Context, cfg S3SourceConfig) (*S3Source, error) {
	// Create custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(svc, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Source{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// List returns metadata for every markdown object under the prefix,
// following continuation tokens across pages.
func (s *S3Source) List(ctx context.Context) ([]service.BlobInfo, error) {
	var infos []service.BlobInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".md") {
				continue
			}
			var modified time.Time
			if obj.LastModified != nil {
				modified = obj.LastModified.UTC()
			}
			infos = append(infos, service.BlobInfo{
				Path:       key,
				ETag:       normalizeETag(aws.ToString(obj.ETag)),
				ModifiedAt: modified,
				Size:       aws.ToInt64(obj.Size),
			})
		}
	}

	return infos, nil
}

// Fetch downloads one object and returns its content with metadata.
func (s *S3Source) Fetch(ctx context.Context, path string) (*service.BlobObject, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", path, err)
	}
	defer output.Body.Close()

	body, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", path, err)
	}

	var modified time.Time
	if output.LastModified != nil {
		modified = output.LastModified.UTC()
	}

	return &service.BlobObject{
		BlobInfo: service.BlobInfo{
			Path:       path,
			ETag:       normalizeETag(aws.ToString(output.ETag)),
			ModifiedAt: modified,
			Size:       aws.ToInt64(output.ContentLength),
		},
		Content: string(body),
	}, nil
}

// normalizeETag strips the quotes S3 wraps around ETag values so stored
// and listed tokens compare equal.
func normalizeETag(etag string) string {
	return strings.Trim(etag, `"`)
}
