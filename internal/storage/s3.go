package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/photon/backend/internal/config"
)

// S3Backend persists image bytes in an S3-compatible object store.
// References are folder-prefixed object keys.
type S3Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	folder   string
	baseURL  string
}

// NewS3Backend configures an object store client targeting the provided bucket.
func NewS3Backend(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Backend, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Backend{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		folder:   normalizeFolder(cfg.Folder),
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Store uploads the stream to the configured bucket under a unique key.
func (b *S3Backend) Store(ctx context.Context, originalName, contentType string, size int64, r io.Reader) (string, error) {
	if r == nil {
		return "", ErrEmptyContent
	}

	key := b.folder + objectName(originalName)

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   manager.ReadSeekCloser(r),
		ACL:    s3types.ObjectCannedACLPublicRead,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := b.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("s3 storage: upload %s: %w", key, err)
	}

	return key, nil
}

// Delete removes the object for the given key. Empty keys are ignored and
// deleting an absent object succeeds, matching S3 semantics.
func (b *S3Backend) Delete(ctx context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return nil
	}

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("s3 storage: delete %s: %w", ref, err)
	}

	return nil
}

// URL returns a public location for the stored object.
func (b *S3Backend) URL(ref string) string {
	if ref == "" {
		return ""
	}
	if b.baseURL != "" {
		return b.baseURL + "/" + ref
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", b.bucket, ref)
}

func normalizeFolder(folder string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}

var _ Backend = (*S3Backend)(nil)
