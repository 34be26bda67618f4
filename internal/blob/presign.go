package blob

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
)

// Presigner mints time-bounded capability URLs for direct client transfer,
// so artifact bytes never route through this process.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignPut(ctx context.Context, key, contentType string, metadata map[string]string, ttl time.Duration) (string, error)
}

// presignAPI is the slice of s3.PresignClient used; tests substitute it.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Presigner implements Presigner over the SDK presign client.
type S3Presigner struct {
	client presignAPI
	bucket string
}

// NewS3Presigner builds a presigner for the bucket.
func NewS3Presigner(client *s3.Client, bucket string) *S3Presigner {
	return &S3Presigner{client: s3.NewPresignClient(client), bucket: bucket}
}

func newS3PresignerWithAPI(client presignAPI, bucket string) *S3Presigner {
	return &S3Presigner{client: client, bucket: bucket}
}

// PresignGet returns a download URL valid for ttl, bound to exactly one key.
func (p *S3Presigner) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code,
			appErrors.ErrBackendUnavailable.Status, "failed to presign download")
	}
	return req.URL, nil
}

// PresignPut returns an upload URL pinned to the key, content type and
// metadata; a client sending different values is rejected by the backend.
func (p *S3Presigner) PresignPut(ctx context.Context, key, contentType string, metadata map[string]string, ttl time.Duration) (string, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code,
			appErrors.ErrBackendUnavailable.Status, "failed to presign upload")
	}
	return req.URL, nil
}
