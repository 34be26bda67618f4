package blob

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/config"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
)

// s3API is the slice of the S3 client the store uses; tests substitute it.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	RestoreObject(ctx context.Context, in *s3.RestoreObjectInput, optFns ...func(*s3.Options)) (*s3.RestoreObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store implements Store against an S3-compatible backend. The client is
// built once at process start and injected; no package-level state.
type S3Store struct {
	client     s3API
	bucket     string
	sse        types.ServerSideEncryption
	maxRetries int
	baseDelay  time.Duration
}

// NewS3Client builds the SDK client from config. A non-empty Endpoint
// targets S3-compatible stores (MinIO) the way the development stack runs.
func NewS3Client(ctx context.Context, cfg config.BlobConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Store wires the adapter around an existing client.
func NewS3Store(client s3API, cfg config.BlobConfig) *S3Store {
	sse := types.ServerSideEncryptionAes256
	if strings.EqualFold(cfg.EncryptionMode, "aws:kms") {
		sse = types.ServerSideEncryptionAwsKms
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	return &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		sse:        sse,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Put stores an object with server-side encryption. Keys are unique per
// upload so overwrite is idempotent; the body is rewound before every
// attempt so a retried write transmits the full payload.
func (s *S3Store) Put(ctx context.Context, in PutInput) (*StoredInfo, error) {
	input := &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(in.Key),
		Body:                 in.Body,
		ContentType:          aws.String(in.ContentType),
		ContentLength:        aws.Int64(in.SizeBytes),
		ServerSideEncryption: s.sse,
		StorageClass:         types.StorageClass(in.StorageClass),
		Metadata:             in.Metadata,
	}
	if len(in.Tags) > 0 {
		input.Tagging = aws.String(encodeTags(in.Tags))
	}

	var out *s3.PutObjectOutput
	err := s.withRetry(ctx, func(ctx context.Context) error {
		if _, err := in.Body.Seek(0, io.SeekStart); err != nil {
			return err
		}
		var err error
		out, err = s.client.PutObject(ctx, input)
		return err
	})
	if err != nil {
		return nil, mapErr(err, "store object")
	}
	return &StoredInfo{
		ETag:           aws.ToString(out.ETag),
		EncryptionMode: string(s.sse),
	}, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	var out *s3.GetObjectOutput
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return nil, mapErr(err, "fetch object")
	}
	return &Object{
		Body:         out.Body,
		ContentType:  aws.ToString(out.ContentType),
		SizeBytes:    aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		StorageClass: models.StorageClass(out.StorageClass),
		Metadata:     out.Metadata,
	}, nil
}

func (s *S3Store) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	var out *s3.HeadObjectOutput
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return nil, mapErr(err, "head object")
	}
	return &ObjectInfo{
		ContentType:  aws.ToString(out.ContentType),
		SizeBytes:    aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		StorageClass: models.StorageClass(out.StorageClass),
		Metadata:     out.Metadata,
	}, nil
}

// Delete removes the live object. Deleting a missing key is not an error
// at the backend, matching the idempotent-delete contract.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return mapErr(err, "delete object")
	}
	return nil
}

// Copy duplicates src to dst in the target storage class, replacing tags.
func (s *S3Store) Copy(ctx context.Context, srcKey, dstKey string, class models.StorageClass, tags map[string]string) error {
	input := &s3.CopyObjectInput{
		Bucket:               aws.String(s.bucket),
		CopySource:           aws.String(s.bucket + "/" + srcKey),
		Key:                  aws.String(dstKey),
		StorageClass:         types.StorageClass(class),
		ServerSideEncryption: s.sse,
	}
	if len(tags) > 0 {
		input.Tagging = aws.String(encodeTags(tags))
		input.TaggingDirective = types.TaggingDirectiveReplace
	}
	err := s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.client.CopyObject(ctx, input)
		return err
	})
	if err != nil {
		return mapErr(err, "copy object")
	}
	return nil
}

// Restore requests reactivation of an archived object for a bounded number
// of days. The backend performs the thaw asynchronously; success here only
// means the request was accepted.
func (s *S3Store) Restore(ctx context.Context, key string, days int, tier string) error {
	_, err := s.client.RestoreObject(ctx, &s3.RestoreObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		RestoreRequest: &types.RestoreRequest{
			Days: aws.Int32(int32(days)),
			GlacierJobParameters: &types.GlacierJobParameters{
				Tier: types.Tier(tier),
			},
		},
	})
	if err != nil {
		return mapErr(err, "restore object")
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var token *string
	for {
		var out *s3.ListObjectsV2Output
		err := s.withRetry(ctx, func(ctx context.Context) error {
			var err error
			out, err = s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(s.bucket),
				Prefix:            aws.String(prefix),
				ContinuationToken: token,
			})
			return err
		})
		if err != nil {
			return nil, mapErr(err, "list objects")
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return keys, nil
}

// withRetry runs fn with bounded exponential backoff. Only transient errors
// are retried; not-found returns immediately.
func (s *S3Store) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	delay := s.baseDelay
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if isNotFound(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	return false
}

func mapErr(err error, op string) error {
	if isNotFound(err) {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "evidence not found")
	}
	return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status,
		"failed to "+op)
}

func encodeTags(tags map[string]string) string {
	values := url.Values{}
	for k, v := range tags {
		values.Set(k, v)
	}
	return values.Encode()
}
