package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/config"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
)

type fakeS3 struct {
	putCalls    int
	putInput    *s3.PutObjectInput
	putBodies   [][]byte
	putErrs     []error
	getOut      *s3.GetObjectOutput
	getErr      error
	headErr     error
	deleteCalls int
	deleteErr   error
	copyInput   *s3.CopyObjectInput
	copyErr     error
	restoreIn   *s3.RestoreObjectInput
	listPages   []*s3.ListObjectsV2Output
	listCall    int
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putCalls++
	f.putInput = in
	body, _ := io.ReadAll(in.Body)
	f.putBodies = append(f.putBodies, body)
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &s3.PutObjectOutput{ETag: aws.String(`"etag-1"`)}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(42), ETag: aws.String(`"e"`)}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleteCalls++
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) CopyObject(ctx context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.copyInput = in
	if f.copyErr != nil {
		return nil, f.copyErr
	}
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) RestoreObject(ctx context.Context, in *s3.RestoreObjectInput, _ ...func(*s3.Options)) (*s3.RestoreObjectOutput, error) {
	f.restoreIn = in
	return &s3.RestoreObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := f.listPages[f.listCall]
	f.listCall++
	return out, nil
}

func testStore(api s3API) *S3Store {
	return NewS3Store(api, config.BlobConfig{
		Bucket:         "evidence-bucket",
		EncryptionMode: "AES256",
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
	})
}

func TestS3StorePutSetsEncryptionAndClass(t *testing.T) {
	api := &fakeS3{}
	store := testStore(api)

	info, err := store.Put(context.Background(), PutInput{
		Key:          "evidence/C1/x/photo.jpg",
		Body:         bytes.NewReader([]byte("jpeg")),
		SizeBytes:    4,
		ContentType:  "image/jpeg",
		StorageClass: models.StorageClassInfrequent,
		Metadata:     map[string]string{"case-id": "C1"},
		Tags:         map[string]string{"evidence-type": "PHOTO"},
	})
	require.NoError(t, err)
	assert.Equal(t, `"etag-1"`, info.ETag)
	assert.Equal(t, string(types.ServerSideEncryptionAes256), info.EncryptionMode)

	require.NotNil(t, api.putInput)
	assert.Equal(t, types.ServerSideEncryptionAes256, api.putInput.ServerSideEncryption)
	assert.Equal(t, types.StorageClass("STANDARD_IA"), api.putInput.StorageClass)
	assert.Equal(t, "evidence-type=PHOTO", aws.ToString(api.putInput.Tagging))
}

func TestS3StorePutRetriesTransient(t *testing.T) {
	api := &fakeS3{putErrs: []error{fmt.Errorf("connection reset"), fmt.Errorf("timeout"), nil}}
	store := testStore(api)

	_, err := store.Put(context.Background(), PutInput{
		Key:  "k",
		Body: bytes.NewReader(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, api.putCalls)
}

func TestS3StorePutRewindsBodyBetweenAttempts(t *testing.T) {
	payload := []byte("body camera footage")
	api := &fakeS3{putErrs: []error{fmt.Errorf("connection reset"), nil}}
	store := testStore(api)

	_, err := store.Put(context.Background(), PutInput{
		Key:       "evidence/C1/x/clip.mp4",
		Body:      bytes.NewReader(payload),
		SizeBytes: int64(len(payload)),
	})
	require.NoError(t, err)
	require.Len(t, api.putBodies, 2)
	assert.Equal(t, payload, api.putBodies[0])
	assert.Equal(t, payload, api.putBodies[1])
}

func TestS3StoreGetMapsNoSuchKey(t *testing.T) {
	api := &fakeS3{getErr: &types.NoSuchKey{}}
	store := testStore(api)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	assert.False(t, appErrors.Retryable(err))
}

func TestS3StoreGetMapsTransient(t *testing.T) {
	api := &fakeS3{getErr: fmt.Errorf("503 slow down")}
	store := testStore(api)

	_, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBackendUnavailable))
	assert.True(t, appErrors.Retryable(err))
}

func TestS3StoreHeadMapsNotFound(t *testing.T) {
	api := &fakeS3{headErr: &types.NotFound{}}
	store := testStore(api)

	_, err := store.Head(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestS3StoreCopySetsTargetClassAndTags(t *testing.T) {
	api := &fakeS3{}
	store := testStore(api)

	err := store.Copy(context.Background(), "evidence/C1/x/f.jpg", "archive/evidence/C1/x/f.jpg",
		models.StorageClassArchive, map[string]string{"retention-days": "2555"})
	require.NoError(t, err)
	require.NotNil(t, api.copyInput)
	assert.Equal(t, "evidence-bucket/evidence/C1/x/f.jpg", aws.ToString(api.copyInput.CopySource))
	assert.Equal(t, types.StorageClass("DEEP_ARCHIVE"), api.copyInput.StorageClass)
	assert.Equal(t, types.TaggingDirectiveReplace, api.copyInput.TaggingDirective)
}

func TestS3StoreRestoreRequest(t *testing.T) {
	api := &fakeS3{}
	store := testStore(api)

	require.NoError(t, store.Restore(context.Background(), "archive/evidence/C1/x/f.jpg", 7, "Standard"))
	require.NotNil(t, api.restoreIn)
	assert.Equal(t, int32(7), aws.ToInt32(api.restoreIn.RestoreRequest.Days))
	assert.Equal(t, types.TierStandard, api.restoreIn.RestoreRequest.GlacierJobParameters.Tier)
}

func TestS3StoreListFollowsPagination(t *testing.T) {
	api := &fakeS3{listPages: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{{Key: aws.String("evidence/C1/a")}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("t1"),
		},
		{
			Contents:    []types.Object{{Key: aws.String("evidence/C1/b")}},
			IsTruncated: aws.Bool(false),
		},
	}}
	store := testStore(api)

	keys, err := store.List(context.Background(), "evidence/C1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"evidence/C1/a", "evidence/C1/b"}, keys)
	assert.Equal(t, 2, api.listCall)
}

type fakePresignAPI struct {
	getIn  *s3.GetObjectInput
	putIn  *s3.PutObjectInput
	getErr error
}

func (f *fakePresignAPI) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.getIn = in
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/get"}, nil
}

func (f *fakePresignAPI) PresignPutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.putIn = in
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/put"}, nil
}

func TestPresignGetBindsKey(t *testing.T) {
	api := &fakePresignAPI{}
	p := newS3PresignerWithAPI(api, "evidence-bucket")

	url, err := p.PresignGet(context.Background(), "evidence/C1/x/f.jpg", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/get", url)
	assert.Equal(t, "evidence/C1/x/f.jpg", aws.ToString(api.getIn.Key))
}

func TestPresignPutPinsContentType(t *testing.T) {
	api := &fakePresignAPI{}
	p := newS3PresignerWithAPI(api, "evidence-bucket")

	url, err := p.PresignPut(context.Background(), "evidence/C1/y/f.jpg", "image/jpeg",
		map[string]string{"uploader": "officer-7"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/put", url)
	assert.Equal(t, "image/jpeg", aws.ToString(api.putIn.ContentType))
	assert.Equal(t, "officer-7", api.putIn.Metadata["uploader"])
}

func TestPresignGetMapsBackendError(t *testing.T) {
	api := &fakePresignAPI{getErr: fmt.Errorf("dial tcp: refused")}
	p := newS3PresignerWithAPI(api, "evidence-bucket")

	_, err := p.PresignGet(context.Background(), "k", time.Minute)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBackendUnavailable))
}
