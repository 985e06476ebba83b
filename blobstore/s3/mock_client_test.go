package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"
)

type MockS3Client struct {
	mock.Mock
}

var _ Client = (*MockS3Client)(nil)

func (m *MockS3Client) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectsOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func (m *MockS3Client) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.UploadPartOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CompleteMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.AbortMultipartUploadOutput)
	return out, args.Error(1)
}
