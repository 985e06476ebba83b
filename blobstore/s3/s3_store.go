package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/hupe1980/nodulefed/blobstore"
)

// Client is the subset of the S3 API the store uses. *s3.Client satisfies it.
type Client interface {
	s3.HeadObjectAPIClient
	s3.ListObjectsV2APIClient
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// UploadConfig tunes multipart uploads made by Create.
type UploadConfig struct {
	PartSize    int64
	Concurrency int
}

// DefaultUploadConfig uses 8MB parts with five concurrent uploads.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{PartSize: 8 << 20, Concurrency: 5}
}

// maxDeleteBatch is the S3 limit on keys per DeleteObjects call.
const maxDeleteBatch = 1000

type options struct {
	prefix    string
	region    string
	endpoint  string
	pathStyle bool
	upload    UploadConfig
}

// Option configures a Store.
type Option func(*options)

// WithPrefix places every key under prefix.
func WithPrefix(prefix string) Option { return func(o *options) { o.prefix = prefix } }

// WithRegion overrides the region from the environment.
func WithRegion(region string) Option { return func(o *options) { o.region = region } }

// WithEndpoint targets an S3-compatible endpoint URL.
func WithEndpoint(url string) Option { return func(o *options) { o.endpoint = url } }

// WithPathStyle enables path-style addressing.
func WithPathStyle(enabled bool) Option { return func(o *options) { o.pathStyle = enabled } }

// WithUploadConfig overrides DefaultUploadConfig.
func WithUploadConfig(cfg UploadConfig) Option { return func(o *options) { o.upload = cfg } }

// Store writes blobs to an S3 bucket.
type Store struct {
	client   Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// New builds an S3 client from the default AWS configuration chain.
func New(ctx context.Context, bucket string, optFns ...Option) (*Store, error) {
	o := options{upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&o)
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
		}
		so.UsePathStyle = o.pathStyle
	})
	return NewStore(client, bucket, o.prefix, WithUploadConfig(o.upload)), nil
}

// NewStore wraps an existing client. Only WithUploadConfig is honoured.
func NewStore(client Client, bucket, rootPrefix string, optFns ...Option) *Store {
	o := options{upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&o)
	}
	return &Store{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = o.upload.PartSize
			u.Concurrency = o.upload.Concurrency
		}),
		bucket: bucket,
		prefix: strings.Trim(rootPrefix, "/"),
	}
}

func (s *Store) key(name string) (string, error) {
	clean, err := blobstore.CleanName(name)
	if err != nil {
		return "", err
	}
	return path.Join(s.prefix, clean), nil
}

func (s *Store) listPrefix(prefix string) string {
	if s.prefix == "" {
		return prefix
	}
	return s.prefix + "/" + prefix
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey")
}

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &s3Blob{client: s.client, bucket: s.bucket, key: key, size: aws.ToInt64(head.ContentLength)}, nil
}

// Put uploads data in one request with a CRC32C checksum.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(data),
		ContentLength:     aws.Int64(int64(len(data))),
		ChecksumAlgorithm: types.ChecksumAlgorithmCrc32c,
	})
	return err
}

// Create streams the blob into a multipart upload.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	blob := &s3WritableBlob{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		_ = pr.CloseWithError(err)
		blob.done <- err
	}()

	return blob, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (s *Store) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.listPrefix(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.listKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if name := strings.TrimPrefix(strings.TrimPrefix(k, s.prefix), "/"); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveAll deletes every key under prefix in batches of up to 1000.
func (s *Store) RemoveAll(ctx context.Context, prefix string) error {
	keys, err := s.listKeys(ctx, prefix)
	if err != nil {
		return err
	}
	for len(keys) > 0 {
		n := min(len(keys), maxDeleteBatch)
		ids := make([]types.ObjectIdentifier, n)
		for i, k := range keys[:n] {
			ids[i] = types.ObjectIdentifier{Key: aws.String(k)}
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return err
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("s3: delete %s: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message))
		}
		keys = keys[n:]
	}
	return nil
}

type s3Blob struct {
	client Client
	bucket string
	key    string
	size   int64
}

func (b *s3Blob) Size() int64 { return b.size }

func (b *s3Blob) Close() error { return nil }

func (b *s3Blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	end := min(off+int64(len(p)), b.size) - 1

	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.ReadFull(resp.Body, p[:end-off+1])
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

type s3WritableBlob struct {
	pw       *io.PipeWriter
	done     chan error
	finished atomic.Bool
}

func (b *s3WritableBlob) Write(p []byte) (int, error) {
	if b.finished.Load() {
		return 0, io.ErrClosedPipe
	}
	return b.pw.Write(p)
}

func (b *s3WritableBlob) Close() error {
	if !b.finished.CompareAndSwap(false, true) {
		return io.ErrClosedPipe
	}
	if err := b.pw.Close(); err != nil {
		return err
	}
	return <-b.done
}

// Abort fails the pipe so the uploader aborts any multipart upload.
func (b *s3WritableBlob) Abort() error {
	if !b.finished.CompareAndSwap(false, true) {
		return nil
	}
	_ = b.pw.CloseWithError(errors.New("upload aborted"))
	<-b.done
	return nil
}
