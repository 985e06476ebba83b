package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/nodulefed/blobstore"
)

// Store writes blobs to a MinIO or other S3-compatible bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore returns a store writing under rootPrefix in bucket.
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(rootPrefix, "/")}
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
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &minioBlob{client: s.client, bucket: s.bucket, key: key, size: info.Size}, nil
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// Create streams the blob through a pipe into a multipart upload.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	blob := &minioWritableBlob{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, key, pr, -1, minio.PutObjectOptions{})
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
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.listPrefix(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(strings.TrimPrefix(obj.Key, s.prefix), "/")
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveAll deletes every object under prefix with batched RemoveObjects calls.
func (s *Store) RemoveAll(ctx context.Context, prefix string) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.listPrefix(prefix),
		Recursive: true,
	})

	var errs []error
	for res := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if res.Err != nil && !isNotFound(res.Err) {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

type minioBlob struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (b *minioBlob) Size() int64 { return b.size }

func (b *minioBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	end := min(off+int64(len(p)), b.size) - 1

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}
	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	n, err := io.ReadFull(obj, p[:end-off+1])
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (b *minioBlob) Close() error { return nil }

type minioWritableBlob struct {
	pw       *io.PipeWriter
	done     chan error
	finished atomic.Bool
}

func (b *minioWritableBlob) Write(p []byte) (int, error) {
	return b.pw.Write(p)
}

func (b *minioWritableBlob) Close() error {
	if !b.finished.CompareAndSwap(false, true) {
		return io.ErrClosedPipe
	}
	if err := b.pw.Close(); err != nil {
		return err
	}
	return <-b.done
}

func (b *minioWritableBlob) Abort() error {
	if !b.finished.CompareAndSwap(false, true) {
		return nil
	}
	_ = b.pw.CloseWithError(errors.New("upload aborted"))
	<-b.done
	return nil
}
