// Package blobstore abstracts where federation output is written.
//
// A [Store] holds named blobs addressed by slash-separated relative paths.
// Implementations:
//
//   - [LocalStore]: files under a root directory; reads are memory mapped.
//   - [MemoryStore]: in-process map, for tests and dry runs.
//   - blobstore/minio: MinIO and other S3-compatible servers via minio-go.
//   - blobstore/s3: Amazon S3 via aws-sdk-go-v2.
//
// Stores may implement [Remover] to drop a prefix in one call and [DirMaker]
// when empty directories are meaningful. The package-level [RemoveAll] and
// [MkdirAll] helpers fall back to List+Delete and to a no-op respectively.
package blobstore
