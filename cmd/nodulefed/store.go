package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/nodulefed/blobstore"
	"github.com/hupe1980/nodulefed/blobstore/minio"
	"github.com/hupe1980/nodulefed/blobstore/s3"
)

// storeFlags selects the output sink. -out is a local directory,
// s3://bucket/prefix or minio://bucket/prefix.
type storeFlags struct {
	out            string
	region         string
	endpoint       string
	pathStyle      bool
	minioEndpoint  string
	minioAccessKey string
	minioSecretKey string
	minioSecure    bool
}

func (s *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.out, "out", "federated", "output: directory, s3://bucket/prefix or minio://bucket/prefix")
	fs.StringVar(&s.region, "s3-region", "", "S3 region; defaults to the AWS environment")
	fs.StringVar(&s.endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	fs.BoolVar(&s.pathStyle, "s3-path-style", false, "use path-style S3 addressing")
	fs.StringVar(&s.minioEndpoint, "minio-endpoint", envOr("NODULEFED_MINIO_ENDPOINT", "localhost:9000"), "MinIO host:port")
	fs.StringVar(&s.minioAccessKey, "minio-access-key", os.Getenv("NODULEFED_MINIO_ACCESS_KEY"), "MinIO access key")
	fs.StringVar(&s.minioSecretKey, "minio-secret-key", os.Getenv("NODULEFED_MINIO_SECRET_KEY"), "MinIO secret key")
	fs.BoolVar(&s.minioSecure, "minio-secure", false, "connect to MinIO over TLS")
}

func (s *storeFlags) open(ctx context.Context) (blobstore.Store, error) {
	scheme, bucket, prefix, err := parseOut(s.out)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "s3":
		var opts []s3.Option
		opts = append(opts, s3.WithPrefix(prefix), s3.WithPathStyle(s.pathStyle))
		if s.region != "" {
			opts = append(opts, s3.WithRegion(s.region))
		}
		if s.endpoint != "" {
			opts = append(opts, s3.WithEndpoint(s.endpoint))
		}
		store, err := s3.New(ctx, bucket, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "minio":
		client, err := miniogo.New(s.minioEndpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(s.minioAccessKey, s.minioSecretKey, ""),
			Secure: s.minioSecure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minio.NewStore(client, bucket, prefix), nil
	default:
		return blobstore.NewLocalStore(s.out), nil
	}
}

// parseOut splits an object-store URL into scheme, bucket and prefix.
// Anything without a known scheme is a local path.
func parseOut(out string) (scheme, bucket, prefix string, err error) {
	if !strings.HasPrefix(out, "s3://") && !strings.HasPrefix(out, "minio://") {
		return "file", "", "", nil
	}
	u, err := url.Parse(out)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid -out %q: %w", out, err)
	}
	if u.Host == "" {
		return "", "", "", fmt.Errorf("invalid -out %q: missing bucket", out)
	}
	return u.Scheme, u.Host, strings.Trim(u.Path, "/"), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
