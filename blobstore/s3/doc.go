// Package s3 writes federation output to Amazon S3.
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("luna16/federation"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
// Credentials come from the default AWS chain. [WithEndpoint] and
// [WithPathStyle] point the store at S3-compatible services.
package s3
