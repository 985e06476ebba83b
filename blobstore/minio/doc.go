// Package minio writes federation output to MinIO and other S3-compatible
// servers (Ceph, Garage, SeaweedFS) through the MinIO Go client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := minioblob.NewStore(client, "luna16", "federation/")
//
// Object stores have no directories, so the allocator's layout reset only
// deletes objects under the prefix.
package minio
