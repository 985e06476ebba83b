// Package fs abstracts the local file system so output sinks can be tested
// against injected I/O failures.
//
// Production code uses [Default]. Tests wrap it in a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("client1/", fs.Fault{FailOnOpen: true})
//	store := blobstore.NewLocalStore(root, blobstore.WithFileSystem(ffs))
//
// Operations take no context; local syscalls are not interruptible. Remote
// sinks live in package blobstore and do take one.
package fs
