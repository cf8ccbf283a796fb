// Package fs provides the filesystem abstraction used by the segment
// repository.
//
//   - [FileSystem]: open, remove, rename, stat, list and lock.
//   - [LocalFS]: production implementation on top of package os.
//   - [FaultyFS]: wrapper that injects write, sync, rename and open errors
//     into tests.
//
// Production code uses fs.Default. Tests swap in a FaultyFS:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("segments/0000000001", fs.Fault{FailOnSync: true})
//
// Operations take no context. Local filesystem calls are not
// interruptible; remote payloads go through blobstore instead.
package fs
