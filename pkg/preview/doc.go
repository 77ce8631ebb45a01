// Package preview manages the preview resources of staged images.
//
// A preview handle is a revocable URL that lets a staged image be displayed
// without re-reading its bytes. The Manager allocates handles through a
// pluggable Allocator and guarantees that every handle is revoked exactly
// once: Release is idempotent, and releasing one handle never touches
// another.
//
// # Backends
//
//   - MemoryAllocator keeps bytes in process memory and serves them over HTTP.
//   - DiskAllocator writes bytes to a directory and serves them over HTTP.
//   - S3Allocator puts objects in a bucket and hands out presigned GET URLs.
//
// Mount the HTTP-serving backends on your router:
//
//	alloc := preview.NewMemoryAllocator("/previews")
//	r.Handle("/previews/*", http.StripPrefix("/previews", alloc.Handler()))
//
//	mgr := preview.NewManager(alloc)
//	h, err := mgr.Acquire(ctx, file)
//	if err != nil {
//	    return err
//	}
//	defer mgr.Release(ctx, h)
package preview
