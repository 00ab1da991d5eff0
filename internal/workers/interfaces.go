// Package workers provides abstractions for managing and running
// background workers in the application.
// It defines the Worker interface and a Workers aggregate that allows
// starting and stopping multiple workers in a unified way.
package workers

import "context"

// Worker is the interface that must be implemented by any background worker.
//
// Start must not block: implementations spawn their own goroutine and keep
// running until ctx is cancelled or Stop is called. Stop blocks until the
// goroutine has exited and is safe to call on a worker that never started.
//
// Example implementation:
//
//	type MyWorker struct{ cancel context.CancelFunc }
//
//	func (w *MyWorker) Start(ctx context.Context) {
//	    ctx, w.cancel = context.WithCancel(ctx)
//	    go process(ctx)
//	}
type Worker interface {
	Start(ctx context.Context)
	Stop()
}

// Cleaner is a collection whose expired tombstones can be purged.
// store.VersionedStore satisfies it.
type Cleaner interface {
	Collection() string
	Cleanup(ctx context.Context, retainDays int) (int, error)
}
