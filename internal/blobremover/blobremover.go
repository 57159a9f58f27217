// Package blobremover deletes stale blobs in the background so that
// request handlers never wait on the blob store or fail because of it.
package blobremover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patric-chuzhbe/userauth/internal/blobstorage"
	"github.com/patric-chuzhbe/userauth/internal/logger"
)

// ErrQueueFull is returned by Delete when the queue has no room left.
var ErrQueueFull = errors.New("blob removal queue is full")

type blobDeleter interface {
	Delete(ctx context.Context, name string) error
}

// BlobRemover queues blob names and deletes them in batches from a
// single worker goroutine.
type BlobRemover struct {
	store                    blobDeleter
	queue                    chan string
	delayBetweenQueueFetches time.Duration
	errorChannel             chan error
	done                     chan struct{}
}

// New creates a remover over store. channelCapacity bounds the queue and
// delay is the pause between batches.
func New(
	store blobDeleter,
	channelCapacity int,
	delayBetweenQueueFetches time.Duration,
) *BlobRemover {
	if channelCapacity < 1 {
		channelCapacity = 1
	}
	if delayBetweenQueueFetches <= 0 {
		delayBetweenQueueFetches = time.Second
	}
	return &BlobRemover{
		store:                    store,
		queue:                    make(chan string, channelCapacity),
		delayBetweenQueueFetches: delayBetweenQueueFetches,
		errorChannel:             make(chan error, channelCapacity),
		done:                     make(chan struct{}),
	}
}

// Delete schedules the named blob for removal. It never blocks.
func (r *BlobRemover) Delete(_ context.Context, name string) error {
	select {
	case r.queue <- name:
		return nil
	default:
		return ErrQueueFull
	}
}

// ListenErrors hands every worker error to callback.
func (r *BlobRemover) ListenErrors(callback func(error)) {
	go func() {
		for err := range r.errorChannel {
			callback(err)
		}
	}()
}

// Run starts the worker. Whatever is queued when ctx is cancelled is
// still removed before Done is closed.
func (r *BlobRemover) Run(ctx context.Context) {
	go func() {
		defer close(r.done)
		defer close(r.errorChannel)

		ticker := time.NewTicker(r.delayBetweenQueueFetches)
		defer ticker.Stop()

		var names []string

		for {
			select {
			case name := <-r.queue:
				names = append(names, name)
			case <-ticker.C:
				names = r.removeAll(names)
			case <-ctx.Done():
				names = r.drain(names)
				r.removeAll(names)
				return
			}
		}
	}()
}

// Done is closed once the worker started by Run has exited.
func (r *BlobRemover) Done() <-chan struct{} {
	return r.done
}

func (r *BlobRemover) drain(names []string) []string {
	for {
		select {
		case name := <-r.queue:
			names = append(names, name)
		default:
			return names
		}
	}
}

func (r *BlobRemover) removeAll(names []string) []string {
	if len(names) == 0 {
		return names
	}

	removed := 0
	for _, name := range names {
		err := r.store.Delete(context.Background(), name)
		if errors.Is(err, blobstorage.ErrNotFound) {
			continue
		}
		if err != nil {
			r.reportError(fmt.Errorf(
				"in internal/blobremover/blobremover.go/removeAll(): error while `r.store.Delete(%q)` calling: %w",
				name,
				err,
			))
			continue
		}
		removed++
	}
	logger.Log.Infof("processed removing of %d blobs", removed)

	return nil
}

func (r *BlobRemover) reportError(err error) {
	select {
	case r.errorChannel <- err:
	default:
		logger.Log.Debugln("Dropping blob removal error: ", err)
	}
}
