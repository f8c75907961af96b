package transfer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Deleter queues attachments removed during an edit and deletes their
// documents when the edit is saved.
type Deleter struct {
	remote Remote

	mu    sync.Mutex
	queue []AttachedFile
}

func NewDeleter(remote Remote) *Deleter {
	return &Deleter{remote: remote}
}

// Add queues a file. A nil file is ignored.
func (d *Deleter) Add(f *AttachedFile) {
	if f == nil {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, *f)
	d.mu.Unlock()
}

// Pending returns a copy of the queue
func (d *Deleter) Pending() []AttachedFile {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]AttachedFile(nil), d.queue...)
}

// DeleteAll deletes every queued document in parallel. Entries without a
// document id are dropped without a call. Deleted entries leave the queue;
// on failure the rest stay queued for a retry and the first error is
// returned.
func (d *Deleter) DeleteAll(ctx context.Context) error {
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	deleted := make([]bool, len(batch))
	var g errgroup.Group

	for i, f := range batch {
		if f.ContentDocumentID == "" {
			deleted[i] = true
			continue
		}
		g.Go(func() error {
			if err := d.remote.DeleteDocument(ctx, f.ContentDocumentID); err != nil {
				return err
			}
			deleted[i] = true
			return nil
		})
	}
	err := g.Wait()

	if err != nil {
		var failed []AttachedFile
		for i, f := range batch {
			if !deleted[i] {
				failed = append(failed, f)
			}
		}
		d.mu.Lock()
		d.queue = append(failed, d.queue...)
		d.mu.Unlock()
	}
	return err
}
