// Package upload implements optimistic receipt uploads: a placeholder
// record appears in the store before the network round trip, then gets
// resolved into the server record or removed on failure.
package upload

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"scontrino/internal/api"
	"scontrino/internal/core"
	"scontrino/internal/log"
	"scontrino/internal/store"
)

// DuplicateReceiptNotice is shown when the backend rejects an upload as a
// duplicate of an existing receipt.
const DuplicateReceiptNotice = "The receipt already exists."

// UploadFailedNotice is shown when at least one file in a batch failed
// for a reason other than being a duplicate.
const UploadFailedNotice = "Some receipts failed to upload."

// Notifier receives user-facing notices.
type Notifier interface {
	Notify(msg string)
}

// ProgressFunc reports sequential upload progress after each file settles.
type ProgressFunc func(done, total int, filename string)

// File is one upload candidate.
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// Uploader pushes files to the backend while keeping the receipt
// collection optimistically up to date.
type Uploader struct {
	client   *api.Client
	store    *store.Store
	logger   *log.Logger
	notifier Notifier
	now      func() time.Time
}

func New(client *api.Client, st *store.Store, logger *log.Logger, notifier Notifier) *Uploader {
	return &Uploader{
		client:   client,
		store:    st,
		logger:   logger.WithComponent(log.ComponentUpload),
		notifier: notifier,
		now:      time.Now,
	}
}

// placeholder builds the optimistic record for a file. Its id is the
// filename hash, so re-uploading the same filename before the first
// upload resolves reuses the same slot.
func (u *Uploader) placeholder(f File) core.Receipt {
	return core.Receipt{
		ID:           int64(core.NameHash(f.Name)),
		CreatedAt:    float64(u.now().UnixMilli()) / 1000,
		ContentType:  f.ContentType,
		IsUploading:  true,
		OCRMetadata:  map[string]float64{},
		Transactions: []core.Transaction{},
	}
}

// stage puts every file's placeholder in the store before any network
// round trip, so the whole batch shows as pending at once.
func (u *Uploader) stage(files []File) []core.Receipt {
	phs := make([]core.Receipt, len(files))
	for i, f := range files {
		phs[i] = u.placeholder(f)
	}
	u.store.Receipts.UpsertFront(phs...)
	return phs
}

// resolve runs the round trip for one staged placeholder. Every outcome
// removes or replaces the placeholder; it never outlives the batch.
func (u *Uploader) resolve(ctx context.Context, f File, ph core.Receipt) error {
	saved, err := u.client.UploadReceipt(ctx, f.Name, f.ContentType, f.Content)
	if err != nil {
		u.store.Receipts.Remove(ph.ID)
		if api.IsCode(err, api.CodeDuplicateReceipt) {
			u.notifier.Notify(DuplicateReceiptNotice)
			u.logger.Info("duplicate receipt rejected", log.FieldFilename, f.Name)
			return err
		}
		u.logger.Error("upload failed",
			log.FieldFilename, f.Name,
			log.FieldError, err.Error())
		return err
	}

	u.store.Receipts.Replace(ph.ID, saved)
	u.logger.Info("uploaded receipt",
		log.FieldFilename, f.Name,
		log.FieldEntityID, saved.ID)
	return nil
}

// Upload stages the whole batch, then pushes all files concurrently.
// Each file settles independently; the first error is returned after
// every upload has finished.
func (u *Uploader) Upload(ctx context.Context, files []File) error {
	phs := u.stage(files)
	errs := make([]error, len(files))
	var g errgroup.Group
	for i := range files {
		i := i
		g.Go(func() error {
			errs[i] = u.resolve(ctx, files[i], phs[i])
			return errs[i]
		})
	}
	_ = g.Wait()
	return u.settle(errs)
}

// UploadSequential stages the whole batch, then pushes files one at a
// time in input order, calling progress after each settles. Used when
// the caller wants a meaningful progress readout; a failed file does
// not stop the rest.
func (u *Uploader) UploadSequential(ctx context.Context, files []File, progress ProgressFunc) error {
	phs := u.stage(files)
	errs := make([]error, len(files))
	for i, f := range files {
		errs[i] = u.resolve(ctx, f, phs[i])
		if progress != nil {
			progress(i+1, len(files), f.Name)
		}
	}
	return u.settle(errs)
}

// settle reduces per-file outcomes to the first error. Duplicates were
// already surfaced file by file in resolve; anything else gets the
// generic failure notice, once per batch.
func (u *Uploader) settle(errs []error) error {
	var first error
	failures := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		if !api.IsCode(err, api.CodeDuplicateReceipt) {
			failures++
		}
	}
	if failures > 0 {
		u.notifier.Notify(UploadFailedNotice)
	}
	return first
}
