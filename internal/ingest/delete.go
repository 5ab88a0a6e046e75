package ingest

import (
	"context"

	"github.com/msgstore/msgstore/internal/core"
)

// Delete mirrors insertion reversed (§4.3): remove from the engine, then
// the durable backend, then the file store, incrementing the explicit
// deletion counter by exactly one regardless of payload location.
func (w *Writer) Delete(ctx context.Context, id core.Id) error {
	if err := w.Store.Del(id); err != nil {
		return &Error{Kind: KindStore, Op: "Delete", Cause: err}
	}
	if err := w.Backend.Del(ctx, id); err != nil {
		return &Error{Kind: KindBackend, Op: "Delete", Cause: err}
	}
	if w.Files != nil {
		if err := w.Files.Rm(id); err != nil {
			return &Error{Kind: KindFileStore, Op: "Delete", Cause: err}
		}
	}
	w.Stats.IncDeleted()
	if w.Notifier != nil {
		w.Notifier.NotifyDelete(id)
	}
	return nil
}

// DeleteGroup removes every message at priority in one operation,
// incrementing the deletion counter by exactly one for the whole call
// rather than once per message (§9 open question 2). A call on an absent
// or empty group removes nothing and does not increment the counter.
func (w *Writer) DeleteGroup(ctx context.Context, priority uint32) error {
	removed := w.Store.DelGroup(priority)
	for _, id := range removed {
		if err := w.Backend.Del(ctx, id); err != nil {
			return &Error{Kind: KindBackend, Op: "DeleteGroup", Cause: err}
		}
		if w.Files != nil {
			if err := w.Files.Rm(id); err != nil {
				return &Error{Kind: KindFileStore, Op: "DeleteGroup", Cause: err}
			}
		}
		if w.Notifier != nil {
			w.Notifier.NotifyDelete(id)
		}
	}
	if len(removed) > 0 {
		w.Stats.IncDeleted()
	}
	return nil
}

// Replay enumerates the durable backend and the file store once at
// startup, rebuilding the engine's in-memory index. Backend/file-store
// discrepancies are tolerated per §4.3; the file-store index remains the
// ground truth for body presence.
func (w *Writer) Replay(ctx context.Context) error {
	records, err := w.Backend.Fetch(ctx)
	if err != nil {
		return &Error{Kind: KindBackend, Op: "Replay", Cause: err}
	}
	for _, rec := range records {
		if _, err := w.Store.AddWithId(rec.Id, rec.ByteSize); err != nil {
			w.Logger.Warn("skipping record during replay", "id", rec.Id.String(), "error", err)
		}
	}
	w.Logger.Info("replay complete", "records", len(records))
	return nil
}
