// Package ingest implements the coordinated write path (C7): a streaming
// chunked ingestion parser that splits header from body, drives the store
// engine's admission decision, and commits to the durable backend and
// optional file store in the crash-safe order fixed by §4.3.
package ingest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/msgstore/msgstore/internal/backend"
	"github.com/msgstore/msgstore/internal/core"
	"github.com/msgstore/msgstore/internal/filestore"
	"github.com/msgstore/msgstore/internal/stats"
)

// Notifier is the narrow event hook the write path publishes to, kept
// independent of internal/events so this package never imports it;
// events.Bus satisfies it.
type Notifier interface {
	NotifyInsert(id core.Id)
	NotifyEvict(id core.Id)
	NotifyDelete(id core.Id)
}

// Writer ties the engine, durable backend, optional file store, and stats
// counters into the single coordinated write path.
type Writer struct {
	Store    *core.Store
	Backend  backend.Backend
	Files    *filestore.FileStore // nil when file storage is not configured
	Stats    *stats.Stats
	Notifier Notifier // nil disables event publishing
	Logger   *slog.Logger
}

// NewWriter wires the four collaborators together.
func NewWriter(store *core.Store, be backend.Backend, files *filestore.FileStore, st *stats.Stats, notifier Notifier, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Store: store, Backend: be, Files: files, Stats: st, Notifier: notifier, Logger: logger}
}

// Add parses one ingestion payload from r and commits it, in the order
// fixed by §4.3: parse headers, decide admission, evict, write the file
// (if saveToFile), then persist the backend record last.
func (w *Writer) Add(ctx context.Context, r io.Reader) (core.Id, error) {
	headerSection, firstFragment, err := readHeader(r)
	if err != nil {
		return core.Id{}, err
	}
	headers, err := parseHeaders(headerSection)
	if err != nil {
		return core.Id{}, err
	}

	saveToFile := false
	if v, ok := headers["saveToFile"]; ok && isTrue(v) {
		if w.Files == nil {
			drain(r)
			return core.Id{}, &Error{Kind: KindFileStorageNotConfigured, Op: "Add"}
		}
		saveToFile = true
	}

	priorityStr, ok := headers["priority"]
	if !ok {
		return core.Id{}, &Error{Kind: KindMissingPriority, Op: "Add"}
	}
	delete(headers, "priority")
	priority64, err := strconv.ParseUint(priorityStr, 10, 32)
	if err != nil {
		return core.Id{}, &Error{Kind: KindInvalidPriority, Op: "Add", Cause: err}
	}
	priority := uint32(priority64)

	var declaredSize uint64
	var inlineBody []byte
	var fileHeader string

	if saveToFile {
		sizeStr, ok := headers["bytesizeOverride"]
		if !ok {
			return core.Id{}, &Error{Kind: KindMissingBytesizeOverride, Op: "Add"}
		}
		declaredSize, err = strconv.ParseUint(sizeStr, 10, 64)
		if err != nil {
			return core.Id{}, &Error{Kind: KindInvalidBytesizeOverride, Op: "Add", Cause: err}
		}
		delete(headers, "bytesizeOverride")
		delete(headers, "saveToFile")
		fileHeader = reconstitute(headers)
	} else {
		var buf bytes.Buffer
		buf.Write(firstFragment)
		if _, err := io.Copy(&buf, r); err != nil {
			return core.Id{}, &Error{Kind: KindStore, Op: "Add", Cause: err}
		}
		inlineBody = buf.Bytes()
		declaredSize = uint64(len(inlineBody))
	}

	result, err := w.Store.Add(priority, declaredSize)
	if err != nil {
		return core.Id{}, classifyStoreError(err)
	}

	for _, evicted := range result.MsgsRemoved {
		if err := w.Backend.Del(ctx, evicted); err != nil {
			return core.Id{}, &Error{Kind: KindBackend, Op: "Add/evict", Cause: err}
		}
		if w.Files != nil {
			if err := w.Files.Rm(evicted); err != nil {
				return core.Id{}, &Error{Kind: KindFileStore, Op: "Add/evict", Cause: err}
			}
		}
		if w.Notifier != nil {
			w.Notifier.NotifyEvict(evicted)
		}
	}
	w.Stats.AddPruned(uint64(len(result.MsgsRemoved)))

	if saveToFile {
		if err := w.Files.Add(result.Id, firstFragment, r); err != nil {
			return core.Id{}, &Error{Kind: KindFileStore, Op: "Add/write", Cause: err}
		}
	}

	payload := inlineBody
	if saveToFile {
		payload = []byte(fileHeader)
	}
	if err := w.Backend.Add(ctx, result.Id, payload, declaredSize); err != nil {
		return core.Id{}, &Error{Kind: KindBackend, Op: "Add/commit", Cause: err}
	}

	w.Stats.IncInserted()
	if w.Notifier != nil {
		w.Notifier.NotifyInsert(result.Id)
	}

	w.Logger.Debug("message admitted", "id", result.Id.String(), "priority", priority, "bytes", declaredSize, "evicted", len(result.MsgsRemoved))
	return result.Id, nil
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true")
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}

func classifyStoreError(err error) error {
	switch {
	case core.IsExceedsStoreMax(err):
		return &Error{Kind: KindExceedsStoreMax, Op: "Add", Cause: err}
	case core.IsExceedsGroupMax(err):
		return &Error{Kind: KindExceedsGroupMax, Op: "Add", Cause: err}
	case core.IsLacksPriority(err):
		return &Error{Kind: KindLacksPriority, Op: "Add", Cause: err}
	default:
		return &Error{Kind: KindStore, Op: "Add", Cause: err}
	}
}
