package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/msgstore/msgstore/internal/core"
)

// RetrievalChunkSize is the read size used when streaming a file-stored
// payload to a caller, matching the original implementation's chunking.
const RetrievalChunkSize = 665600

// Retrieval is the result of a Get: the resolved id, the header portion
// of the wire response, and a body reader. Body must be closed by the
// caller. Streaming is true when the payload lives in the file store and
// Body should be copied in RetrievalChunkSize-sized reads.
type Retrieval struct {
	Id        core.Id
	Header    string
	Body      io.ReadCloser
	Size      int64
	Streaming bool
}

// Get locates a message via the engine's three-way lookup (§4.2) and
// returns its wire-format response: "uuid={id}?{payload}" for backend-
// resident payloads, or "uuid={id}&{stored_headers}?" followed by the
// file contents for file-store-resident ones.
func (w *Writer) Get(ctx context.Context, id *core.Id, priority *uint32, reverse bool) (*Retrieval, error) {
	resolved, ok := w.Store.Get(id, priority, reverse)
	if !ok {
		return nil, &Error{Kind: KindNotFound, Op: "Get"}
	}

	payload, err := w.Backend.Get(ctx, resolved)
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: "Get", Cause: err}
	}

	if w.Files != nil && w.Files.Has(resolved) {
		reader, size, err := w.Files.Get(resolved)
		if err != nil {
			return nil, &Error{Kind: KindFileStore, Op: "Get", Cause: err}
		}
		header := fmt.Sprintf("uuid=%s&%s?", resolved.String(), string(payload))
		return &Retrieval{
			Id:        resolved,
			Header:    header,
			Body:      reader,
			Size:      size,
			Streaming: true,
		}, nil
	}

	header := fmt.Sprintf("uuid=%s?", resolved.String())
	return &Retrieval{
		Id:     resolved,
		Header: header,
		Body:   io.NopCloser(bytes.NewReader(payload)),
		Size:   int64(len(payload)),
	}, nil
}

// CopyChunked streams src to dst in RetrievalChunkSize-sized reads,
// matching the retrieval chunk size fixed by §4.3. The final read may be
// short.
func CopyChunked(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, RetrievalChunkSize)
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			written, werr := dst.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
