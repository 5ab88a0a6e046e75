package ingest

import (
	"bytes"
	"io"
	"sort"
	"strings"
)

// readChunkSize is the buffer size used while scanning the incoming
// stream for the header/body separator. It does not bound the body; it
// only governs how much is read per suspension point while looking for
// '?'.
const readChunkSize = 4096

// readHeader accumulates chunks from r until the literal '?' is seen,
// splitting the accumulated bytes into the header section (before '?')
// and the first body fragment (after '?', within the same read). An
// empty accumulated header or a stream that never contains '?' is
// MissingHeaders.
func readHeader(r io.Reader) (header string, firstFragment []byte, err error) {
	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		n, rerr := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if idx := bytes.IndexByte(buf.Bytes(), '?'); idx >= 0 {
				data := buf.Bytes()
				header = string(data[:idx])
				firstFragment = append([]byte(nil), data[idx+1:]...)
				if header == "" {
					return "", nil, &Error{Kind: KindMissingHeaders, Op: "readHeader"}
				}
				return header, firstFragment, nil
			}
		}
		if rerr == io.EOF {
			return "", nil, &Error{Kind: KindMissingHeaders, Op: "readHeader"}
		}
		if rerr != nil {
			return "", nil, &Error{Kind: KindMissingHeaders, Op: "readHeader", Cause: rerr}
		}
	}
}

// parseHeaders splits the '&'-separated header section into key=value
// pairs. A pair without '=' is MalformedHeaders.
func parseHeaders(section string) (map[string]string, error) {
	headers := make(map[string]string)
	for _, pair := range strings.Split(section, "&") {
		pair = strings.TrimSpace(pair)
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, &Error{Kind: KindMalformedHeaders, Op: "parseHeaders"}
		}
		headers[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return headers, nil
}

// reconstitute re-serializes the remaining headers (with priority,
// saveToFile, and bytesizeOverride already removed by the caller) back
// into a "k=v&k=v" string, for use as the backend payload in saveToFile
// mode. Keys are sorted for determinism.
func reconstitute(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+headers[k])
	}
	return strings.Join(parts, "&")
}
