// Package filestore implements the optional large-payload sidecar (C5): a
// single flat directory holding one file per oversized payload, named by
// id, with an in-memory index of known ids. Ported from the original
// implementation's file_storage.rs.
package filestore

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/msgstore/msgstore/internal/core"
)

// Kind classifies a file-store error.
type Kind string

const (
	KindCouldNotCreateDirectory Kind = "could_not_create_directory"
	KindCouldNotCreateFile      Kind = "could_not_create_file"
	KindCouldNotOpenFile        Kind = "could_not_open_file"
	KindCouldNotReadDirectory   Kind = "could_not_read_directory"
	KindCouldNotWriteToFile     Kind = "could_not_write_to_file"
	KindCouldNotRemoveFile      Kind = "could_not_remove_file"
	KindDirectoryDoesNotExist   Kind = "directory_does_not_exist"
)

// Error is the file store's tagged error type.
type Error struct {
	Kind  Kind
	Id    string
	Cause error
}

func (e *Error) Error() string {
	if e.Id != "" {
		return fmt.Sprintf("filestore: %s: id=%s: %v", e.Kind, e.Id, e.Cause)
	}
	return fmt.Sprintf("filestore: %s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// FileStore holds a directory of payload files, indexed in memory by id.
// The index is the ground truth for body presence; backend records may
// lag or dangle across crashes (§4.3).
type FileStore struct {
	mu     sync.Mutex
	dir    string
	index  map[core.Id]struct{}
	logger *slog.Logger
}

// Open creates dir if it does not exist and scans it for existing
// payload files, seeding the in-memory index from filenames that parse
// as ids. Unparseable or unreadable entries are skipped, not fatal.
func Open(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, &Error{Kind: KindCouldNotCreateDirectory, Cause: err}
	}

	fs := &FileStore{dir: dir, index: make(map[core.Id]struct{}), logger: logger}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{Kind: KindCouldNotReadDirectory, Cause: err}
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, err := core.ParseId(entry.Name())
		if err != nil {
			logger.Warn("skipping unparseable file in file store", "name", entry.Name())
			continue
		}
		fs.index[id] = struct{}{}
	}
	logger.Info("file store opened", "dir", dir, "known_files", len(fs.index))
	return fs, nil
}

func (fs *FileStore) path(id core.Id) string {
	return filepath.Join(fs.dir, id.String())
}

// Add creates <dir>/{id}, writing firstChunk followed by the remainder of
// rest, and records id in the index. firstChunk is the body fragment
// already consumed while parsing headers (§4.3 step 5).
func (fs *FileStore) Add(id core.Id, firstChunk []byte, rest io.Reader) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Create(fs.path(id))
	if err != nil {
		return &Error{Kind: KindCouldNotCreateFile, Id: id.String(), Cause: err}
	}
	defer f.Close()

	if len(firstChunk) > 0 {
		if _, err := f.Write(firstChunk); err != nil {
			return &Error{Kind: KindCouldNotWriteToFile, Id: id.String(), Cause: err}
		}
	}
	if rest != nil {
		if _, err := io.Copy(f, rest); err != nil {
			return &Error{Kind: KindCouldNotWriteToFile, Id: id.String(), Cause: err}
		}
	}
	fs.index[id] = struct{}{}
	return nil
}

// Rm removes the file for id and clears it from the index. Idempotent:
// removing an absent id is not an error.
func (fs *FileStore) Rm(id core.Id) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.index[id]; !ok {
		return nil
	}
	if err := os.Remove(fs.path(id)); err != nil && !os.IsNotExist(err) {
		return &Error{Kind: KindCouldNotRemoveFile, Id: id.String(), Cause: err}
	}
	delete(fs.index, id)
	return nil
}

// Get opens a buffered reader over the payload file for id and returns
// its size. The caller is responsible for closing the returned reader.
func (fs *FileStore) Get(id core.Id) (io.ReadCloser, int64, error) {
	fs.mu.Lock()
	_, known := fs.index[id]
	fs.mu.Unlock()
	if !known {
		return nil, 0, &Error{Kind: KindCouldNotOpenFile, Id: id.String(), Cause: os.ErrNotExist}
	}

	f, err := os.Open(fs.path(id))
	if err != nil {
		return nil, 0, &Error{Kind: KindCouldNotOpenFile, Id: id.String(), Cause: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, &Error{Kind: KindCouldNotOpenFile, Id: id.String(), Cause: err}
	}
	return &bufferedFile{Reader: bufio.NewReader(f), file: f}, info.Size(), nil
}

// bufferedFile pairs a buffered reader with the underlying file so
// callers can Close it once done streaming.
type bufferedFile struct {
	*bufio.Reader
	file *os.File
}

func (b *bufferedFile) Close() error {
	return b.file.Close()
}

// Has reports whether id is known to the file store, i.e. whether
// retrieval must stream from disk instead of the durable backend.
func (fs *FileStore) Has(id core.Id) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.index[id]
	return ok
}

// Ids returns every known id, sorted in dispatch order, for diagnostics.
func (fs *FileStore) Ids() []core.Id {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]core.Id, 0, len(fs.index))
	for id := range fs.index {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
