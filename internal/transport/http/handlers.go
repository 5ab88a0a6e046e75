package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/msgstore/msgstore/internal/cache"
	"github.com/msgstore/msgstore/internal/core"
	"github.com/msgstore/msgstore/internal/events"
	"github.com/msgstore/msgstore/internal/ingest"
)

// Server wires the store's write/read/admin surface onto an HTTP
// router. This sits outside the core engine (§1), the way the
// teacher's cmd/server wires handlers onto a bare mux.
type Server struct {
	writer *ingest.Writer
	config configMirror
	bus    *events.Bus
	cache  *cache.Cache
	logger *slog.Logger
}

// configMirror is the narrow slice of *config.Config the HTTP layer
// needs, kept as an interface so transport/http doesn't import
// internal/config directly and the two can evolve independently.
type configMirror interface {
	UpdateGroupDefault(priority uint32, maxByteSize *uint64) error
	RemoveGroupDefault(priority uint32) error
	UpdateMaxByteSize(max *uint64) error
	MarshalMirror() (string, error)
}

// NewServer builds a Server. bus and c may be nil if event streaming or
// the read cache are disabled.
func NewServer(writer *ingest.Writer, cfg configMirror, bus *events.Bus, c *cache.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{writer: writer, config: cfg, bus: bus, cache: c, logger: logger}
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	id, err := s.writer.Add(r.Context(), r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	var idPtr *core.Id
	if raw := mux.Vars(r)["id"]; raw != "" {
		id, err := core.ParseId(raw)
		if err != nil {
			http.Error(w, "malformed id", http.StatusBadRequest)
			return
		}
		idPtr = &id
	}

	var priorityPtr *uint32
	if raw := r.URL.Query().Get("priority"); raw != "" {
		p, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			http.Error(w, "malformed priority", http.StatusBadRequest)
			return
		}
		v := uint32(p)
		priorityPtr = &v
	}
	reverse := r.URL.Query().Get("reverse") == "true"

	if idPtr != nil && s.cache != nil {
		if entry, ok := s.cache.Get(r.Context(), *idPtr); ok {
			w.Header().Set("X-Msgstore-Header", entry.Header)
			w.Header().Set("X-Msgstore-Id", idPtr.String())
			w.Header().Set("X-Msgstore-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			w.Write(entry.Body)
			return
		}
	}

	result, err := s.writer.Get(r.Context(), idPtr, priorityPtr, reverse)
	if err != nil {
		writeError(w, err)
		return
	}
	defer result.Body.Close()

	w.Header().Set("X-Msgstore-Header", result.Header)
	w.Header().Set("X-Msgstore-Id", result.Id.String())
	w.WriteHeader(http.StatusOK)

	if !result.Streaming && s.cache != nil {
		var buf []byte
		buf, err = io.ReadAll(result.Body)
		if err != nil {
			s.logger.Warn("error buffering response body for cache", "error", err)
			return
		}
		s.cache.Put(r.Context(), result.Id, cache.Entry{Header: result.Header, Body: buf})
		w.Write(buf)
		return
	}

	if _, err := ingest.CopyChunked(w, result.Body); err != nil {
		s.logger.Warn("error streaming response body", "error", err)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseId(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "malformed id", http.StatusBadRequest)
		return
	}
	if err := s.writer.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	priority, err := strconv.ParseUint(mux.Vars(r)["priority"], 10, 32)
	if err != nil {
		http.Error(w, "malformed priority", http.StatusBadRequest)
		return
	}
	if err := s.writer.DeleteGroup(r.Context(), uint32(priority)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type groupDefaultRequest struct {
	MaxByteSize *uint64 `json:"maxByteSize"`
}

func (s *Server) handlePutGroupDefault(w http.ResponseWriter, r *http.Request) {
	priority, err := strconv.ParseUint(mux.Vars(r)["priority"], 10, 32)
	if err != nil {
		http.Error(w, "malformed priority", http.StatusBadRequest)
		return
	}
	var body groupDefaultRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	if err := s.config.UpdateGroupDefault(uint32(priority), body.MaxByteSize); err != nil {
		writeError(w, err)
		return
	}
	s.writer.Store.UpdateGroupDefaults(uint32(priority), core.GroupDefaults{MaxByteSize: body.MaxByteSize})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteGroupDefault(w http.ResponseWriter, r *http.Request) {
	priority, err := strconv.ParseUint(mux.Vars(r)["priority"], 10, 32)
	if err != nil {
		http.Error(w, "malformed priority", http.StatusBadRequest)
		return
	}
	if err := s.config.RemoveGroupDefault(uint32(priority)); err != nil {
		writeError(w, err)
		return
	}
	s.writer.Store.DeleteGroupDefaults(uint32(priority))
	w.WriteHeader(http.StatusNoContent)
}

type storeDefaultRequest struct {
	MaxByteSize *uint64 `json:"maxByteSize"`
}

func (s *Server) handlePutStoreDefault(w http.ResponseWriter, r *http.Request) {
	var body storeDefaultRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	if err := s.config.UpdateMaxByteSize(body.MaxByteSize); err != nil {
		writeError(w, err)
		return
	}
	s.writer.Store.UpdateStoreDefaults(core.StoreDefaults{MaxByteSize: body.MaxByteSize})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.writer.Stats.Snapshot())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.writer.Store.Snapshot())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	mirror, err := s.config.MarshalMirror()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, mirror)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsExceedsStoreMax(err), core.IsExceedsGroupMax(err), core.IsLacksPriority(err):
		status = http.StatusInsufficientStorage
	case core.IsMalformedId(err):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
