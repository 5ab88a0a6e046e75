package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgstore/msgstore/internal/backend/memorybackend"
	"github.com/msgstore/msgstore/internal/core"
	"github.com/msgstore/msgstore/internal/ingest"
	"github.com/msgstore/msgstore/internal/stats"
	"github.com/msgstore/msgstore/internal/telemetry"
)

type fakeConfigMirror struct{}

func (fakeConfigMirror) UpdateGroupDefault(priority uint32, maxByteSize *uint64) error { return nil }
func (fakeConfigMirror) RemoveGroupDefault(priority uint32) error                      { return nil }
func (fakeConfigMirror) UpdateMaxByteSize(max *uint64) error                           { return nil }
func (fakeConfigMirror) MarshalMirror() (string, error)                               { return `{"host":"127.0.0.1"}`, nil }

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	writer := ingest.NewWriter(core.NewStore(0), memorybackend.New(), nil, stats.New(), nil, nil)
	srv := NewServer(writer, fakeConfigMirror{}, nil, nil, nil)
	return srv.Router(telemetry.Default())
}

func TestHandleAddThenHandleGetById(t *testing.T) {
	router := newTestServer(t)

	addReq := httptest.NewRequest(http.MethodPost, "/msg", strings.NewReader("priority=1?hello"))
	addRec := httptest.NewRecorder()
	router.ServeHTTP(addRec, addReq)
	require.Equal(t, http.StatusCreated, addRec.Code)

	var body struct {
		Id string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(addRec.Body.Bytes(), &body))

	getReq := httptest.NewRequest(http.MethodGet, "/msg/"+body.Id, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, "hello", getRec.Body.String())
}

func TestHandleGetMalformedIdReturnsBadRequest(t *testing.T) {
	router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/msg/not-an-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthReturnsOK(t *testing.T) {
	router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHandleStatsReflectsWriterActivity(t *testing.T) {
	router := newTestServer(t)

	addReq := httptest.NewRequest(http.MethodPost, "/msg", strings.NewReader("priority=1?x"))
	router.ServeHTTP(httptest.NewRecorder(), addReq)

	statsReq := httptest.NewRequest(http.MethodGet, "/stats", nil)
	statsRec := httptest.NewRecorder()
	router.ServeHTTP(statsRec, statsReq)
	assert.Equal(t, http.StatusOK, statsRec.Code)
	assert.Contains(t, statsRec.Body.String(), `"Inserted":1`)
}
