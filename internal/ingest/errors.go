package ingest

import "fmt"

// Kind classifies an ingestion-path error: header validation, admission
// rejection (mapped from the engine), or a wrapped collaborator failure.
type Kind string

const (
	KindMissingHeaders           Kind = "missing_headers"
	KindMalformedHeaders         Kind = "malformed_headers"
	KindMissingPriority          Kind = "missing_priority"
	KindInvalidPriority          Kind = "invalid_priority"
	KindMissingBytesizeOverride  Kind = "missing_bytesize_override"
	KindInvalidBytesizeOverride  Kind = "invalid_bytesize_override"
	KindFileStorageNotConfigured Kind = "file_storage_not_configured"
	KindExceedsStoreMax          Kind = "exceeds_store_max"
	KindExceedsGroupMax          Kind = "exceeds_group_max"
	KindLacksPriority            Kind = "lacks_priority"
	KindBackend                  Kind = "backend_error"
	KindFileStore                Kind = "file_store_error"
	KindStore                    Kind = "store_error"
	KindNotFound                 Kind = "not_found"
)

// Error is the ingestion path's tagged result type.
type Error struct {
	Kind  Kind
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ingest: %s: %s: %v", e.Op, e.Kind, e.Cause)
	}
	return fmt.Sprintf("ingest: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
