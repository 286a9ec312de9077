package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	BadRequest(rr, "INVALID_ID", "comment_id must be a UUID", "req-1", map[string]any{"field": "comment_id"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "INVALID_ID" || resp.Error.RequestID != "req-1" {
		t.Fatalf("unexpected envelope %+v", resp.Error)
	}
	if resp.Error.Details["field"] != "comment_id" {
		t.Fatalf("expected details to round-trip, got %v", resp.Error.Details)
	}
}

func TestInternal(t *testing.T) {
	rr := httptest.NewRecorder()
	Internal(rr, "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
