package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]int{"years": 25})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var body map[string]int
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["years"] != 25 {
		t.Errorf("body = %v", body)
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(w, http.StatusBadRequest, "unknown metric")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "unknown metric" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestStatusHelpers(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequest(w, "bad year")
	if w.Code != http.StatusBadRequest {
		t.Errorf("BadRequest status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	InternalServerError(w, "boom")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("InternalServerError status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	MethodNotAllowed(w)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("MethodNotAllowed status = %d", w.Code)
	}
}
