package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, 201, map[string]int{"answer": 42})

	if rec.Code != 201 {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["answer"] != 42 {
		t.Errorf("answer = %d, want 42", body["answer"])
	}
}

func TestWriteJSONOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOK(rec, []string{"a"})
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONError(rec, 418, "teapot")

	if rec.Code != 418 {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["error"] != "teapot" {
		t.Errorf("error = %q, want teapot", body["error"])
	}
}

func TestStatusHelpers(t *testing.T) {
	cases := []struct {
		name string
		fn   func(*httptest.ResponseRecorder)
		want int
	}{
		{"method not allowed", func(rec *httptest.ResponseRecorder) { MethodNotAllowed(rec) }, 405},
		{"bad request", func(rec *httptest.ResponseRecorder) { BadRequest(rec, "nope") }, 400},
		{"internal server error", func(rec *httptest.ResponseRecorder) { InternalServerError(rec, "boom") }, 500},
		{"service unavailable", func(rec *httptest.ResponseRecorder) { ServiceUnavailable(rec, "later") }, 503},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		tc.fn(rec)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}
