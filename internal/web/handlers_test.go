package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/admiralorbiter/VMS-sub002/internal/config"
	"github.com/admiralorbiter/VMS-sub002/internal/importer"
	"github.com/admiralorbiter/VMS-sub002/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Minute},
		Import: config.ImportConfig{
			AcceptedPartner:        "PREP-KC",
			DefaultDurationMinutes: 60,
			MaxErrorMessages:       50,
			MaxFileSize:            1 << 20,
			Timeout:                time.Minute,
		},
		Rate:    config.RateLimitConfig{Enabled: false},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T) (*Server, importer.Store) {
	t.Helper()
	stores := store.NewMemory().Stores()
	return NewServer(stores, testConfig()), stores
}

func multipartUpload(t *testing.T, kind, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("kind", kind); err != nil {
		t.Fatal(err)
	}
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fmt.Fprint(fw, content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

const sessionCSV = `Session ID,Title,Date,Status,Signup Role,Name,User ID,Email
S-1,Careers in Robotics,2026-03-15 14:00,Completed,Teacher,Jane Smith,,
S-1,Careers in Robotics,2026-03-15 14:00,Completed,Volunteer,Amy Ng,,amy@example.com
`

func runImport(t *testing.T, srv *Server) map[string]any {
	t.Helper()
	body, contentType := multipartUpload(t, "session_report", "report.csv", sessionCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/imports status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRunImport_EndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	out := runImport(t, srv)

	batch, ok := out["batch"].(map[string]any)
	if !ok {
		t.Fatalf("response missing batch: %v", out)
	}
	if batch["totalRows"].(float64) != 2 {
		t.Errorf("totalRows = %v, want 2", batch["totalRows"])
	}
	if batch["createdEvents"].(float64) != 1 {
		t.Errorf("createdEvents = %v, want 1", batch["createdEvents"])
	}
	// Neither participant exists yet, so both rows queue for review.
	unmatched, ok := out["unmatched"].([]any)
	if !ok || len(unmatched) != 2 {
		t.Errorf("unmatched = %v, want 2 records", out["unmatched"])
	}
	if batch["durationSeconds"] == nil {
		t.Error("completed batch should report durationSeconds")
	}
}

func TestRunImport_BadKind(t *testing.T) {
	srv, _ := newTestServer(t)
	body, contentType := multipartUpload(t, "bogus", "report.csv", sessionCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRunImport_MissingColumns(t *testing.T) {
	srv, _ := newTestServer(t)
	body, contentType := multipartUpload(t, "session_report", "broken.csv", "Title,Name\nA,B\n")
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["batch"] == nil {
		t.Error("failed import should still return the audit batch")
	}
}

func TestRunImport_UnsupportedFileType(t *testing.T) {
	srv, _ := newTestServer(t)
	body, contentType := multipartUpload(t, "session_report", "report.pdf", "junk")
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListImports(t *testing.T) {
	srv, _ := newTestServer(t)
	runImport(t, srv)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("len = %d, want 1", len(out))
	}
}

func TestGetImport_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/6b9f1a00-0000-0000-0000-000000000000", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestReviewFlow_CreateFromRecord(t *testing.T) {
	srv, stores := newTestServer(t)
	out := runImport(t, srv)

	unmatched := out["unmatched"].([]any)
	first := unmatched[0].(map[string]any)
	recordID := first["id"].(string)

	body := bytes.NewBufferString(`{"notes":"verified","resolver":"admin-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/unmatched/"+recordID+"/create", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resolved map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resolved["status"] != "created" {
		t.Errorf("status = %v, want created", resolved["status"])
	}

	// A second attempt is refused.
	req = httptest.NewRequest(http.MethodPost, "/api/unmatched/"+recordID+"/create", bytes.NewBufferString(`{}`))
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("second create status = %d, want 409", rec.Code)
	}

	// Only one record is still pending.
	recs, err := stores.Unmatched.List(req.Context(), importer.UnmatchedFilter{Status: importer.ResolutionPending})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("pending records = %d, want 1", len(recs))
	}
}

func TestListUnmatched_Filters(t *testing.T) {
	srv, _ := newTestServer(t)
	runImport(t, srv)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unmatched?status=pending", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("pending = %d, want 2", len(out))
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unmatched?status=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for invalid filter", rec.Code)
	}
}

func TestResolveUnmatched_RequiresLink(t *testing.T) {
	srv, _ := newTestServer(t)
	out := runImport(t, srv)
	recordID := out["unmatched"].([]any)[0].(map[string]any)["id"].(string)

	body := bytes.NewBufferString(`{"status":"resolved"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/unmatched/"+recordID+"/resolve", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when linkedId is missing", rec.Code)
	}

	body = bytes.NewBufferString(`{"status":"ignored","resolver":"admin-1"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/unmatched/"+recordID+"/resolve", body)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("ignore status = %d, want 200", rec.Code)
	}
}
