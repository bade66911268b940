package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/gin-gonic/gin"
)

// NOTE: These tests cover the request validation and error mapping layers,
// which reject before any DB access; happy paths need MySQL.

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(utils.SetUsernameInContext(req.Context(), "ops-runner"))
}

func serve(handler gin.HandlerFunc, route string, req *http.Request) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET(route, handler)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestSheetDataHandler_RequiresSession(t *testing.T) {
	w := serve(sheetDataHandler(), "/sheet-data", httptest.NewRequest(http.MethodGet, "/sheet-data", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", w.Code)
	}
}

func TestSheetDataHandler_MissingParamsListFieldErrors(t *testing.T) {
	w := serve(sheetDataHandler(), "/sheet-data", authedRequest(http.MethodGet, "/sheet-data"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}

	body := decodeError(t, w)
	for _, field := range []string{"Category", "StartDate", "EndDate"} {
		if body.Fields[field] != "required" {
			t.Errorf("field %s: got %q, want required", field, body.Fields[field])
		}
	}
}

func TestSheetDataHandler_MalformedDateRejected(t *testing.T) {
	w := serve(sheetDataHandler(), "/sheet-data",
		authedRequest(http.MethodGet, "/sheet-data?category=refund&start_date=15-08-2026&end_date=2026-08-15"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
	if body := decodeError(t, w); body.Fields["StartDate"] != "datetime" {
		t.Errorf("StartDate: got %q, want datetime", body.Fields["StartDate"])
	}
}

func TestSheetDataHandler_EndBeforeStartRejected(t *testing.T) {
	w := serve(sheetDataHandler(), "/sheet-data",
		authedRequest(http.MethodGet, "/sheet-data?category=refund&start_date=2026-08-15&end_date=2026-08-01"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
}

func TestListUploadsHandler_PageBoundsValidated(t *testing.T) {
	for _, target := range []string{"/uploads?page=-1", "/uploads?page_size=1000"} {
		w := serve(listUploadsHandler(), "/uploads", authedRequest(http.MethodGet, target))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status got %d, want 400", target, w.Code)
		}
	}
}

func TestGetUploadHandler_InvalidIdRejected(t *testing.T) {
	w := serve(getUploadHandler(), "/uploads/:id", authedRequest(http.MethodGet, "/uploads/abc"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
}

// A missing job is the caller's 404; any other lookup failure is ours.
func TestUploadLookupStatus(t *testing.T) {
	if got := uploadLookupStatus(utils.ErrorRecordNotFound); got != http.StatusNotFound {
		t.Errorf("missing record: got %d, want 404", got)
	}
	if got := uploadLookupStatus(errors.New("dial tcp: connection refused")); got != http.StatusInternalServerError {
		t.Errorf("db failure: got %d, want 500", got)
	}
}
