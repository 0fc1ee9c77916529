package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v6/memfs"

	"github.com/lehigh-university-libraries/partident/internal/catalog"
	"github.com/lehigh-university-libraries/partident/internal/models"
	"github.com/lehigh-university-libraries/partident/internal/scan"
	"github.com/lehigh-university-libraries/partident/internal/storage"
)

type stubEngine struct {
	result *models.IdentificationResult
}

func (s stubEngine) Identify(ctx context.Context, photos []models.PhotoCapture, catalog []models.CatalogItem) (*models.IdentificationResult, error) {
	return s.result, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := storage.OpenSQLStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	objects := storage.NewObjectStore(memfs.New(), "/static/uploads")
	store := storage.New(db, objects)
	catalogStore := catalog.NewStore(db)
	engine := stubEngine{result: &models.IdentificationResult{
		Parts:   []models.AutoPart{{PartNumber: "A1", PartName: "Bracket", MatchPercentage: 85}},
		Summary: "ok",
	}}
	orchestrator := scan.NewOrchestrator(engine, store, catalogStore)

	h := New(orchestrator, catalogStore, catalog.NewImporter(db, catalogStore), objects, 1<<20)
	mux := http.NewServeMux()
	h.Routes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func pngBytes(t *testing.T, w int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, 1))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, mw.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestScanFlow(t *testing.T) {
	srv := newTestServer(t)

	// too few angles
	resp, err := http.Post(srv.URL+"/api/scan/identify", "application/json", nil)
	if err != nil {
		t.Fatalf("POST identify error = %v", err)
	}
	var errBody map[string]string
	decodeBody(t, resp, &errBody)
	if resp.StatusCode != http.StatusUnprocessableEntity || errBody["error"] != "Precision requires at least 3 distinct angles." {
		t.Fatalf("Expected validation error, got %d %v", resp.StatusCode, errBody)
	}

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"a.png": pngBytes(t, 1),
		"b.png": pngBytes(t, 2),
	})
	resp, err = http.Post(srv.URL+"/api/scan/captures", contentType, body)
	if err != nil {
		t.Fatalf("POST captures error = %v", err)
	}
	var added struct {
		Added int `json:"added"`
		Total int `json:"total"`
	}
	decodeBody(t, resp, &added)
	if resp.StatusCode != http.StatusOK || added.Added != 2 || added.Total != 2 {
		t.Fatalf("Unexpected batch response %d %+v", resp.StatusCode, added)
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 3))
	resp, err = http.Post(srv.URL+"/api/scan/captures", "application/json", strings.NewReader(`{"data_url":"`+dataURL+`"}`))
	if err != nil {
		t.Fatalf("POST capture error = %v", err)
	}
	decodeBody(t, resp, &added)
	if added.Total != 3 {
		t.Fatalf("Expected 3 photos, got %d", added.Total)
	}

	resp, err = http.Post(srv.URL+"/api/scan/identify", "application/json", nil)
	if err != nil {
		t.Fatalf("POST identify error = %v", err)
	}
	var outcome struct {
		SessionID   string                      `json:"session_id"`
		Result      models.IdentificationResult `json:"result"`
		ImagesSaved int                         `json:"images_saved"`
	}
	decodeBody(t, resp, &outcome)
	if resp.StatusCode != http.StatusOK || outcome.SessionID == "" || outcome.ImagesSaved != 3 {
		t.Fatalf("Unexpected outcome %d %+v", resp.StatusCode, outcome)
	}

	resp, err = http.Get(srv.URL + "/api/history")
	if err != nil {
		t.Fatalf("GET history error = %v", err)
	}
	var history []models.Session
	decodeBody(t, resp, &history)
	if len(history) != 1 || history[0].TotalMatches != 1 || len(history[0].Images) != 3 {
		t.Fatalf("Unexpected history %+v", history)
	}

	// stored images are served back
	imgResp, err := http.Get(srv.URL + history[0].Images[0].ImageURL)
	if err != nil {
		t.Fatalf("GET upload error = %v", err)
	}
	imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		t.Errorf("Expected stored image, got %d", imgResp.StatusCode)
	}

	var state scan.State
	resp, err = http.Post(srv.URL+"/api/scan/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("POST reset error = %v", err)
	}
	decodeBody(t, resp, &state)
	if state.Stage != models.StageIdle || len(state.Photos) != 0 {
		t.Errorf("Unexpected state after reset %+v", state)
	}
}

func TestCaptureRejectsGarbage(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"good.png": pngBytes(t, 1),
		"bad.png":  []byte("nope"),
	})
	resp, err := http.Post(srv.URL+"/api/scan/captures", contentType, body)
	if err != nil {
		t.Fatalf("POST captures error = %v", err)
	}
	var errBody map[string]string
	decodeBody(t, resp, &errBody)
	if resp.StatusCode != http.StatusBadRequest || errBody["error"] != "Error processing images from gallery." {
		t.Errorf("Expected decode error, got %d %v", resp.StatusCode, errBody)
	}

	resp, err = http.Get(srv.URL + "/api/scan")
	if err != nil {
		t.Fatalf("GET scan error = %v", err)
	}
	var state scan.State
	decodeBody(t, resp, &state)
	if len(state.Photos) != 0 {
		t.Errorf("Expected empty buffer after failed batch, got %d", len(state.Photos))
	}
}

func TestRemoveCapture(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, "files", map[string][]byte{"a.png": pngBytes(t, 1)})
	resp, err := http.Post(srv.URL+"/api/scan/captures", contentType, body)
	if err != nil {
		t.Fatalf("POST captures error = %v", err)
	}
	var added struct {
		Photos []models.PhotoCapture `json:"photos"`
	}
	decodeBody(t, resp, &added)

	for _, tc := range []struct {
		id   string
		want int
	}{
		{id: added.Photos[0].ID, want: http.StatusOK},
		{id: added.Photos[0].ID, want: http.StatusNotFound},
	} {
		req, _ := http.NewRequest("DELETE", srv.URL+"/api/scan/captures/"+tc.id, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("Expected %d, got %d", tc.want, resp.StatusCode)
		}
	}
}

func TestCatalogImport(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, "file", map[string][]byte{
		"parts.csv": []byte("Part Number,Part Name,Station\nX1,Bolt,S1\n,Bad,S9\n"),
	})
	resp, err := http.Post(srv.URL+"/api/catalog/import", contentType, body)
	if err != nil {
		t.Fatalf("POST import error = %v", err)
	}
	var result struct {
		Imported int `json:"imported"`
		Total    int `json:"total"`
	}
	decodeBody(t, resp, &result)
	if result.Imported != 1 || result.Total != 1 {
		t.Fatalf("Unexpected import result %+v", result)
	}

	resp, err = http.Get(srv.URL + "/api/catalog")
	if err != nil {
		t.Fatalf("GET catalog error = %v", err)
	}
	var items []models.CatalogItem
	decodeBody(t, resp, &items)
	if len(items) != 1 || items[0].PartNumber != "X1" {
		t.Errorf("Unexpected catalog %+v", items)
	}

	body, contentType = multipartBody(t, "file", map[string][]byte{"parts.json": []byte("{broken")})
	resp, err = http.Post(srv.URL+"/api/catalog/import", contentType, body)
	if err != nil {
		t.Fatalf("POST import error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed file, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/scan/identify")
	if err != nil {
		t.Fatalf("GET identify error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}
