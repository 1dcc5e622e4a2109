package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"artforge/services/watermark-api/internal/config"
	domain "artforge/services/watermark-api/internal/domain/media"
	"artforge/services/watermark-api/internal/infrastructure/storage"
	"artforge/services/watermark-api/internal/infrastructure/workspace"
	"artforge/services/watermark-api/internal/interfaces/httpserver"
)

const testID = "med_01hgw2x5v9k8q3n7m1p0r4s6t8"

// secretOriginalURL must never appear in any response except the two
// designated unlock endpoints.
const secretOriginalURL = "https://provider.example/ephemeral/secret-path/gen.png"

type stubStore struct {
	records map[string]*storage.Record
}

func (s *stubStore) Save(ctx context.Context, id string, binary []byte, meta storage.Meta) error {
	s.records[id] = &storage.Record{ID: id, Binary: binary, Meta: meta}
	return nil
}

func (s *stubStore) LoadMedia(ctx context.Context, id string) (*storage.Record, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return record, nil
}

func (s *stubStore) LoadOriginalURL(ctx context.Context, id string) (string, error) {
	record, ok := s.records[id]
	if !ok {
		return "", storage.ErrNotFound
	}
	return record.Meta.OriginalURL, nil
}

func (s *stubStore) Health(ctx context.Context) error { return nil }

type stubImages struct{}

func (stubImages) WatermarkImage(ctx context.Context, sourceURL string) ([]byte, error) {
	return []byte("watermarked png"), nil
}

type stubVideos struct{}

func (stubVideos) WatermarkVideo(ctx context.Context, inputPath, outputPath string) error {
	return nil
}

func newTestEngine(t *testing.T, store domain.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		ServiceName:        "watermark-api",
		PublicBaseURL:      "http://svc.test",
		MaxMediaBytes:      1 << 20,
		RemoteFetchTimeout: 5 * time.Second,
		FallbackToOriginal: true,
	}
	service := domain.NewService(cfg, store, stubImages{}, stubVideos{},
		workspace.NewManager(t.TempDir(), zerolog.Nop()), zerolog.Nop())
	return httpserver.New(cfg, zerolog.Nop(), service).Engine()
}

func seededStore() *stubStore {
	return &stubStore{records: map[string]*storage.Record{
		testID: {
			ID:     testID,
			Binary: []byte("watermarked media bytes"),
			Meta: storage.Meta{
				OriginalURL: secretOriginalURL,
				MimeType:    "image/png",
				Extension:   "png",
				CreatedAt:   "2026-08-01T12:00:00Z",
			},
		},
	}}
}

func TestServeWatermarkedMedia(t *testing.T) {
	engine := newTestEngine(t, seededStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/media/"+testID, nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", got)
	}
	if rec.Body.String() != "watermarked media bytes" {
		t.Errorf("body = %q, want stored watermarked bytes", rec.Body.String())
	}
}

// The original URL must never leak through the watermarked-media endpoint,
// under any circumstances: it is the entire value of the watermark gate.
func TestServeNeverLeaksOriginalURL(t *testing.T) {
	engine := newTestEngine(t, seededStore())

	for _, target := range []string{
		"/api/media/" + testID,
		"/api/media/med_0000000000000000000000000",
		"/api/media/unknown",
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		engine.ServeHTTP(rec, req)

		body := rec.Body.String() + " " + flattenHeaders(rec.Header())
		if strings.Contains(body, secretOriginalURL) || strings.Contains(body, "secret-path") {
			t.Errorf("GET %s leaked the original URL: %s", target, body)
		}
		if strings.Contains(body, "originalUrl") {
			t.Errorf("GET %s leaked sidecar metadata: %s", target, body)
		}
	}
}

func TestServeUnknownIDReturns404(t *testing.T) {
	engine := newTestEngine(t, seededStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/media/med_01aaaaaaaaaaaaaaaaaaaaaaaa", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	var envelope map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("error body is not json: %v", err)
	}
	if envelope["error"] == "" {
		t.Error("error envelope missing message")
	}
}

func TestUnlockReturnsCleanURL(t *testing.T) {
	engine := newTestEngine(t, seededStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/media/"+testID+"/unlock", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		CleanURL string `json:"cleanUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.CleanURL != secretOriginalURL {
		t.Errorf("cleanUrl = %q, want original URL", body.CleanURL)
	}
}

func TestUnlockUnknownIDReturns404(t *testing.T) {
	engine := newTestEngine(t, seededStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/media/med_01aaaaaaaaaaaaaaaaaaaaaaaa/unlock", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadOriginalStreamsAttachment(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("original clean bytes"))
	}))
	defer upstream.Close()

	store := seededStore()
	store.records[testID].Meta.OriginalURL = upstream.URL + "/gen.png"
	engine := newTestEngine(t, store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/download-original?id="+testID, nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, "attachment;") {
		t.Errorf("Content-Disposition = %q, want attachment", disposition)
	}
	if !strings.Contains(disposition, testID) {
		t.Errorf("Content-Disposition = %q, want filename embedding the id", disposition)
	}
	if rec.Body.String() != "original clean bytes" {
		t.Errorf("body = %q, want proxied original bytes", rec.Body.String())
	}
}

func TestDownloadOriginalUpstreamFailureReturns502(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer upstream.Close()

	store := seededStore()
	store.records[testID].Meta.OriginalURL = upstream.URL + "/expired.png"
	engine := newTestEngine(t, store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/download-original?id="+testID, nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestDownloadOriginalUnknownIDReturns404(t *testing.T) {
	engine := newTestEngine(t, seededStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/download-original?id=med_01aaaaaaaaaaaaaaaaaaaaaaaa", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestProcessEndpointReturnsMediaURL(t *testing.T) {
	engine := newTestEngine(t, &stubStore{records: map[string]*storage.Record{}})

	payload := `{"source_url":"https://provider.example/out/gen.png","kind":"image"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result domain.ProcessResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.Status != domain.StatusWatermarked {
		t.Errorf("status = %q, want watermarked", result.Status)
	}
	if !strings.HasPrefix(result.MediaURL, "http://svc.test/api/media/med_") {
		t.Errorf("media_url = %q, want public media URL", result.MediaURL)
	}
}

func TestProcessEndpointRejectsBadPayload(t *testing.T) {
	engine := newTestEngine(t, &stubStore{records: map[string]*storage.Record{}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(`{"kind":"image"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func flattenHeaders(h http.Header) string {
	parts := make([]string, 0, len(h))
	for key, values := range h {
		parts = append(parts, key+": "+strings.Join(values, ","))
	}
	return strings.Join(parts, " ")
}
