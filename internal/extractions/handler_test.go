package extractions

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"guideline-extractor/internal/pdftext"
	localstore "guideline-extractor/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T, maxUpload int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &Service{
		Store: localstore.New(t.TempDir()),
		Text:  pdftext.New(nil),
		TTL:   time.Hour,
	}
	r := gin.New()
	NewHandler(svc, maxUpload).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func uploadRequest(t *testing.T, target, fileName, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, resp.Body.String())
	}
	return payload.Error.Code, payload.Error.Message
}

func TestCreateExtractionAndDownload(t *testing.T) {
	router := newTestRouter(t, 0)

	req := uploadRequest(t, "/api/v1/extractions", "guideline.pdf", "application/pdf", guidelinePDF(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created ExtractionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Mode != ModeAll || created.FileName != "guideline.pdf" {
		t.Fatalf("unexpected response %+v", created)
	}
	if len(created.Recommendations) != 1 || created.Recommendations[0].RecommendationContent != "Use a splint" {
		t.Fatalf("unexpected recommendations %+v", created.Recommendations)
	}
	if len(created.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(created.Images))
	}
	wantURL := "/api/v1/extractions/" + created.ExtractionID + "/images/1"
	if created.Images[0].URL != wantURL {
		t.Fatalf("expected image url %q, got %q", wantURL, created.Images[0].URL)
	}

	imgResp := httptest.NewRecorder()
	router.ServeHTTP(imgResp, httptest.NewRequest(http.MethodGet, wantURL, nil))
	if imgResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for image, got %d", imgResp.Code)
	}
	if ct := imgResp.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := imgResp.Header().Get("Content-Disposition"); !strings.Contains(cd, "image_1.png") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if _, err := png.Decode(bytes.NewReader(imgResp.Body.Bytes())); err != nil {
		t.Fatalf("image download is not a png: %v", err)
	}

	recResp := httptest.NewRecorder()
	router.ServeHTTP(recResp, httptest.NewRequest(http.MethodGet, created.Downloads.Recommendations, nil))
	if recResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for recommendations, got %d", recResp.Code)
	}
	if !strings.HasPrefix(recResp.Body.String(), "[\n    {\n        \"title\"") {
		t.Fatalf("expected 4-space indented json, got %s", recResp.Body.String())
	}

	manifestResp := httptest.NewRecorder()
	router.ServeHTTP(manifestResp, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+created.ExtractionID, nil))
	if manifestResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for manifest, got %d", manifestResp.Code)
	}
	var manifest ManifestResponse
	if err := json.Unmarshal(manifestResp.Body.Bytes(), &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if manifest.RecommendationCount != 1 || len(manifest.Images) != 1 {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
}

func TestDownloadRecommendationsAttachment(t *testing.T) {
	router := newTestRouter(t, 0)

	req := uploadRequest(t, "/api/v1/extractions/recommendations", "guideline.PDF", "application/octet-stream", guidelinePDF(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, "recommendations.json") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if _, err := uuid.Parse(resp.Header().Get("X-Extraction-Id")); err != nil {
		t.Fatalf("expected extraction id header, got %q", resp.Header().Get("X-Extraction-Id"))
	}

	var records []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 || records[0]["rating"] != "LOE B2" {
		t.Fatalf("unexpected records %v", records)
	}
}

func TestCreateExtractionTextMode(t *testing.T) {
	router := newTestRouter(t, 0)

	req := uploadRequest(t, "/api/v1/extractions", "Guideline.PDF", "application/pdf", guidelinePDF(), map[string]string{"mode": "text"})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created ExtractionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(created.Text, "Use a splint") {
		t.Fatalf("expected text in response, got %q", created.Text)
	}
	if created.FileName != "Guideline.pdf" {
		t.Fatalf("expected sanitized file name, got %q", created.FileName)
	}
	if created.Downloads.Recommendations != "" || len(created.Images) != 0 {
		t.Fatalf("text mode should not expose other artifacts: %+v", created)
	}
}

func TestCreateExtractionErrors(t *testing.T) {
	pdf := guidelinePDF()
	tests := []struct {
		name        string
		fileName    string
		contentType string
		data        []byte
		fields      map[string]string
		maxUpload   int64
		wantStatus  int
		wantCode    string
	}{
		{name: "not a pdf name", fileName: "notes.txt", contentType: "text/plain", data: []byte("hello"), wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "bad mode", fileName: "guideline.pdf", contentType: "application/pdf", data: pdf, fields: map[string]string{"mode": "pages"}, wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "empty file", fileName: "guideline.pdf", contentType: "application/pdf", data: nil, wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "unreadable", fileName: "broken.pdf", contentType: "application/pdf", data: []byte("%PDF-garbage"), wantStatus: http.StatusUnprocessableEntity, wantCode: "unreadable_pdf"},
		{name: "too large", fileName: "guideline.pdf", contentType: "application/pdf", data: bytes.Repeat([]byte("x"), 4096), maxUpload: 1024, wantStatus: http.StatusRequestEntityTooLarge, wantCode: "file_too_large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.maxUpload)
			req := uploadRequest(t, "/api/v1/extractions", tt.fileName, tt.contentType, tt.data, tt.fields)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, resp.Code, resp.Body.String())
			}
			code, msg := decodeError(t, resp)
			if code != tt.wantCode {
				t.Fatalf("expected code %q, got %q", tt.wantCode, code)
			}
			if tt.wantCode == "unreadable_pdf" && !strings.HasPrefix(msg, "Failed to read the PDF file: ") {
				t.Fatalf("unexpected message %q", msg)
			}
		})
	}
}

func TestCreateExtractionKeepsTextWhenImagesFail(t *testing.T) {
	router := newTestRouter(t, 0)

	req := uploadRequest(t, "/api/v1/extractions", "guideline.pdf", "application/pdf", noMediaBoxPDF(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created ExtractionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(created.Text, "keep text") || len(created.Images) != 0 {
		t.Fatalf("unexpected response %+v", created)
	}
	if !strings.HasPrefix(created.ImagesError, "Failed to extract images from the PDF: ") {
		t.Fatalf("unexpected imagesError %q", created.ImagesError)
	}

	imagesOnly := uploadRequest(t, "/api/v1/extractions", "guideline.pdf", "application/pdf", noMediaBoxPDF(), map[string]string{"mode": "images"})
	failed := httptest.NewRecorder()
	router.ServeHTTP(failed, imagesOnly)
	if failed.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 in images mode, got %d: %s", failed.Code, failed.Body.String())
	}
	if code, _ := decodeError(t, failed); code != "unreadable_pdf" {
		t.Fatalf("expected unreadable_pdf, got %q", code)
	}
}

func TestMissingFileIsValidationError(t *testing.T) {
	router := newTestRouter(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extractions", strings.NewReader(""))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestDownloadUnknownArtifacts(t *testing.T) {
	router := newTestRouter(t, 0)
	id := uuid.NewString()
	for _, target := range []string{
		"/api/v1/extractions/" + id + "/text",
		"/api/v1/extractions/" + id + "/recommendations.json",
		"/api/v1/extractions/" + id + "/images/1",
		"/api/v1/extractions/" + id + "/images/zero",
		"/api/v1/extractions/not-a-uuid/text",
	} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", target, resp.Code)
		}
	}
}

type signingStore struct {
	*localstore.Store
}

func (signingStore) PresignGet(ctx context.Context, storageKey, fileName string, expires time.Duration) (string, error) {
	return "https://signed.example/" + storageKey + "?expires=" + expires.String(), nil
}

func TestDownloadRedirectsToPresignedURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &Service{Store: signingStore{localstore.New(t.TempDir())}, TTL: time.Hour}
	res, err := svc.Run(context.Background(), "guideline.pdf", guidelinePDF(), ModeText)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	r := gin.New()
	NewHandler(svc, 0).RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+res.Manifest.ID+"/text", nil))
	if resp.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", resp.Code)
	}
	want := "https://signed.example/extractions/" + res.Manifest.ID + "/text.txt?expires=15m0s"
	if got := resp.Header().Get("Location"); got != want {
		t.Fatalf("expected Location %q, got %q", want, got)
	}

	missing := httptest.NewRecorder()
	r.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+res.Manifest.ID+"/images/1", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown artifact, got %d", missing.Code)
	}
}
