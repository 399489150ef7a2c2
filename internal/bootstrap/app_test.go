package bootstrap

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"guideline-extractor/internal/pdftest"
	"guideline-extractor/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Env:                   "dev",
		CORSAllowOrigin:       []string{"http://localhost:5173"},
		ObjectStoreType:       "local",
		LocalStoreDir:         t.TempDir(),
		PDFEngine:             "native",
		MaxUploadBytes:        1 << 20,
		ArtifactTTL:           time.Hour,
		RateLimitUploadRPS:    10,
		RateLimitUploadBurst:  10,
		RateLimitDefaultRPS:   10,
		RateLimitDefaultBurst: 10,
	}
}

func TestBuildServesUploadAndDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}

	doc := pdftest.Build(pdftest.Page{Lines: []string{
		"Class of Recommendation: COR B",
		"Level of Evidence: LOE A",
		"Recommendation: Begin motion early",
	}})
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "guideline.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(doc); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.WriteField("mode", "recommendations"); err != nil {
		t.Fatalf("write mode: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extractions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		ExtractionID    string `json:"extractionId"`
		Recommendations []struct {
			Content string   `json:"recommendation_content"`
			Stage   []string `json:"stage"`
		} `json:"recommendations"`
		Downloads struct {
			Recommendations string `json:"recommendations"`
		} `json:"downloads"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(created.Recommendations) != 1 || created.Recommendations[0].Content != "Begin motion early" {
		t.Fatalf("unexpected recommendations %+v", created.Recommendations)
	}
	if created.Recommendations[0].Stage[1] != "COR B" {
		t.Fatalf("unexpected stage %v", created.Recommendations[0].Stage)
	}

	dl := httptest.NewRecorder()
	app.Router.ServeHTTP(dl, httptest.NewRequest(http.MethodGet, created.Downloads.Recommendations, nil))
	if dl.Code != http.StatusOK {
		t.Fatalf("expected 200 download, got %d", dl.Code)
	}
}

func TestBuildDefaultsAndHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.ObjectStoreType = ""
	cfg.PDFEngine = ""

	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	if app.Config.ObjectStoreType != "local" || app.Text.Engine() != "native" {
		t.Fatalf("unexpected defaults store=%q engine=%q", app.Config.ObjectStoreType, app.Text.Engine())
	}
	status := app.Health.Status()
	if status["store"] != "local" || status["engine"] != "native" {
		t.Fatalf("unexpected health %v", status)
	}
}

func TestBuildS3RequiresBucket(t *testing.T) {
	cfg := testConfig(t)
	cfg.ObjectStoreType = "s3"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error without S3_BUCKET")
	}
}
