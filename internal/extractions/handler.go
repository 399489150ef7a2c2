package extractions

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"guideline-extractor/internal/pdfimages"
	"guideline-extractor/internal/pdftext"
	"guideline-extractor/internal/recommend"
	"guideline-extractor/internal/shared/server/respond"
	"guideline-extractor/internal/shared/util"
)

const defaultMaxUploadBytes = 25 << 20 // 25MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
	base           string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches extraction routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	h.base = strings.TrimSuffix(rg.BasePath(), "/") + "/extractions"
	rg.POST("/extractions", h.create)
	rg.POST("/extractions/recommendations", h.downloadRecommendations)
	rg.GET("/extractions/:id", h.get)
	rg.GET("/extractions/:id/text", h.artifact(func(*gin.Context) string { return TextArtifact }))
	rg.GET("/extractions/:id/"+RecommendationsArtifact, h.artifact(func(*gin.Context) string { return RecommendationsArtifact }))
	rg.GET("/extractions/:id/images/:index", h.artifact(imageName))
}

func (h *Handler) create(c *gin.Context) {
	fileName, data, ok := h.readUpload(c)
	if !ok {
		return
	}
	mode, err := ParseMode(modeParam(c))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "mode must be one of all, text, images, recommendations", nil)
		return
	}

	res, err := h.Svc.Run(c.Request.Context(), fileName, data, mode)
	if err != nil {
		h.runError(c, err)
		return
	}
	c.Set("extractionId", res.Manifest.ID)
	respond.Created(c, toResponse(res, h.base))
}

func (h *Handler) downloadRecommendations(c *gin.Context) {
	fileName, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	res, err := h.Svc.Run(c.Request.Context(), fileName, data, ModeRecommendations)
	if err != nil {
		h.runError(c, err)
		return
	}
	c.Set("extractionId", res.Manifest.ID)

	payload, err := recommend.Encode(res.Recommendations)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to encode recommendations", nil)
		return
	}
	c.Header("X-Extraction-Id", res.Manifest.ID)
	respond.Attachment(c, RecommendationsArtifact, contentTypeFor(RecommendationsArtifact), payload)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	m, err := h.Svc.Manifest(c.Request.Context(), id)
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.Set("extractionId", id)
	respond.OK(c, toManifestResponse(m, h.base))
}

func (h *Handler) artifact(nameFor func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		name := nameFor(c)
		if name == "" {
			respond.Error(c, http.StatusNotFound, "not_found", "artifact not found", nil)
			return
		}

		signed, err := h.Svc.PresignArtifact(c.Request.Context(), id, name)
		if err != nil {
			h.lookupError(c, err)
			return
		}
		if signed != "" {
			c.Set("extractionId", id)
			c.Redirect(http.StatusTemporaryRedirect, signed)
			return
		}

		a, err := h.Svc.OpenArtifact(c.Request.Context(), id, name)
		if err != nil {
			h.lookupError(c, err)
			return
		}
		defer a.Body.Close()
		c.Set("extractionId", id)

		body, err := io.ReadAll(a.Body)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read artifact", nil)
			return
		}
		respond.Attachment(c, a.Name, a.ContentType, body)
	}
}

func (h *Handler) readUpload(c *gin.Context) (string, []byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("file exceeds the %d byte upload limit", h.MaxUploadBytes), nil)
			return "", nil, false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return "", nil, false
	}

	fileName, err := util.SanitizeUploadName(fileHeader.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return "", nil, false
	}
	if !isPDF(fileName, fileHeader.Header.Get("Content-Type")) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file must be a PDF", nil)
		return "", nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return "", nil, false
	}
	if len(data) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is empty", nil)
		return "", nil, false
	}
	return fileName, data, true
}

func (h *Handler) runError(c *gin.Context, err error) {
	if diag, ok := diagnostic(err); ok {
		respond.Error(c, http.StatusUnprocessableEntity, "unreadable_pdf", "Failed to read the PDF file: "+diag, nil)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process document", nil)
	}
}

func (h *Handler) lookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrExpired):
		respond.Error(c, http.StatusNotFound, "expired", "extraction has expired", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "artifact not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch artifact", nil)
	}
}

func diagnostic(err error) (string, bool) {
	var textErr *pdftext.Error
	if errors.As(err, &textErr) {
		return textErr.Diagnostic, true
	}
	var imageErr *pdfimages.Error
	if errors.As(err, &imageErr) {
		return imageErr.Diagnostic, true
	}
	return "", false
}

func modeParam(c *gin.Context) string {
	if v := c.PostForm("mode"); v != "" {
		return v
	}
	return c.Query("mode")
}

func imageName(c *gin.Context) string {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx <= 0 {
		return ""
	}
	return fmt.Sprintf("image_%d.png", idx)
}

func imageURL(base, id string, index int) string {
	return fmt.Sprintf("%s/%s/images/%d", base, id, index)
}

func isPDF(fileName, contentType string) bool {
	if strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/pdf"
}
