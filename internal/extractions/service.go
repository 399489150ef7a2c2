package extractions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"guideline-extractor/internal/pdfimages"
	"guideline-extractor/internal/pdftext"
	"guideline-extractor/internal/recommend"
	"guideline-extractor/internal/shared/metrics"
	"guideline-extractor/internal/shared/storage/object"
	"guideline-extractor/internal/shared/telemetry"
)

const (
	defaultTTL        = time.Hour
	maxPresignExpires = 15 * time.Minute
)

// Service runs the extractors over an upload and stores the downloadable artifacts.
type Service struct {
	Store object.ObjectStore
	Text  *pdftext.Extractor
	TTL   time.Duration
	Now   func() time.Time
}

// Result is the outcome of one upload.
type Result struct {
	Manifest        Manifest
	Text            string
	Recommendations []recommend.Record
	Images          []pdfimages.Image
	// ImagesError is set when ModeAll kept the text of a document whose
	// images could not be read.
	ImagesError string
}

// Run extracts from data according to mode. A document whose text cannot be
// read halts the whole upload and nothing is stored. In ModeAll an image
// failure alone keeps the text and recommendations and is reported in
// ImagesError.
func (s *Service) Run(ctx context.Context, fileName string, data []byte, mode Mode) (Result, error) {
	if len(data) == 0 || strings.TrimSpace(fileName) == "" {
		return Result{}, ErrInvalidInput
	}
	if mode == "" {
		mode = ModeAll
	}

	start := time.Now()
	res, err := s.extract(ctx, data, mode)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, pdftext.ErrUnreadable) || errors.Is(err, pdfimages.ErrUnreadable) {
			outcome = metrics.OutcomeUnreadable
		}
		metrics.ObserveExtraction(string(mode), outcome, elapsed)
		return Result{}, err
	}

	now := s.now()
	res.Manifest = Manifest{
		ID:                  uuid.NewString(),
		FileName:            fileName,
		Mode:                mode,
		Engine:              s.text().Engine(),
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.ttl()),
		HasText:             mode.wantsText(),
		TextLength:          len(res.Text),
		HasRecommendations:  mode.wantsRecommendations(),
		RecommendationCount: len(res.Recommendations),
		Images:              []ImageInfo{},
		ImagesError:         res.ImagesError,
	}
	if res.ImagesError != "" {
		telemetry.Warn("extraction.images_failed", map[string]any{
			"extraction_id": res.Manifest.ID,
			"error":         res.ImagesError,
		})
	}

	if err := s.persist(ctx, &res); err != nil {
		metrics.ObserveExtraction(string(mode), metrics.OutcomeError, elapsed)
		s.discard(res.Manifest.ID)
		return Result{}, err
	}

	metrics.ObserveExtraction(string(mode), metrics.OutcomeSuccess, elapsed)
	metrics.AddRecords(len(res.Recommendations))
	metrics.AddImages(len(res.Images))
	telemetry.Info("extraction.complete", map[string]any{
		"extraction_id":   res.Manifest.ID,
		"mode":            string(mode),
		"engine":          res.Manifest.Engine,
		"text_length":     res.Manifest.TextLength,
		"recommendations": len(res.Recommendations),
		"images":          len(res.Images),
		"duration_ms":     elapsed,
	})
	return res, nil
}

func (s *Service) extract(ctx context.Context, data []byte, mode Mode) (Result, error) {
	res := Result{Recommendations: []recommend.Record{}}
	if mode.wantsText() {
		text, err := s.text().Extract(ctx, data)
		if err != nil {
			return Result{}, err
		}
		res.Text = text
		if mode.wantsRecommendations() && text != "" {
			res.Recommendations = recommend.Extract(text)
		}
	}
	if mode.wantsImages() {
		images, err := pdfimages.Extract(ctx, data)
		var imageErr *pdfimages.Error
		switch {
		case err == nil:
			res.Images = images
		case mode == ModeAll && errors.As(err, &imageErr):
			res.ImagesError = "Failed to extract images from the PDF: " + imageErr.Diagnostic
		default:
			return Result{}, err
		}
	}
	return res, nil
}

func (s *Service) persist(ctx context.Context, res *Result) error {
	id := res.Manifest.ID
	if res.Manifest.HasText {
		if err := s.save(ctx, id, TextArtifact, []byte(res.Text)); err != nil {
			return err
		}
	}
	if res.Manifest.HasRecommendations {
		payload, err := recommend.Encode(res.Recommendations)
		if err != nil {
			return fmt.Errorf("encode recommendations: %w", err)
		}
		if err := s.save(ctx, id, RecommendationsArtifact, payload); err != nil {
			return err
		}
	}
	for _, img := range res.Images {
		name := img.FileName()
		if err := s.save(ctx, id, name, img.PNG); err != nil {
			return err
		}
		res.Manifest.Images = append(res.Manifest.Images, ImageInfo{
			Index:        img.Index,
			Page:         img.Page,
			Width:        img.Width,
			Height:       img.Height,
			SourceFormat: img.SourceFormat,
			FileName:     name,
			SizeBytes:    int64(len(img.PNG)),
		})
	}

	manifest, err := json.Marshal(res.Manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return s.save(ctx, id, manifestArtifact, manifest)
}

func (s *Service) save(ctx context.Context, id, name string, data []byte) error {
	if _, err := s.Store.SaveWithKey(ctx, artifactKey(id, name), contentTypeFor(name), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

// Manifest loads the manifest of an extraction that has not expired.
func (s *Service) Manifest(ctx context.Context, id string) (Manifest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Manifest{}, ErrNotFound
	}
	rc, err := s.Store.Open(ctx, artifactKey(id, manifestArtifact))
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Manifest{}, ErrNotFound
		}
		return Manifest{}, err
	}
	defer rc.Close()

	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if !s.now().Before(m.ExpiresAt) {
		s.discard(id)
		return Manifest{}, ErrExpired
	}
	return m, nil
}

// OpenArtifact opens a stored artifact for download. The caller closes Body.
func (s *Service) OpenArtifact(ctx context.Context, id, name string) (Artifact, error) {
	m, err := s.Manifest(ctx, id)
	if err != nil {
		return Artifact{}, err
	}
	if !m.Has(name) {
		return Artifact{}, ErrNotFound
	}
	rc, err := s.Store.Open(ctx, artifactKey(id, name))
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, err
	}
	return Artifact{Name: name, ContentType: contentTypeFor(name), Body: rc}, nil
}

type presigner interface {
	PresignGet(ctx context.Context, storageKey, fileName string, expires time.Duration) (string, error)
}

// PresignArtifact returns a direct download URL for stores that can sign
// one, or "" when the artifact must be streamed through the service.
func (s *Service) PresignArtifact(ctx context.Context, id, name string) (string, error) {
	p, ok := s.Store.(presigner)
	if !ok {
		return "", nil
	}
	m, err := s.Manifest(ctx, id)
	if err != nil {
		return "", err
	}
	if !m.Has(name) {
		return "", ErrNotFound
	}
	expires := m.ExpiresAt.Sub(s.now())
	if expires > maxPresignExpires {
		expires = maxPresignExpires
	}
	return p.PresignGet(ctx, artifactKey(id, name), name, expires)
}

type sweeper interface {
	Sweep(ctx context.Context, prefix string, cutoff time.Time) (int, error)
}

// Sweep removes expired extractions from stores that support it. Stores
// without sweeping support rely on their own lifecycle rules.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	sw, ok := s.Store.(sweeper)
	if !ok {
		return 0, nil
	}
	return sw.Sweep(ctx, artifactRoot, s.now().Add(-s.ttl()))
}

func (s *Service) discard(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Store.DeletePrefix(ctx, artifactKey(id, "")); err != nil {
		telemetry.Warn("extraction.discard_failed", map[string]any{
			"extraction_id": id,
			"error":         err.Error(),
		})
	}
}

func (s *Service) text() *pdftext.Extractor {
	if s.Text == nil {
		return pdftext.New(nil)
	}
	return s.Text
}

func (s *Service) ttl() time.Duration {
	if s.TTL <= 0 {
		return defaultTTL
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func artifactKey(id, name string) string {
	if name == "" {
		return path.Join(artifactRoot, id) + "/"
	}
	return path.Join(artifactRoot, id, name)
}

