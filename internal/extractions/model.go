package extractions

import (
	"errors"
	"io"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("extraction not found")
	ErrExpired      = errors.New("extraction expired")
)

// Mode selects which extractors run for an upload.
type Mode string

const (
	ModeAll             Mode = "all"
	ModeText            Mode = "text"
	ModeImages          Mode = "images"
	ModeRecommendations Mode = "recommendations"
)

// ParseMode maps a request value to a Mode. Empty means ModeAll.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeAll, nil
	case ModeAll, ModeText, ModeImages, ModeRecommendations:
		return m, nil
	default:
		return "", ErrInvalidInput
	}
}

func (m Mode) wantsText() bool {
	return m == ModeAll || m == ModeText || m == ModeRecommendations
}

func (m Mode) wantsRecommendations() bool {
	return m == ModeAll || m == ModeRecommendations
}

func (m Mode) wantsImages() bool {
	return m == ModeAll || m == ModeImages
}

// Artifact names within an extraction.
const (
	TextArtifact            = "text.txt"
	RecommendationsArtifact = "recommendations.json"
	manifestArtifact        = "manifest.json"
	artifactRoot            = "extractions"
)

// ImageInfo describes a stored image artifact.
type ImageInfo struct {
	Index        int    `json:"index"`
	Page         int    `json:"page"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SourceFormat string `json:"sourceFormat"`
	FileName     string `json:"fileName"`
	SizeBytes    int64  `json:"sizeBytes"`
}

// Manifest is stored next to the artifacts of one extraction.
type Manifest struct {
	ID                  string      `json:"id"`
	FileName            string      `json:"fileName"`
	Mode                Mode        `json:"mode"`
	Engine              string      `json:"engine"`
	CreatedAt           time.Time   `json:"createdAt"`
	ExpiresAt           time.Time   `json:"expiresAt"`
	HasText             bool        `json:"hasText"`
	TextLength          int         `json:"textLength"`
	HasRecommendations  bool        `json:"hasRecommendations"`
	RecommendationCount int         `json:"recommendationCount"`
	Images              []ImageInfo `json:"images"`
	ImagesError         string      `json:"imagesError,omitempty"`
}

// Has reports whether name is a stored artifact of this extraction.
func (m Manifest) Has(name string) bool {
	switch name {
	case TextArtifact:
		return m.HasText
	case RecommendationsArtifact:
		return m.HasRecommendations
	}
	for _, img := range m.Images {
		if img.FileName == name {
			return true
		}
	}
	return false
}

// Artifact is an open download.
type Artifact struct {
	Name        string
	ContentType string
	Body        io.ReadCloser
}

func contentTypeFor(name string) string {
	switch {
	case name == TextArtifact:
		return "text/plain; charset=utf-8"
	case strings.HasSuffix(name, ".json"):
		return "application/json; charset=utf-8"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
