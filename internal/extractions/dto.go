package extractions

import (
	"time"

	"guideline-extractor/internal/recommend"
)

// ExtractionResponse is the outward-facing representation of an upload result.
type ExtractionResponse struct {
	ExtractionID    string             `json:"extractionId"`
	FileName        string             `json:"fileName"`
	Mode            Mode               `json:"mode"`
	Engine          string             `json:"engine"`
	CreatedAt       time.Time          `json:"createdAt"`
	ExpiresAt       time.Time          `json:"expiresAt"`
	Text            string             `json:"text"`
	Recommendations []recommend.Record `json:"recommendations"`
	Images          []ImageResponse    `json:"images"`
	ImagesError     string             `json:"imagesError,omitempty"`
	Downloads       DownloadLinks      `json:"downloads"`
}

// ImageResponse describes one extracted image and where to download it.
type ImageResponse struct {
	Index        int    `json:"index"`
	Page         int    `json:"page"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SourceFormat string `json:"sourceFormat"`
	FileName     string `json:"fileName"`
	URL          string `json:"url"`
}

// DownloadLinks lists the artifact URLs of an extraction.
type DownloadLinks struct {
	Text            string `json:"text,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`
}

// ManifestResponse is returned when looking up a stored extraction.
type ManifestResponse struct {
	ExtractionID        string          `json:"extractionId"`
	FileName            string          `json:"fileName"`
	Mode                Mode            `json:"mode"`
	Engine              string          `json:"engine"`
	CreatedAt           time.Time       `json:"createdAt"`
	ExpiresAt           time.Time       `json:"expiresAt"`
	TextLength          int             `json:"textLength"`
	RecommendationCount int             `json:"recommendationCount"`
	Images              []ImageResponse `json:"images"`
	ImagesError         string          `json:"imagesError,omitempty"`
	Downloads           DownloadLinks   `json:"downloads"`
}

func toResponse(res Result, base string) ExtractionResponse {
	m := res.Manifest
	records := res.Recommendations
	if records == nil {
		records = []recommend.Record{}
	}
	return ExtractionResponse{
		ExtractionID:    m.ID,
		FileName:        m.FileName,
		Mode:            m.Mode,
		Engine:          m.Engine,
		CreatedAt:       m.CreatedAt,
		ExpiresAt:       m.ExpiresAt,
		Text:            res.Text,
		Recommendations: records,
		Images:          imageResponses(m, base),
		ImagesError:     m.ImagesError,
		Downloads:       downloads(m, base),
	}
}

func toManifestResponse(m Manifest, base string) ManifestResponse {
	return ManifestResponse{
		ExtractionID:        m.ID,
		FileName:            m.FileName,
		Mode:                m.Mode,
		Engine:              m.Engine,
		CreatedAt:           m.CreatedAt,
		ExpiresAt:           m.ExpiresAt,
		TextLength:          m.TextLength,
		RecommendationCount: m.RecommendationCount,
		Images:              imageResponses(m, base),
		ImagesError:         m.ImagesError,
		Downloads:           downloads(m, base),
	}
}

func imageResponses(m Manifest, base string) []ImageResponse {
	out := make([]ImageResponse, 0, len(m.Images))
	for _, img := range m.Images {
		out = append(out, ImageResponse{
			Index:        img.Index,
			Page:         img.Page,
			Width:        img.Width,
			Height:       img.Height,
			SourceFormat: img.SourceFormat,
			FileName:     img.FileName,
			URL:          imageURL(base, m.ID, img.Index),
		})
	}
	return out
}

func downloads(m Manifest, base string) DownloadLinks {
	var links DownloadLinks
	if m.HasText {
		links.Text = base + "/" + m.ID + "/text"
	}
	if m.HasRecommendations {
		links.Recommendations = base + "/" + m.ID + "/" + RecommendationsArtifact
	}
	return links
}
