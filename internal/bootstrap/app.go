package bootstrap

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"guideline-extractor/internal/extractions"
	"guideline-extractor/internal/pdftext"
	"guideline-extractor/internal/services/health"
	"guideline-extractor/internal/shared/config"
	"guideline-extractor/internal/shared/server"
	"guideline-extractor/internal/shared/storage/object"
	localstore "guideline-extractor/internal/shared/storage/object/local"
	s3store "guideline-extractor/internal/shared/storage/object/s3"
	"guideline-extractor/internal/shared/telemetry"
)

const defaultRegion = "us-east-1"

// App holds shared dependencies and the HTTP router built from them.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	Store             object.ObjectStore
	Text              *pdftext.Extractor
	Health            *health.Service
	Extractions       *extractions.Service
	ExtractionHandler *extractions.Handler
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	return BuildWithContext(context.Background(), cfg)
}

// BuildWithContext is Build with a caller supplied context for store setup.
func BuildWithContext(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.PDFEngine) == "" {
		cfg.PDFEngine = "native"
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	text := pdftext.NewFromName(cfg.PDFEngine)
	svc := &extractions.Service{
		Store: store,
		Text:  text,
		TTL:   cfg.ArtifactTTL,
	}

	app := &App{
		Config:            cfg,
		Store:             store,
		Text:              text,
		Health:            health.NewService(text.Engine(), cfg.ObjectStoreType),
		Extractions:       svc,
		ExtractionHandler: extractions.NewHandler(svc, cfg.MaxUploadBytes),
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		Health:            app.Health,
		ExtractionHandler: app.ExtractionHandler,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":    cfg.Env,
		"store":  cfg.ObjectStoreType,
		"engine": text.Engine(),
	})
	return app, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		region := strings.TrimSpace(cfg.AWSRegion)
		if region == "" {
			region = defaultRegion
		}
		return s3store.New(ctx, region, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}
