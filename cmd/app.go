package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/partident/internal/catalog"
	"github.com/lehigh-university-libraries/partident/internal/config"
	"github.com/lehigh-university-libraries/partident/internal/identification"
	"github.com/lehigh-university-libraries/partident/internal/images"
	"github.com/lehigh-university-libraries/partident/internal/scan"
	"github.com/lehigh-university-libraries/partident/internal/storage"
)

// app wires the configured collaborators shared by every command.
type app struct {
	cfg          config.Config
	db           *storage.SQLStore
	objects      *storage.ObjectStore
	catalog      *catalog.Store
	importer     *catalog.Importer
	orchestrator *scan.Orchestrator
}

func newApp(ctx context.Context, opts *rootOptions, override func(*config.Config)) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(&cfg)
		cfg.ResolveModel()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	db, err := storage.OpenSQLStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	objects, err := storage.NewDirObjectStore(cfg.UploadsDir, cfg.PublicBaseURL)
	if err != nil {
		db.Close()
		return nil, err
	}

	engine, err := identification.NewService(cfg.IdentificationOptions())
	if err != nil {
		db.Close()
		return nil, err
	}

	catalogStore := catalog.NewStore(db)
	if err := catalogStore.Refresh(ctx); err != nil {
		slog.Warn("Starting with an empty catalog", "error", err)
	}

	orchestrator := scan.NewOrchestrator(engine, storage.New(db, objects), catalogStore,
		scan.WithUploadWorkers(cfg.UploadWorkers),
		scan.WithDecoder(images.NewDecoder(cfg.MaxImageSize)))
	if err := orchestrator.RefreshHistory(ctx); err != nil {
		slog.Warn("Unable to load history", "error", err)
	}

	slog.Debug("Application ready",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"database", cfg.DatabasePath,
		"uploads", cfg.UploadsDir,
		"catalog_items", catalogStore.Len())

	return &app{
		cfg:          cfg,
		db:           db,
		objects:      objects,
		catalog:      catalogStore,
		importer:     catalog.NewImporter(db, catalogStore),
		orchestrator: orchestrator,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Error("Failed to close database", "err", err)
	}
}
