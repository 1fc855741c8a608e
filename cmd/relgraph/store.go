package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/internal/config"
	"github.com/anthonybishopric/relgraph/pkg/relations"
)

// backend is the opened relationship store.
type backend struct {
	relations.Store
	io.Closer

	// reload re-reads the store contents from their source.
	reload func(ctx context.Context) error
}

// openStore opens the configured store.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := relations.NewPostgresStore(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		// Postgres is always current; a reload only has to drop caches.
		return &backend{
			Store:  store,
			Closer: store,
			reload: func(context.Context) error { return nil },
		}, nil
	default:
		store := relations.NewMemoryStore()
		b := &backend{
			Store:  store,
			Closer: noClose{},
			reload: func(ctx context.Context) error { return fillMemory(ctx, store, cfg, logger) },
		}
		if err := b.reload(ctx); err != nil {
			return nil, err
		}
		return b, nil
	}
}

// fillMemory replaces the memory store contents with the configured seed,
// then appends the configured report.
func fillMemory(ctx context.Context, store *relations.MemoryStore, cfg config.StoreConfig, logger *zap.Logger) error {
	seed := &relations.Seed{}
	if cfg.Seed != "" {
		var err error
		if seed, err = readSeedFile(cfg.Seed); err != nil {
			return err
		}
	}
	if cfg.Seed == "" && cfg.Import == "" {
		logger.Warn("no seed or import configured, serving an empty graph")
	}
	if err := store.Load(ctx, seed); err != nil {
		return err
	}
	logger.Info("loaded seed",
		zap.String("path", cfg.Seed),
		zap.Int("actors", len(seed.Actors)),
		zap.Int("relations", len(seed.Relations)))

	if cfg.Import == "" {
		return nil
	}
	rows, err := readImportFile(cfg.Import)
	if err != nil {
		return err
	}
	n, err := store.Import(ctx, rows, false)
	if err != nil {
		return err
	}
	logger.Info("imported report", zap.String("path", cfg.Import), zap.Int("relations", n))
	return nil
}

func readSeedFile(path string) (*relations.Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	seed, err := relations.ReadSeed(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

func readImportFile(path string) ([]relations.ImportRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := relations.ReadImport(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

type noClose struct{}

func (noClose) Close() error { return nil }
