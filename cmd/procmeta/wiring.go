package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/procmeta/internal/adapters/sqlstore"
	"github.com/aretw0/procmeta/internal/config"
	"github.com/aretw0/procmeta/internal/export"
	"github.com/aretw0/procmeta/pkg/adapters/file"
	"github.com/aretw0/procmeta/pkg/adapters/memory"
	"github.com/aretw0/procmeta/pkg/adapters/redis"
	"github.com/aretw0/procmeta/pkg/client"
	"github.com/aretw0/procmeta/pkg/console"
	"github.com/aretw0/procmeta/pkg/ports"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openCatalog opens the backend repository named by the server config.
func openCatalog(c config.Server) (ports.Catalog, io.Closer, error) {
	switch c.Catalog {
	case "memory":
		return memory.NewCatalog(), nopCloser{}, nil
	case "sqlite", "":
		store, err := sqlstore.OpenSQLite(c.SQLitePath, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case "postgres":
		store, err := sqlstore.OpenPostgres(c.PostgresDSN, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
	return nil, nil, fmt.Errorf("unknown catalog %q (want memory, sqlite or postgres)", c.Catalog)
}

// openPreferences opens where the console keeps its selection and theme.
func openPreferences(c config.Preferences) (ports.PreferenceStore, error) {
	switch c.Backend {
	case "memory":
		return memory.NewPreferences(), nil
	case "file", "":
		return file.New(c.Dir), nil
	case "redis":
		return redis.New(c.RedisAddr, c.RedisPassword, c.RedisDB, redis.WithTTL(c.TTL)), nil
	}
	return nil, fmt.Errorf("unknown preferences backend %q (want memory, file or redis)", c.Backend)
}

// newSession builds a console session against the configured backend and
// restores the persisted theme and selection.
func newSession(ctx context.Context) (*console.Session, error) {
	prefs, err := openPreferences(cfg.Preferences)
	if err != nil {
		return nil, err
	}
	api := client.New(cfg.Client.URL,
		client.WithTimeout(cfg.Client.Timeout),
		client.WithLogger(logger),
	)
	s := console.New(api,
		console.WithPreferences(prefs),
		console.WithLogger(logger),
		console.WithSaveMode(console.ParseSaveMode(cfg.Client.SaveMode)),
	)
	s.LoadTheme(ctx)
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	s.RestoreSelection(ctx)
	return s, nil
}

// newSink returns the S3 sink when a bucket is configured, else a directory sink.
func newSink(ctx context.Context, c config.Export) (export.Sink, error) {
	if c.Bucket == "" {
		return export.DirSink{Dir: c.Dir}, nil
	}
	return export.NewS3Sink(ctx, export.S3Config{
		Bucket: c.Bucket,
		Prefix: c.Prefix,
		Region: c.Region,
	})
}
