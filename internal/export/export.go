// Package export writes JSON snapshots of a catalog to a directory or an S3
// bucket and loads them back.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/procmeta"
	"github.com/aretw0/procmeta/internal/logging"
	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/aretw0/procmeta/pkg/ports"
)

// Snapshot is the full content of a catalog.
type Snapshot struct {
	Version    string                    `json:"version"`
	ExportedAt time.Time                 `json:"exported_at"`
	Types      []domain.ProcessType      `json:"types"`
	States     []domain.ProcessState     `json:"states"`
	Operations []domain.ProcessOperation `json:"operations"`
}

// Sink stores one named document.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (location string, err error)
}

// Exporter takes snapshots and hands them to a sink.
type Exporter struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the exporter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for names and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// New creates an exporter writing to sink.
func New(sink Sink, opts ...Option) *Exporter {
	e := &Exporter{
		sink:   sink,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Take reads every type with its states and operations.
func Take(ctx context.Context, catalog ports.Catalog, at time.Time) (Snapshot, error) {
	snap := Snapshot{
		Version:    procmeta.Version,
		ExportedAt: at.UTC(),
		States:     []domain.ProcessState{},
		Operations: []domain.ProcessOperation{},
	}
	types, err := catalog.ListTypes(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list types: %w", err)
	}
	snap.Types = types
	for _, t := range types {
		states, err := catalog.ListStates(ctx, t.ID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("list states of %q: %w", t.Code, err)
		}
		ops, err := catalog.ListOperations(ctx, t.ID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("list operations of %q: %w", t.Code, err)
		}
		snap.States = append(snap.States, states...)
		snap.Operations = append(snap.Operations, ops...)
	}
	return snap, nil
}

// Name is the document name of a snapshot taken at t.
func Name(t time.Time) string {
	return "procmeta-" + t.UTC().Format("20060102T150405Z") + ".json"
}

// Export snapshots catalog and returns where the sink stored it.
func (e *Exporter) Export(ctx context.Context, catalog ports.Catalog) (string, error) {
	now := e.now()
	snap, err := Take(ctx, catalog, now)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	location, err := e.sink.Put(ctx, Name(now), data)
	if err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}
	e.logger.Info("catalog exported", "location", location, "types", len(snap.Types), "states", len(snap.States), "operations", len(snap.Operations))
	return location, nil
}

// Import loads a snapshot into catalog in one transaction. Existing types with
// the same code are replaced; states and operations are created or replaced by id.
func Import(ctx context.Context, catalog ports.Catalog, r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	err := catalog.Atomic(ctx, func(tx ports.Catalog) error {
		var fresh []domain.ProcessType
		for _, t := range snap.Types {
			if _, err := tx.GetType(ctx, t.Code); err == nil {
				if _, err := tx.UpdateType(ctx, t.Code, t); err != nil {
					return fmt.Errorf("update type %q: %w", t.Code, err)
				}
				continue
			}
			fresh = append(fresh, t)
		}
		for _, t := range changes.ParentsFirst(fresh) {
			if _, err := tx.CreateType(ctx, t); err != nil {
				return fmt.Errorf("create type %q: %w", t.Code, err)
			}
		}
		for _, st := range snap.States {
			if _, err := tx.GetState(ctx, st.ID); err == nil {
				_, err = tx.UpdateState(ctx, st.ID, st)
				if err != nil {
					return fmt.Errorf("update state %q: %w", st.Code, err)
				}
				continue
			}
			if _, err := tx.CreateState(ctx, st); err != nil {
				return fmt.Errorf("create state %q: %w", st.Code, err)
			}
		}
		for _, o := range snap.Operations {
			if _, err := tx.GetOperation(ctx, o.ID); err == nil {
				_, err = tx.UpdateOperation(ctx, o.ID, o)
				if err != nil {
					return fmt.Errorf("update operation %q: %w", o.Code, err)
				}
				continue
			}
			if _, err := tx.CreateOperation(ctx, o); err != nil {
				return fmt.Errorf("create operation %q: %w", o.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
