package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/aretw0/procmeta/pkg/ports"
)

const savedMessage = "All changes saved successfully"

// SaveAll handles POST /save-all. The whole batch runs in one catalog
// transaction. Every kind is applied as deletes, creates and updates, and
// finally the operation links. The single type is upserted by code: created
// with the new types when unknown, otherwise updated after them.
func (s *Server) SaveAll(w http.ResponseWriter, r *http.Request) {
	req := changes.NewSaveAllRequest()
	if !decode(w, r, req) {
		return
	}
	if err := validateRequest(req); err != nil {
		s.fail(w, r, err, true)
		return
	}

	err := s.catalog.Atomic(r.Context(), func(tx ports.Catalog) error {
		return applySaveAll(r.Context(), tx, req)
	})
	s.metrics.ObserveSave("save-all", err)
	if err != nil {
		s.fail(w, r, err, true)
		return
	}
	s.logger.Info("batch saved", "types", setLen(req.Types), "states", setLen(req.States), "operations", setLen(req.Operations))
	s.streams.Publish(Event{Op: "save-all"})
	writeJSON(w, http.StatusOK, changes.SaveAllResponse{Success: true, Message: savedMessage})
}

func setLen[T any](set *changes.Set[T]) int {
	if set == nil {
		return 0
	}
	return set.Len()
}

func validateRequest(req *changes.SaveAllRequest) error {
	var results []error
	if req.Type != nil {
		results = append(results, domain.ValidateType(*req.Type))
	}
	if req.Types != nil {
		for _, t := range append(append([]domain.ProcessType(nil), req.Types.Created...), req.Types.Updated...) {
			results = append(results, domain.ValidateType(t))
		}
	}
	if req.States != nil {
		for _, st := range append(append([]domain.ProcessState(nil), req.States.Created...), req.States.Updated...) {
			results = append(results, domain.ValidateState(st))
		}
	}
	if req.Operations != nil {
		for _, o := range append(append([]domain.ProcessOperation(nil), req.Operations.Created...), req.Operations.Updated...) {
			results = append(results, domain.ValidateOperation(o))
		}
	}
	return domain.Join(results...)
}

// ignoreMissing treats deleting something already gone as done.
func ignoreMissing(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func applySaveAll(ctx context.Context, tx ports.Catalog, req *changes.SaveAllRequest) error {
	var created, updated []domain.ProcessType
	if set := req.Types; set != nil {
		for _, code := range set.Deleted {
			if err := ignoreMissing(tx.DeleteType(ctx, code)); err != nil {
				return fmt.Errorf("delete type %q: %w", code, err)
			}
		}
		created = append(created, set.Created...)
	}
	if req.Type != nil {
		// The single type is created with the other new types, parents first,
		// or updated once they exist, since its parent may be one of them.
		exists, err := typeExists(ctx, tx, req.Type.Code)
		if err != nil {
			return err
		}
		if exists {
			updated = append(updated, *req.Type)
		} else {
			created = append(created, *req.Type)
		}
	}
	if set := req.Types; set != nil {
		updated = append(updated, set.Updated...)
	}

	for _, t := range changes.ParentsFirst(created) {
		if _, err := tx.CreateType(ctx, t); err != nil {
			return fmt.Errorf("create type %q: %w", t.Code, err)
		}
	}
	for _, t := range updated {
		if _, err := tx.UpdateType(ctx, t.Code, t); err != nil {
			return fmt.Errorf("update type %q: %w", t.Code, err)
		}
	}

	if set := req.States; set != nil {
		for _, id := range set.Deleted {
			if err := ignoreMissing(tx.DeleteState(ctx, id)); err != nil {
				return fmt.Errorf("delete state %q: %w", id, err)
			}
		}
		for _, st := range set.Created {
			if _, err := tx.CreateState(ctx, st); err != nil {
				return fmt.Errorf("create state %q: %w", st.Code, err)
			}
		}
		for _, st := range set.Updated {
			if _, err := tx.UpdateState(ctx, st.ID, st); err != nil {
				return fmt.Errorf("update state %q: %w", st.Code, err)
			}
		}
	}

	if set := req.Operations; set != nil {
		for _, id := range set.Deleted {
			if err := ignoreMissing(tx.DeleteOperation(ctx, id)); err != nil {
				return fmt.Errorf("delete operation %q: %w", id, err)
			}
		}
		for _, o := range set.Created {
			if _, err := tx.CreateOperation(ctx, o); err != nil {
				return fmt.Errorf("create operation %q: %w", o.Code, err)
			}
		}
		for _, o := range set.Updated {
			if _, err := tx.UpdateOperation(ctx, o.ID, o); err != nil {
				return fmt.Errorf("update operation %q: %w", o.Code, err)
			}
		}
	}

	for opID, stateIDs := range req.OperationStates {
		if err := tx.SetOperationStates(ctx, opID, stateIDs); err != nil {
			return fmt.Errorf("link operation %q: %w", opID, err)
		}
	}
	return nil
}

// typeExists reports whether a type with code is stored.
func typeExists(ctx context.Context, tx ports.Catalog, code string) (bool, error) {
	_, err := tx.GetType(ctx, code)
	if errors.Is(err, domain.ErrTypeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up type %q: %w", code, err)
	}
	return true, nil
}
