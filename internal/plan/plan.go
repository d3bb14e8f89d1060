// Package plan stages a YAML description of metadata edits into a console
// session. Entities are matched by code: existing ones are updated, unknown
// ones are created. Nothing reaches the backend until the session is saved.
package plan

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/procmeta/pkg/console"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Plan is a batch of edits.
type Plan struct {
	Types      []TypeEntry      `mapstructure:"types"`
	States     []StateEntry     `mapstructure:"states"`
	Operations []OperationEntry `mapstructure:"operations"`
	Delete     Deletions        `mapstructure:"delete"`
}

// TypeEntry is a type keyed by code. Parent names the parent type by code.
type TypeEntry struct {
	domain.ProcessType `mapstructure:",squash"`
	Parent             string `mapstructure:"parent"`
}

// StateEntry is a state of the type named by Type.
type StateEntry struct {
	domain.ProcessState `mapstructure:",squash"`
	Type                string `mapstructure:"type"`
}

// OperationEntry is an operation of the type named by Type.
// From lists the codes of the states it is available from.
type OperationEntry struct {
	domain.ProcessOperation `mapstructure:",squash"`
	Type                    string   `mapstructure:"type"`
	From                    []string `mapstructure:"from"`
}

// Ref names a state or operation by its type code and its own code.
type Ref struct {
	Type string `mapstructure:"type"`
	Code string `mapstructure:"code"`
}

// Deletions lists entities to remove.
type Deletions struct {
	Types      []string `mapstructure:"types"`
	States     []Ref    `mapstructure:"states"`
	Operations []Ref    `mapstructure:"operations"`
}

// Result counts the staged edits.
type Result struct {
	Created int
	Updated int
	Deleted int
}

func (r Result) String() string {
	return fmt.Sprintf("%d created, %d updated, %d deleted", r.Created, r.Updated, r.Deleted)
}

// ErrInvalidPlan is returned for plans that cannot be decoded.
var ErrInvalidPlan = errors.New("invalid plan")

// Decode reads a YAML plan. Unknown keys are rejected.
func Decode(r io.Reader) (Plan, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	var p Plan
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &p,
		ErrorUnused: true,
	})
	if err != nil {
		return Plan{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	return p, nil
}

// Apply stages p into session: deletions first, then types, states and
// operations in file order. It stops at the first edit the session rejects;
// edits staged before it stay buffered.
func Apply(ctx context.Context, session *console.Session, p Plan) (Result, error) {
	a := applier{session: session, loaded: make(map[string]bool)}
	if err := session.Refresh(ctx); err != nil {
		return a.res, err
	}

	steps := []func(context.Context, Plan) error{
		a.deletions,
		a.types,
		a.states,
		a.operations,
	}
	for _, step := range steps {
		if err := step(ctx, p); err != nil {
			return a.res, err
		}
	}
	return a.res, nil
}

type applier struct {
	session *console.Session
	loaded  map[string]bool
	res     Result
}

// load fetches the states and operations of a type once.
func (a *applier) load(ctx context.Context, code string) (domain.ProcessType, error) {
	t, err := a.session.Type(code)
	if err != nil {
		return t, err
	}
	if !a.loaded[code] {
		if err := a.session.LoadType(ctx, code); err != nil {
			return t, err
		}
		a.loaded[code] = true
	}
	return t, nil
}

func (a *applier) stateByCode(ctx context.Context, ref Ref) (domain.ProcessState, bool, error) {
	if _, err := a.load(ctx, ref.Type); err != nil {
		return domain.ProcessState{}, false, err
	}
	for _, st := range a.session.StatesOf(ref.Type) {
		if st.Code == ref.Code {
			return st, true, nil
		}
	}
	return domain.ProcessState{}, false, nil
}

func (a *applier) operationByCode(ctx context.Context, ref Ref) (domain.ProcessOperation, bool, error) {
	if _, err := a.load(ctx, ref.Type); err != nil {
		return domain.ProcessOperation{}, false, err
	}
	for _, o := range a.session.OperationsOf(ref.Type) {
		if o.Code == ref.Code {
			return o, true, nil
		}
	}
	return domain.ProcessOperation{}, false, nil
}

func (a *applier) deletions(ctx context.Context, p Plan) error {
	for _, ref := range p.Delete.Operations {
		o, ok, err := a.operationByCode(ctx, ref)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("delete operation %s/%s: %w", ref.Type, ref.Code, domain.ErrOperationNotFound)
		}
		if err := a.session.DeleteOperation(o.ID); err != nil {
			return err
		}
		a.res.Deleted++
	}
	for _, ref := range p.Delete.States {
		st, ok, err := a.stateByCode(ctx, ref)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("delete state %s/%s: %w", ref.Type, ref.Code, domain.ErrStateNotFound)
		}
		if err := a.session.DeleteState(st.ID); err != nil {
			return err
		}
		a.res.Deleted++
	}
	for _, code := range p.Delete.Types {
		if _, err := a.session.DeleteType(code); err != nil {
			return fmt.Errorf("delete type: %w", err)
		}
		a.res.Deleted++
	}
	return nil
}

func (a *applier) types(_ context.Context, p Plan) error {
	for _, e := range p.Types {
		t := e.ProcessType
		current, err := a.session.Type(t.Code)
		if err != nil && !errors.Is(err, domain.ErrTypeNotFound) {
			return err
		}

		if err == nil {
			t.ID = current.ID
			t.ParentID = current.ParentID
			if e.Parent != "" {
				parent, err := a.session.Type(e.Parent)
				if err != nil {
					return fmt.Errorf("type %q parent: %w", t.Code, err)
				}
				t.ParentID = parent.ID
			}
			if err := a.session.UpdateType(t); err != nil {
				return fmt.Errorf("update type %q: %w", t.Code, err)
			}
			a.res.Updated++
			continue
		}

		if e.Parent == "" {
			_, err = a.session.AddRootType(t)
		} else {
			_, err = a.session.AddChildType(e.Parent, t)
		}
		if err != nil {
			return fmt.Errorf("create type %q: %w", t.Code, err)
		}
		a.res.Created++
	}
	return nil
}

func (a *applier) states(ctx context.Context, p Plan) error {
	for _, e := range p.States {
		owner, err := a.load(ctx, e.Type)
		if err != nil {
			return fmt.Errorf("state %q: %w", e.Code, err)
		}
		st := e.ProcessState
		st.TypeID = owner.ID

		current, ok, err := a.stateByCode(ctx, Ref{Type: e.Type, Code: st.Code})
		if err != nil {
			return err
		}
		if ok {
			st.ID = current.ID
			if err := a.session.UpdateState(st); err != nil {
				return fmt.Errorf("update state %s/%s: %w", e.Type, st.Code, err)
			}
			a.res.Updated++
			continue
		}
		if _, err := a.session.CreateState(st); err != nil {
			return fmt.Errorf("create state %s/%s: %w", e.Type, st.Code, err)
		}
		a.res.Created++
	}
	return nil
}

func (a *applier) operations(ctx context.Context, p Plan) error {
	for _, e := range p.Operations {
		owner, err := a.load(ctx, e.Type)
		if err != nil {
			return fmt.Errorf("operation %q: %w", e.Code, err)
		}
		o := e.ProcessOperation
		o.TypeID = owner.ID

		ids := make([]string, 0, len(e.From))
		for _, code := range e.From {
			st, ok, err := a.stateByCode(ctx, Ref{Type: e.Type, Code: code})
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("operation %s/%s from %q: %w", e.Type, o.Code, code, domain.ErrStateNotFound)
			}
			ids = append(ids, st.ID)
		}
		if len(e.From) > 0 {
			o.AvailableStateIDs = ids
		}

		current, ok, err := a.operationByCode(ctx, Ref{Type: e.Type, Code: o.Code})
		if err != nil {
			return err
		}
		if ok {
			o.ID = current.ID
			if len(e.From) == 0 {
				o.AvailableStateIDs = current.AvailableStateIDs
			}
			if err := a.session.UpdateOperation(o); err != nil {
				return fmt.Errorf("update operation %s/%s: %w", e.Type, o.Code, err)
			}
			a.res.Updated++
			continue
		}
		if _, err := a.session.CreateOperation(o); err != nil {
			return fmt.Errorf("create operation %s/%s: %w", e.Type, o.Code, err)
		}
		a.res.Created++
	}
	return nil
}
