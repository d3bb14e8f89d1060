package ports

import (
	"context"

	"github.com/aretw0/procmeta/pkg/domain"
)

// Catalog is the backend repository of process metadata.
//
// Lists are ordered by code. Creates assign an id when the entity has none.
// Lookups of unknown codes or ids return the kind's not-found sentinel
// (domain.ErrTypeNotFound, domain.ErrStateNotFound, domain.ErrOperationNotFound).
type Catalog interface {
	ListTypes(ctx context.Context) ([]domain.ProcessType, error)
	GetType(ctx context.Context, code string) (domain.ProcessType, error)

	// CreateType returns domain.ErrDuplicateCode when the code is taken and
	// rejects parents that do not exist.
	CreateType(ctx context.Context, t domain.ProcessType) (domain.ProcessType, error)

	// UpdateType replaces the type stored under code, keeping its id.
	// The parent must exist and must not be the type or one of its descendants.
	UpdateType(ctx context.Context, code string, t domain.ProcessType) (domain.ProcessType, error)

	// DeleteType removes a type with its states and operations.
	// Its children become roots.
	DeleteType(ctx context.Context, code string) error

	ListStates(ctx context.Context, typeID string) ([]domain.ProcessState, error)
	GetState(ctx context.Context, id string) (domain.ProcessState, error)
	CreateState(ctx context.Context, s domain.ProcessState) (domain.ProcessState, error)
	UpdateState(ctx context.Context, id string, s domain.ProcessState) (domain.ProcessState, error)

	// DeleteState removes a state and unlinks it from every operation.
	DeleteState(ctx context.Context, id string) error

	ListOperations(ctx context.Context, typeID string) ([]domain.ProcessOperation, error)
	GetOperation(ctx context.Context, id string) (domain.ProcessOperation, error)
	CreateOperation(ctx context.Context, o domain.ProcessOperation) (domain.ProcessOperation, error)
	UpdateOperation(ctx context.Context, id string, o domain.ProcessOperation) (domain.ProcessOperation, error)
	DeleteOperation(ctx context.Context, id string) error

	// SetOperationStates replaces the states an operation is available from.
	SetOperationStates(ctx context.Context, operationID string, stateIDs []string) error

	// Atomic runs fn against a transactional view of the catalog.
	// Either every change made through tx is kept or, when fn fails, none is.
	Atomic(ctx context.Context, fn func(tx Catalog) error) error
}
