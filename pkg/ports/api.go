package ports

import (
	"context"

	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/domain"
)

// API is the remote data access used by a console session.
// States and operations are addressed through the code of their type.
type API interface {
	ListTypes(ctx context.Context) ([]domain.ProcessType, error)
	GetType(ctx context.Context, code string) (domain.ProcessType, error)
	CreateType(ctx context.Context, t domain.ProcessType) (domain.ProcessType, error)
	UpdateType(ctx context.Context, code string, t domain.ProcessType) (domain.ProcessType, error)
	DeleteType(ctx context.Context, code string) error

	ListStates(ctx context.Context, typeCode string) ([]domain.ProcessState, error)
	GetState(ctx context.Context, id string) (domain.ProcessState, error)
	CreateState(ctx context.Context, typeCode string, s domain.ProcessState) (domain.ProcessState, error)
	UpdateState(ctx context.Context, id string, s domain.ProcessState) (domain.ProcessState, error)
	DeleteState(ctx context.Context, id string) error

	ListOperations(ctx context.Context, typeCode string) ([]domain.ProcessOperation, error)
	GetOperation(ctx context.Context, id string) (domain.ProcessOperation, error)
	CreateOperation(ctx context.Context, typeCode string, o domain.ProcessOperation) (domain.ProcessOperation, error)
	UpdateOperation(ctx context.Context, id string, o domain.ProcessOperation) (domain.ProcessOperation, error)
	DeleteOperation(ctx context.Context, id string) error

	// SaveAll submits a whole batch in one request.
	SaveAll(ctx context.Context, req changes.SaveAllRequest) (changes.SaveAllResponse, error)
}
