package console_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/domain"
)

// call is one request seen by fakeAPI.
type call struct {
	Method string
	Path   string
	Body   any
}

// fakeAPI records every request and serves canned lists.
type fakeAPI struct {
	mu    sync.Mutex
	calls []call

	types      []domain.ProcessType
	states     map[string][]domain.ProcessState
	operations map[string][]domain.ProcessOperation

	// fail maps "METHOD path" to the error returned for it.
	fail map[string]error
	// block, when set, is waited on by every write.
	block chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		states:     make(map[string][]domain.ProcessState),
		operations: make(map[string][]domain.ProcessOperation),
		fail:       make(map[string]error),
	}
}

func (f *fakeAPI) record(method, path string, body any) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{Method: method, Path: path, Body: body})
	err := f.fail[method+" "+path]
	block := f.block
	f.mu.Unlock()
	if block != nil && method != "GET" {
		<-block
	}
	return err
}

func (f *fakeAPI) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// Writes returns every non-GET call.
func (f *fakeAPI) Writes() []call {
	var out []call
	for _, c := range f.Calls() {
		if c.Method != "GET" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) ListTypes(ctx context.Context) ([]domain.ProcessType, error) {
	if err := f.record("GET", "/types", nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ProcessType(nil), f.types...), nil
}

func (f *fakeAPI) GetType(ctx context.Context, code string) (domain.ProcessType, error) {
	if err := f.record("GET", "/types/"+code, nil); err != nil {
		return domain.ProcessType{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.types {
		if t.Code == code {
			return t, nil
		}
	}
	return domain.ProcessType{}, domain.ErrTypeNotFound
}

func (f *fakeAPI) CreateType(ctx context.Context, t domain.ProcessType) (domain.ProcessType, error) {
	return t, f.record("POST", "/types", t)
}

func (f *fakeAPI) UpdateType(ctx context.Context, code string, t domain.ProcessType) (domain.ProcessType, error) {
	return t, f.record("PUT", "/types/"+code, t)
}

func (f *fakeAPI) DeleteType(ctx context.Context, code string) error {
	return f.record("DELETE", "/types/"+code, nil)
}

func (f *fakeAPI) ListStates(ctx context.Context, typeCode string) ([]domain.ProcessState, error) {
	if err := f.record("GET", "/types/"+typeCode+"/states", nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ProcessState(nil), f.states[typeCode]...), nil
}

func (f *fakeAPI) GetState(ctx context.Context, id string) (domain.ProcessState, error) {
	return domain.ProcessState{}, f.record("GET", "/states/"+id, nil)
}

func (f *fakeAPI) CreateState(ctx context.Context, typeCode string, s domain.ProcessState) (domain.ProcessState, error) {
	return s, f.record("POST", "/types/"+typeCode+"/states", s)
}

func (f *fakeAPI) UpdateState(ctx context.Context, id string, s domain.ProcessState) (domain.ProcessState, error) {
	return s, f.record("PUT", "/states/"+id, s)
}

func (f *fakeAPI) DeleteState(ctx context.Context, id string) error {
	return f.record("DELETE", "/states/"+id, nil)
}

func (f *fakeAPI) ListOperations(ctx context.Context, typeCode string) ([]domain.ProcessOperation, error) {
	if err := f.record("GET", "/types/"+typeCode+"/operations", nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ProcessOperation(nil), f.operations[typeCode]...), nil
}

func (f *fakeAPI) GetOperation(ctx context.Context, id string) (domain.ProcessOperation, error) {
	return domain.ProcessOperation{}, f.record("GET", "/operations/"+id, nil)
}

func (f *fakeAPI) CreateOperation(ctx context.Context, typeCode string, o domain.ProcessOperation) (domain.ProcessOperation, error) {
	return o, f.record("POST", "/types/"+typeCode+"/operations", o)
}

func (f *fakeAPI) UpdateOperation(ctx context.Context, id string, o domain.ProcessOperation) (domain.ProcessOperation, error) {
	return o, f.record("PUT", "/operations/"+id, o)
}

func (f *fakeAPI) DeleteOperation(ctx context.Context, id string) error {
	return f.record("DELETE", "/operations/"+id, nil)
}

func (f *fakeAPI) SaveAll(ctx context.Context, req changes.SaveAllRequest) (changes.SaveAllResponse, error) {
	if err := f.record("POST", "/save-all", req); err != nil {
		return changes.SaveAllResponse{}, err
	}
	return changes.SaveAllResponse{Success: true, Message: "All changes saved successfully"}, nil
}

// sequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// sample server data: root R with child C, C owns states s1, s2 and operation o1.
func seed(f *fakeAPI) {
	f.types = []domain.ProcessType{
		{ID: "r", Code: "R", NameEN: "Root", NameRU: "Корень"},
		{ID: "c", Code: "C", NameEN: "Child", NameRU: "Дочерний", ParentID: "r"},
	}
	f.states["C"] = []domain.ProcessState{
		{ID: "s1", TypeID: "c", Code: "NEW", NameEN: "New", NameRU: "Новый", Start: true},
		{ID: "s2", TypeID: "c", Code: "DONE", NameEN: "Done", NameRU: "Готов"},
	}
	f.operations["C"] = []domain.ProcessOperation{
		{ID: "o1", TypeID: "c", Code: "FINISH", NameEN: "Finish", NameRU: "Завершить", AvailableStateIDs: []string{"s1", "s2"}},
	}
}
