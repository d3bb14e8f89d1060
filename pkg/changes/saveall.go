package changes

import "github.com/aretw0/procmeta/pkg/domain"

// SaveAllRequest is the body of POST /save-all.
//
// Type is upserted by code: created with the other new types when the backend
// does not know it, otherwise updated once they exist. Types carries every buffered
// type change when the whole buffer is flushed in one request.
type SaveAllRequest struct {
	Type            *domain.ProcessType           `json:"type,omitempty"`
	Types           *Set[domain.ProcessType]      `json:"types,omitempty"`
	States          *Set[domain.ProcessState]     `json:"states,omitempty"`
	Operations      *Set[domain.ProcessOperation] `json:"operations,omitempty"`
	OperationStates map[string][]string           `json:"operation_states,omitempty"`
}

// SaveAllResponse is the reply of POST /save-all.
type SaveAllResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewSaveAllRequest returns a request whose sets decode with the right keys.
func NewSaveAllRequest() *SaveAllRequest {
	return &SaveAllRequest{
		Types:      NewSet(domain.TypeKey),
		States:     NewSet(domain.StateKey),
		Operations: NewSet(domain.OperationKey),
	}
}

// BuildSaveAll turns a snapshot into a save-all request. When typeCode names a
// type with a pending create or update, that value is sent as Type and left out
// of Types. Empty sets are omitted.
func BuildSaveAll(snap Snapshot, typeCode string) SaveAllRequest {
	var req SaveAllRequest
	types := snap.Types
	if typeCode != "" {
		if t, ok := types.Lookup(typeCode); ok {
			req.Type = &t
			types = types.Clone(nil)
			types.drop(typeCode)
		}
	}
	if !types.Empty() {
		req.Types = types
	}
	if !snap.States.Empty() {
		req.States = snap.States
	}
	if !snap.Operations.Empty() {
		req.Operations = snap.Operations
		if links := operationStates(snap.Operations); len(links) > 0 {
			req.OperationStates = links
		}
	}
	return req
}
