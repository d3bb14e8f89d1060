package http

import (
	"net/http"

	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// -- Types --

// ListTypes handles GET /types.
func (s *Server) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.catalog.ListTypes(r.Context())
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// GetType handles GET /types/{code}.
func (s *Server) GetType(w http.ResponseWriter, r *http.Request) {
	t, err := s.catalog.GetType(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateType handles POST /types.
func (s *Server) CreateType(w http.ResponseWriter, r *http.Request) {
	var t domain.ProcessType
	if !decode(w, r, &t) {
		return
	}
	if err := domain.ValidateType(t); err != nil {
		s.fail(w, r, err, true)
		return
	}
	created, err := s.catalog.CreateType(r.Context(), t)
	if err != nil {
		s.fail(w, r, err, true)
		return
	}
	s.streams.Publish(Event{Kind: domain.KindType, Op: "create", Key: created.Code, TypeCode: created.Code})
	writeJSON(w, http.StatusCreated, created)
}

// UpdateType handles PUT /types/{code}. An empty code in the body keeps the
// code of the path.
func (s *Server) UpdateType(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, err := s.catalog.GetType(r.Context(), code); err != nil {
		s.fail(w, r, err, false)
		return
	}
	var t domain.ProcessType
	if !decode(w, r, &t) {
		return
	}
	if t.Code == "" {
		t.Code = code
	}
	if err := domain.ValidateType(t); err != nil {
		s.fail(w, r, err, true)
		return
	}
	updated, err := s.catalog.UpdateType(r.Context(), code, t)
	if err != nil {
		s.fail(w, r, err, true)
		return
	}
	s.streams.Publish(Event{Kind: domain.KindType, Op: "update", Key: code, TypeCode: code})
	writeJSON(w, http.StatusOK, updated)
}

// DeleteType handles DELETE /types/{code}.
func (s *Server) DeleteType(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := s.catalog.DeleteType(r.Context(), code); err != nil {
		s.fail(w, r, err, false)
		return
	}
	s.streams.Publish(Event{Kind: domain.KindType, Op: "delete", Key: code, TypeCode: code})
	w.WriteHeader(http.StatusNoContent)
}

// typeOf resolves the type of the path, writing a 404 when it is unknown.
func (s *Server) typeOf(w http.ResponseWriter, r *http.Request) (domain.ProcessType, bool) {
	t, err := s.catalog.GetType(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err, false)
		return domain.ProcessType{}, false
	}
	return t, true
}

// typeCodeOf returns the code of a type id, or an empty string.
func (s *Server) typeCodeOf(r *http.Request, typeID string) string {
	types, err := s.catalog.ListTypes(r.Context())
	if err != nil {
		return ""
	}
	for _, t := range types {
		if t.ID == typeID {
			return t.Code
		}
	}
	return ""
}

// -- States --

// ListStates handles GET /types/{code}/states.
func (s *Server) ListStates(w http.ResponseWriter, r *http.Request) {
	t, ok := s.typeOf(w, r)
	if !ok {
		return
	}
	states, err := s.catalog.ListStates(r.Context(), t.ID)
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

// GetState handles GET /states/{id}.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	st, err := s.catalog.GetState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CreateState handles POST /types/{code}/states. The state always belongs to
// the type of the path.
func (s *Server) CreateState(w http.ResponseWriter, r *http.Request) {
	t, ok := s.typeOf(w, r)
	if !ok {
		return
	}
	var st domain.ProcessState
	if !decode(w, r, &st) {
		return
	}
	st.TypeID = t.ID
	if err := domain.ValidateState(st); err != nil {
		s.fail(w, r, err, true)
		return
	}
	created, err := s.catalog.CreateState(r.Context(), st)
	if err != nil {
		s.fail(w, r, err, true)
		return
	}
	s.streams.Publish(Event{Kind: domain.KindState, Op: "create", Key: created.ID, TypeCode: t.Code})
	writeJSON(w, http.StatusCreated, created)
}

// UpdateState handles PUT /states/{id}.
func (s *Server) UpdateState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current, err := s.catalog.GetState(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	var st domain.ProcessState
	if !decode(w, r, &st) {
		return
	}
	if st.TypeID == "" {
		st.TypeID = current.TypeID
	}
	if err := domain.ValidateState(st); err != nil {
		s.fail(w, r, err, true)
		return
	}
	updated, err := s.catalog.UpdateState(r.Context(), id, st)
	if err != nil {
		s.fail(w, r, err, true)
		return
	}
	s.streams.Publish(Event{Kind: domain.KindState, Op: "update", Key: id, TypeCode: s.typeCodeOf(r, updated.TypeID)})
	writeJSON(w, http.StatusOK, updated)
}

// DeleteState handles DELETE /states/{id}.
func (s *Server) DeleteState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current, err := s.catalog.GetState(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	if err := s.catalog.DeleteState(r.Context(), id); err != nil {
		s.fail(w, r, err, false)
		return
	}
	s.streams.Publish(Event{Kind: domain.KindState, Op: "delete", Key: id, TypeCode: s.typeCodeOf(r, current.TypeID)})
	w.WriteHeader(http.StatusNoContent)
}

// -- Operations --

// ListOperations handles GET /types/{code}/operations.
func (s *Server) ListOperations(w http.ResponseWriter, r *http.Request) {
	t, ok := s.typeOf(w, r)
	if !ok {
		return
	}
	ops, err := s.catalog.ListOperations(r.Context(), t.ID)
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

// GetOperation handles GET /operations/{id}.
func (s *Server) GetOperation(w http.ResponseWriter, r *http.Request) {
	o, err := s.catalog.GetOperation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// CreateOperation handles POST /types/{code}/operations.
func (s *Server) CreateOperation(w http.ResponseWriter, r *http.Request) {
	t, ok := s.typeOf(w, r)
	if !ok {
		return
	}
	var o domain.ProcessOperation
	if !decode(w, r, &o) {
		return
	}
	o.TypeID = t.ID
	if err := domain.ValidateOperation(o); err != nil {
		s.fail(w, r, err, true)
		return
	}
	created, err := s.catalog.CreateOperation(r.Context(), o)
	if err != nil {
		s.fail(w, r, err, true)
		return
	}
	s.streams.Publish(Event{Kind: domain.KindOperation, Op: "create", Key: created.ID, TypeCode: t.Code})
	writeJSON(w, http.StatusCreated, created)
}

// UpdateOperation handles PUT /operations/{id}.
func (s *Server) UpdateOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current, err := s.catalog.GetOperation(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	var o domain.ProcessOperation
	if !decode(w, r, &o) {
		return
	}
	if o.TypeID == "" {
		o.TypeID = current.TypeID
	}
	if err := domain.ValidateOperation(o); err != nil {
		s.fail(w, r, err, true)
		return
	}
	updated, err := s.catalog.UpdateOperation(r.Context(), id, o)
	if err != nil {
		s.fail(w, r, err, true)
		return
	}
	s.streams.Publish(Event{Kind: domain.KindOperation, Op: "update", Key: id, TypeCode: s.typeCodeOf(r, updated.TypeID)})
	writeJSON(w, http.StatusOK, updated)
}

// DeleteOperation handles DELETE /operations/{id}.
func (s *Server) DeleteOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current, err := s.catalog.GetOperation(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	if err := s.catalog.DeleteOperation(r.Context(), id); err != nil {
		s.fail(w, r, err, false)
		return
	}
	s.streams.Publish(Event{Kind: domain.KindOperation, Op: "delete", Key: id, TypeCode: s.typeCodeOf(r, current.TypeID)})
	w.WriteHeader(http.StatusNoContent)
}
