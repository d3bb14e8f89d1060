package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/client"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Body   string
}

// fakeBackend records every request and answers from a route table.
func fakeBackend(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{Method: r.Method, Path: r.URL.EscapedPath(), Body: string(body)})
		if h, ok := routes[r.Method+" "+r.URL.EscapedPath()]; ok {
			h(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func reply(v any) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func TestClient_Reads(t *testing.T) {
	srv, calls := fakeBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/v1/types":               reply([]domain.ProcessType{{ID: "1", Code: "T1"}}),
		"GET /api/v1/types/T1":            reply(domain.ProcessType{ID: "1", Code: "T1"}),
		"GET /api/v1/types/T1/states":     reply([]domain.ProcessState{{ID: "s1", Start: true}}),
		"GET /api/v1/types/T1/operations": reply([]domain.ProcessOperation{{ID: "o1", AvailableStateIDs: []string{"s1"}}}),
		"GET /api/v1/states/s1":           reply(domain.ProcessState{ID: "s1"}),
		"GET /api/v1/operations/o1":       reply(domain.ProcessOperation{ID: "o1"}),
	})
	c := client.New(srv.URL + "/")
	ctx := context.Background()

	types, err := c.ListTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T1", types[0].Code)

	tp, err := c.GetType(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "1", tp.ID)

	states, err := c.ListStates(ctx, "T1")
	require.NoError(t, err)
	assert.True(t, states[0].Start)

	ops, err := c.ListOperations(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ops[0].AvailableStateIDs)

	_, err = c.GetState(ctx, "s1")
	require.NoError(t, err)
	_, err = c.GetOperation(ctx, "o1")
	require.NoError(t, err)

	assert.Len(t, *calls, 6)
}

func TestClient_NotFoundMapsToKindSentinel(t *testing.T) {
	srv, _ := fakeBackend(t, nil)
	c := client.New(srv.URL)
	ctx := context.Background()

	_, err := c.GetType(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrTypeNotFound)

	_, err = c.GetState(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)

	err = c.DeleteOperation(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrOperationNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_StatusError(t *testing.T) {
	srv, _ := fakeBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /api/v1/types": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"detail":"type code already exists"}`))
		},
	})
	c := client.New(srv.URL)

	_, err := c.CreateType(context.Background(), domain.ProcessType{Code: "T1"})

	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
	assert.Equal(t, "type code already exists", statusErr.Detail)
	assert.NotErrorIs(t, err, domain.ErrTransport)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := client.New(url).ListTypes(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_WritesSendJSONBodies(t *testing.T) {
	srv, calls := fakeBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /api/v1/types/T%201/states": reply(domain.ProcessState{ID: "s1"}),
		"PUT /api/v1/states/s1":           reply(domain.ProcessState{ID: "s1"}),
		"DELETE /api/v1/types/T%201": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	})
	c := client.New(srv.URL)
	ctx := context.Background()

	_, err := c.CreateState(ctx, "T 1", domain.ProcessState{ID: "s1", TypeID: "t1", Code: "S1", Start: true})
	require.NoError(t, err)
	_, err = c.UpdateState(ctx, "s1", domain.ProcessState{ID: "s1", Code: "S1"})
	require.NoError(t, err)
	require.NoError(t, c.DeleteType(ctx, "T 1"))

	require.Len(t, *calls, 3)
	first := (*calls)[0]
	assert.Equal(t, http.MethodPost, first.Method)
	assert.JSONEq(t, `{"id":"s1","type_id":"t1","code":"S1","name_en":"","name_ru":"",
		"allow_edit":false,"allow_delete":false,"start":true}`, first.Body)
	assert.Equal(t, http.MethodDelete, (*calls)[2].Method)
}

func TestClient_SaveAll(t *testing.T) {
	b := changes.NewBuffer()
	b.DeleteState("s1")
	req := changes.BuildSaveAll(b.Snapshot(), "")

	srv, calls := fakeBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /api/v1/save-all": reply(changes.SaveAllResponse{Success: true, Message: "All changes saved successfully"}),
	})
	resp, err := client.New(srv.URL).SaveAll(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"states":{"created":[],"updated":[],"deleted":["s1"]}}`, (*calls)[0].Body)
}

func TestClient_SaveAllUnsuccessfulReply(t *testing.T) {
	srv, _ := fakeBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /api/v1/save-all": reply(changes.SaveAllResponse{Success: false, Message: "rejected"}),
	})

	_, err := client.New(srv.URL).SaveAll(context.Background(), changes.SaveAllRequest{})

	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "rejected", statusErr.Detail)
}
