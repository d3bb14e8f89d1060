package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/procmeta/pkg/adapters/memory"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/aretw0/procmeta/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t       *testing.T
	handler http.Handler
	catalog *memory.Catalog
}

func newHarness(t *testing.T, opts ...Option) *harness {
	catalog := memory.NewCatalog()
	return &harness{t: t, handler: NewHandler(catalog, opts...), catalog: catalog}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func decodeInto[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func detail(t *testing.T, rr *httptest.ResponseRecorder) string {
	return decodeInto[errorBody](t, rr).Detail
}

func TestGetHealth(t *testing.T) {
	h := newHarness(t)
	rr := h.do("GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeInto[map[string]string](t, rr)["status"])
}

func TestGetInfo(t *testing.T) {
	h := newHarness(t)
	rr := h.do("GET", "/info", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decodeInto[map[string]string](t, rr)
	assert.Equal(t, "procmeta-http", resp["app"])
	assert.NotEmpty(t, resp["version"])
	assert.Equal(t, "1.0.0", resp["api_version"])
}

func TestOpenAPIDocument(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	for _, path := range []string{"/types", "/types/{code}", "/types/{code}/states", "/states/{id}",
		"/types/{code}/operations", "/operations/{id}", "/save-all", "/events"} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}

	h := newHarness(t)
	rr := h.do("GET", "/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "openapi: 3.0.3")

	rr = h.do("GET", "/swagger", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "swagger-ui")
}

func TestCORS(t *testing.T) {
	h := newHarness(t)
	rr := h.do("OPTIONS", "/api/v1/types", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestTypesEndpoints(t *testing.T) {
	h := newHarness(t)

	rr := h.do("POST", "/api/v1/types", domain.ProcessType{Code: "ROOT", NameEN: "Root", NameRU: "Корень"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	root := decodeInto[domain.ProcessType](t, rr)
	assert.NotEmpty(t, root.ID)

	rr = h.do("POST", "/api/v1/types", domain.ProcessType{Code: "LEAF", NameEN: "Leaf", NameRU: "Лист", ParentID: root.ID})
	require.Equal(t, http.StatusCreated, rr.Code)
	leaf := decodeInto[domain.ProcessType](t, rr)

	rr = h.do("GET", "/api/v1/types", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeInto[[]domain.ProcessType](t, rr), 2)

	rr = h.do("GET", "/api/v1/types/LEAF", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, leaf, decodeInto[domain.ProcessType](t, rr))

	t.Run("update keeps id", func(t *testing.T) {
		rr := h.do("PUT", "/api/v1/types/LEAF", domain.ProcessType{NameEN: "Leaf 2", NameRU: "Лист 2", ParentID: root.ID})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		got := decodeInto[domain.ProcessType](t, rr)
		assert.Equal(t, leaf.ID, got.ID)
		assert.Equal(t, "LEAF", got.Code)
		assert.Equal(t, "Leaf 2", got.NameEN)
	})

	t.Run("errors", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, h.do("GET", "/api/v1/types/NOPE", nil).Code)
		assert.Equal(t, http.StatusNotFound, h.do("PUT", "/api/v1/types/NOPE", domain.ProcessType{NameEN: "x", NameRU: "x"}).Code)
		assert.Equal(t, http.StatusNotFound, h.do("DELETE", "/api/v1/types/NOPE", nil).Code)
		assert.Equal(t, http.StatusBadRequest, h.do("POST", "/api/v1/types", "{broken").Code)

		rr := h.do("POST", "/api/v1/types", domain.ProcessType{Code: "ROOT", NameEN: "Again", NameRU: "Снова"})
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, detail(t, rr), "ROOT")

		rr = h.do("POST", "/api/v1/types", domain.ProcessType{Code: "NONAME"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, detail(t, rr), "name_en")

		rr = h.do("PUT", "/api/v1/types/ROOT", domain.ProcessType{NameEN: "Root", NameRU: "Корень", ParentID: leaf.ID})
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = h.do("POST", "/api/v1/types", domain.ProcessType{Code: "ORPHAN", NameEN: "O", NameRU: "О", ParentID: "missing"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("delete detaches children", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, h.do("DELETE", "/api/v1/types/ROOT", nil).Code)
		rr := h.do("GET", "/api/v1/types/LEAF", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, decodeInto[domain.ProcessType](t, rr).ParentID)
	})
}

func TestStatesAndOperationsEndpoints(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.do("POST", "/api/v1/types", domain.ProcessType{Code: "DOC", NameEN: "Document", NameRU: "Документ"}).Code)

	rr := h.do("POST", "/api/v1/types/DOC/states", domain.ProcessState{Code: "DRAFT", NameEN: "Draft", NameRU: "Черновик", Start: true, TypeID: "ignored"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	draft := decodeInto[domain.ProcessState](t, rr)
	docType := decodeInto[domain.ProcessType](t, h.do("GET", "/api/v1/types/DOC", nil))
	assert.Equal(t, docType.ID, draft.TypeID)

	rr = h.do("POST", "/api/v1/types/DOC/states", domain.ProcessState{Code: "SIGNED", NameEN: "Signed", NameRU: "Подписан", ColorCode: "#00ff00"})
	require.Equal(t, http.StatusCreated, rr.Code)
	signed := decodeInto[domain.ProcessState](t, rr)

	rr = h.do("POST", "/api/v1/types/DOC/states", domain.ProcessState{Code: "BAD", NameEN: "Bad", NameRU: "Плохо", ColorCode: "green"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, detail(t, rr), "color_code")

	rr = h.do("POST", "/api/v1/types/DOC/operations", domain.ProcessOperation{
		Code: "SIGN", NameEN: "Sign", NameRU: "Подписать", AvailableStateIDs: []string{draft.ID},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sign := decodeInto[domain.ProcessOperation](t, rr)
	assert.Equal(t, []string{draft.ID}, sign.AvailableStateIDs)

	rr = h.do("POST", "/api/v1/types/DOC/operations", domain.ProcessOperation{
		Code: "GHOST", NameEN: "Ghost", NameRU: "Призрак", AvailableStateIDs: []string{"no-such-state"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do("GET", "/api/v1/types/DOC/states", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeInto[[]domain.ProcessState](t, rr), 2)

	signed.NameEN = "Signed off"
	rr = h.do("PUT", "/api/v1/states/"+signed.ID, domain.ProcessState{Code: "SIGNED", NameEN: "Signed off", NameRU: "Подписан"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, signed.TypeID, decodeInto[domain.ProcessState](t, rr).TypeID)

	sign.AvailableStateIDs = []string{draft.ID, signed.ID}
	rr = h.do("PUT", "/api/v1/operations/"+sign.ID, sign)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Equal(t, http.StatusNoContent, h.do("DELETE", "/api/v1/states/"+draft.ID, nil).Code)
	rr = h.do("GET", "/api/v1/operations/"+sign.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{signed.ID}, decodeInto[domain.ProcessOperation](t, rr).AvailableStateIDs)

	require.Equal(t, http.StatusNoContent, h.do("DELETE", "/api/v1/operations/"+sign.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do("GET", "/api/v1/operations/"+sign.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do("DELETE", "/api/v1/states/"+draft.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do("GET", "/api/v1/types/NOPE/states", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do("POST", "/api/v1/types/NOPE/operations", domain.ProcessOperation{Code: "X", NameEN: "X", NameRU: "X"}).Code)
}

func TestSaveAll(t *testing.T) {
	h := newHarness(t)
	body := `{
		"type": {"id": "t1", "code": "T1", "name_en": "Type", "name_ru": "Тип", "parent_id": "t0"},
		"types": {"created": [{"id": "t0", "code": "T0", "name_en": "Parent", "name_ru": "Родитель"}], "updated": [], "deleted": []},
		"states": {"created": [{"id": "s1", "type_id": "t1", "code": "S1", "name_en": "Start", "name_ru": "Старт", "start": true},
		                       {"id": "s2", "type_id": "t1", "code": "S2", "name_en": "End", "name_ru": "Конец"}], "updated": [], "deleted": []},
		"operations": {"created": [{"id": "o1", "type_id": "t1", "code": "O1", "name_en": "Go", "name_ru": "Вперёд"}], "updated": [], "deleted": []},
		"operation_states": {"o1": ["s1", "s2"]}
	}`
	rr := h.do("POST", "/api/v1/save-all", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeInto[map[string]any](t, rr)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "All changes saved successfully", resp["message"])

	ctx := context.Background()
	t1, err := h.catalog.GetType(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "t0", t1.ParentID)
	op, err := h.catalog.GetOperation(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, op.AvailableStateIDs)

	t.Run("upsert and delete", func(t *testing.T) {
		body := `{
			"type": {"code": "T1", "name_en": "Renamed", "name_ru": "Тип", "parent_id": "t0"},
			"states": {"created": [], "updated": [], "deleted": ["s2", "already-gone"]}
		}`
		rr := h.do("POST", "/api/v1/save-all", body)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		t1, err := h.catalog.GetType(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, "t1", t1.ID)
		assert.Equal(t, "Renamed", t1.NameEN)
		_, err = h.catalog.GetState(ctx, "s2")
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("stored type moved under new type", func(t *testing.T) {
		body := `{
			"type": {"id": "t1", "code": "T1", "name_en": "Renamed", "name_ru": "Тип", "parent_id": "t5"},
			"types": {"created": [{"id": "t5", "code": "T5", "name_en": "Archive", "name_ru": "Архив"}], "updated": [], "deleted": []}
		}`
		rr := h.do("POST", "/api/v1/save-all", body)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		t1, err := h.catalog.GetType(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, "t5", t1.ParentID)
	})

	t.Run("all or nothing", func(t *testing.T) {
		body := `{
			"states": {"created": [{"id": "s3", "type_id": "t1", "code": "S3", "name_en": "Mid", "name_ru": "Середина"}], "updated": [], "deleted": ["s1"]},
			"operations": {"created": [{"id": "o2", "type_id": "missing", "code": "O2", "name_en": "X", "name_ru": "Х"}], "updated": [], "deleted": []}
		}`
		rr := h.do("POST", "/api/v1/save-all", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, detail(t, rr), "O2")

		_, err := h.catalog.GetState(ctx, "s3")
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
		_, err = h.catalog.GetState(ctx, "s1")
		assert.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		rr := h.do("POST", "/api/v1/save-all", `{"states": {"created": [{"id": "s9", "type_id": "t1", "code": "S9"}]}}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, detail(t, rr), "name_en")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, WithMetrics(observability.NewMetrics()))
	h.do("GET", "/api/v1/types", nil)
	h.do("GET", "/api/v1/types/NOPE", nil)

	rr := h.do("GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	out := rr.Body.String()
	assert.Contains(t, out, `procmeta_http_requests_total{method="GET",route="/api/v1/types",status="OK"} 1`)
	assert.Contains(t, out, `route="/api/v1/types/{code}",status="Not Found"`)

	assert.Equal(t, http.StatusNotFound, newHarness(t).do("GET", "/metrics", nil).Code)
}

func TestSubscribeEvents(t *testing.T) {
	server := NewServer(memory.NewCatalog())
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	subscribe := func(query string) *bufio.Reader {
		req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/v1/events"+query, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
		return bufio.NewReader(resp.Body)
	}
	nextData := func(r *bufio.Reader) string {
		for {
			line, err := r.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	all := subscribe("")
	assert.Equal(t, "connected", nextData(all))
	docOnly := subscribe("?type=DOC")
	assert.Equal(t, "connected", nextData(docOnly))
	require.Eventually(t, func() bool { return server.Streams().Subscribers("DOC") == 1 }, time.Second, 10*time.Millisecond)

	post := func(code string) {
		data, _ := json.Marshal(domain.ProcessType{Code: code, NameEN: code, NameRU: code})
		resp, err := http.Post(ts.URL+"/api/v1/types", "application/json", bytes.NewReader(data))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	post("OTHER")
	post("DOC")

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(nextData(all)), &ev))
	assert.Equal(t, Event{Kind: domain.KindType, Op: "create", Key: "OTHER", TypeCode: "OTHER"}, ev)
	require.NoError(t, json.Unmarshal([]byte(nextData(all)), &ev))
	assert.Equal(t, "DOC", ev.Key)

	require.NoError(t, json.Unmarshal([]byte(nextData(docOnly)), &ev))
	assert.Equal(t, "DOC", ev.Key)
}
