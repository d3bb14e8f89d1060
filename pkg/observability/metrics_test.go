package observability_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/procmeta/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.ObserveRequest("/api/v1/types", http.MethodGet, http.StatusOK, 10*time.Millisecond)
	m.ObserveSave("batch", nil)
	m.ObserveSave("sequential", errors.New("boom"))
	m.ObserveEdit("state", "create")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `procmeta_http_requests_total{method="GET",route="/api/v1/types",status="OK"} 1`)
	assert.Contains(t, text, `procmeta_saves_total{mode="batch",outcome="success"} 1`)
	assert.Contains(t, text, `procmeta_saves_total{mode="sequential",outcome="failure"} 1`)
	assert.Contains(t, text, `procmeta_buffer_edits_total{kind="state",op="create"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/", http.MethodGet, http.StatusOK, time.Millisecond)
		m.ObserveSave("batch", nil)
		m.ObserveEdit("type", "delete")
	})
}
