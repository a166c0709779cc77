package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustfahassan/pd-calculator/internal/store"
)

func TestCalculationsHandler(t *testing.T) {
	s := newTestStore(t)
	first := &store.Calculation{Status: "success", PDMM: 62.5, Confidence: 91}
	require.NoError(t, s.Calculations().Create(first))
	require.NoError(t, s.Calculations().Create(&store.Calculation{Status: "error", Message: "low confidence"}))

	h := NewCalculationsHandler(s)

	t.Run("lists calculations", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calculations", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body listCalculationsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Calculations, 2)
	})

	t.Run("honours limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calculations?limit=1", nil))

		var body listCalculationsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Calculations, 1)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calculations?limit=abc", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("gets one calculation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calculations/"+first.ID, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var calc store.Calculation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &calc))
		assert.Equal(t, 62.5, calc.PDMM)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calculations/nope", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("only GET", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/calculations", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
