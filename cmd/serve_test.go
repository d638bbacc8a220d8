package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

func newServeTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	_, err = st.SeedTaxonomy(context.Background(), store.DefaultTaxonomy())
	require.NoError(t, err)
	return st
}

func TestServe_Health(t *testing.T) {
	router := newRouter(newServeTestStore(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServe_DataPoints(t *testing.T) {
	st := newServeTestStore(t)
	ctx := context.Background()

	id, err := st.AddDataPoint(ctx, store.AddDataPointInput{
		Dimension: "market_size",
		Value:     model.NumberValue(52.8),
		Sector:    "Industrial Robotics",
		Year:      2025,
	})
	require.NoError(t, err)

	router := newRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data-points?sector=Industrial+Robotics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var points []model.DataPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.Equal(t, id, points[0].ID)

	// Unmatched filter returns an empty array, not null.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data-points?sector=Mobile+Robotics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestServe_DataPointByID(t *testing.T) {
	st := newServeTestStore(t)
	id, err := st.AddDataPoint(context.Background(), store.AddDataPointInput{
		Dimension: "market_size",
		Value:     model.NumberValue(10),
	})
	require.NoError(t, err)

	router := newRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data-points/"+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data-points/nonexistent", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_ChangesAndStats(t *testing.T) {
	st := newServeTestStore(t)
	_, err := st.AddDataPoint(context.Background(), store.AddDataPointInput{
		Dimension: "market_size",
		Value:     model.NumberValue(10),
	})
	require.NoError(t, err)

	router := newRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/changes?table=data_points", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []model.ChangeLogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats model.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TableCounts["data_points"])
}

func TestServe_Detected(t *testing.T) {
	router := newRouter(newServeTestStore(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/detected", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}
