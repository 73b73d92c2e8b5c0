package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/repository"
	"PricePulse/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, checks ...HealthCheck) *echo.Echo {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	preds := repository.NewFilePredictionLedger(dir)
	outs := repository.NewFileOutcomeLedger(dir)
	thr := repository.NewFileThresholdStore(dir)

	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := preds.Append(ctx, []models.Prediction{
		{EntityID: 1, Name: "Alpha", Date: d1, Direction: models.DirectionRise, AlertLevel: models.AlertImminent, Confidence: 0.9},
		{EntityID: 2, Name: "Beta", Date: d1, Direction: models.DirectionFall, AlertLevel: models.AlertWarming, Confidence: 0.5},
		{EntityID: 3, Name: "Gamma", Date: d1, Direction: models.DirectionNone, AlertLevel: models.AlertNone},
	})
	require.NoError(t, err)
	_, err = outs.Append(ctx, []models.Outcome{
		{EntityID: 1, Date: d1.AddDate(0, 0, 1), ActualChange: models.DirectionRise},
		{EntityID: 2, Date: d1.AddDate(0, 0, 1), ActualChange: models.DirectionRise},
	})
	require.NoError(t, err)

	e := echo.New()
	NewHandler(nil, usecase.NewReportUseCase(preds, outs, thr, models.DefaultReportScope(), 1), checks...).RegisterRoutes(e)
	return e
}

func get(t *testing.T, e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, HealthCheck{Name: "ledger", Check: func(context.Context) error { return nil }})
	rec, env := get(t, e, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)

	e = newTestServer(t, HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("dial tcp: refused") }})
	rec, env = get(t, e, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, string(env.Data), "refused")
}

func TestAccuracy(t *testing.T) {
	e := newTestServer(t)
	_, env := get(t, e, "/api/accuracy?from=2024-03-01&to=2024-03-01")
	require.Equal(t, http.StatusOK, env.Status)

	var rep models.AccuracyReport
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 1, rep.Correct)
	assert.Equal(t, 1, rep.Horizon)

	_, env = get(t, e, "/api/accuracy?scope=imminent")
	require.Equal(t, http.StatusOK, env.Status)
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	assert.Equal(t, 1, rep.Total)
	assert.Equal(t, 1, rep.Correct)

	_, env = get(t, e, "/api/accuracy?scope=everything")
	assert.Equal(t, http.StatusBadRequest, env.Status)

	_, env = get(t, e, "/api/accuracy?from=2024-03-05&to=2024-03-01")
	assert.Equal(t, http.StatusBadRequest, env.Status)

	_, env = get(t, e, "/api/accuracy?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestThresholds(t *testing.T) {
	e := newTestServer(t)
	_, env := get(t, e, "/api/thresholds")
	require.Equal(t, http.StatusOK, env.Status)
	var set models.ThresholdSet
	require.NoError(t, json.Unmarshal(env.Data, &set))
	assert.Equal(t, models.DefaultThresholdVersion, set.Version)
	assert.Len(t, set.Cutoffs, len(models.Buckets))
}

func TestPredictions(t *testing.T) {
	e := newTestServer(t)
	_, env := get(t, e, "/api/predictions?date=2024-03-01&direction=rise")
	require.Equal(t, http.StatusOK, env.Status)
	var list struct {
		Rows  []models.Prediction `json:"rows"`
		Total int64               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Rows, 1)
	assert.Equal(t, "Alpha", list.Rows[0].Name)

	_, env = get(t, e, "/api/predictions")
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(3), list.Total)

	_, env = get(t, e, "/api/predictions?alert=loud")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}
