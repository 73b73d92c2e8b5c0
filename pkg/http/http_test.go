package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listQuery struct {
	Direction string `query:"direction" validate:"omitempty,oneof=rise fall"`
	Limit     int    `query:"limit" default:"50" validate:"gte=1,lte=100"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/x?direction=rise", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	var q listQuery
	assert.Nil(t, ReadAndValidateRequest(c, &q))
	assert.Equal(t, "rise", q.Direction)
	assert.Equal(t, 50, q.Limit)

	req = httptest.NewRequest(http.MethodGet, "/x?direction=up&limit=500", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	q = listQuery{}
	errs, ok := ReadAndValidateRequest(c, &q).([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, "ERR_ONEOF", errs[0].Code)
	assert.Equal(t, "direction", errs[0].Field)
	assert.Equal(t, "direction must be one of rise, fall", errs[0].Message)
	assert.Equal(t, "ERR_LTE", errs[1].Code)
	assert.Equal(t, "limit must be at most 100", errs[1].Message)
	assert.Equal(t, "100", errs[1].Params["max"])
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, NotFoundError("no thresholds")))
	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Status)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, fmt.Errorf("load: %w", context.DeadlineExceeded)))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusGatewayTimeout, body.Status)
	assert.Contains(t, rec.Body.String(), "ERR_TIMEOUT")
	assert.NotContains(t, rec.Body.String(), "load:")
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(pingHandler{}, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.local")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) == `{"ok":true}` {
			_, _ = w.Write([]byte(`{"result":1}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := NewClient()
	var out struct{ Result int }
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodPost, URL: srv.URL, Body: map[string]bool{"ok": true}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Result)

	err = c.SendAndParse(context.Background(), &RequestOptions{Method: MethodPost, URL: srv.URL, Body: "nope"}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.True(t, se.Retryable())
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
}

func TestServerMiddlewareAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(pingHandler{}, nil, reg)

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pricepulse_http_requests_total{method="GET",route="/ping",status="200"} 1`)
}
