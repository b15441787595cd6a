package middleware

import (
	"context"
	"net/http"
	"runtime/pprof"
	"strings"
	"testing"
	"time"

	"github.com/erp/manufacturing/internal/interfaces/http/dto"
	"github.com/erp/manufacturing/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"ok": true}))
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://plant.example.com"}
	r := testutil.NewEngine()
	r.Use(CORS(cfg))
	r.GET("/ping", okHandler)

	t.Run("allowed origin", func(t *testing.T) {
		w := testutil.Do(t, r, http.MethodGet, "/ping", nil, map[string]string{"Origin": "https://plant.example.com"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://plant.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-User-ID")
	})

	t.Run("foreign origin gets no headers", func(t *testing.T) {
		w := testutil.Do(t, r, http.MethodGet, "/ping", nil, map[string]string{"Origin": "https://evil.example.com"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		w := testutil.Do(t, r, http.MethodOptions, "/ping", nil, map[string]string{"Origin": "https://plant.example.com"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})
}

func TestSecureAndNoRoute(t *testing.T) {
	r := testutil.NewEngine()
	r.Use(Secure())
	r.NoRoute(NoRoute())

	w := testutil.Do(t, r, http.MethodGet, "/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	testutil.AssertErrorResponse(t, w, dto.ErrCodeRouteMissing)
}

func TestBodyLimit(t *testing.T) {
	r := testutil.NewEngine()
	r.Use(BodyLimit(16))
	r.POST("/echo", okHandler)

	w := testutil.Do(t, r, http.MethodPost, "/echo", map[string]string{"note": strings.Repeat("x", 64)}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeTooLarge)

	w = testutil.Do(t, r, http.MethodPost, "/echo", map[string]string{"a": "b"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	_, err := RateLimit(RateLimitConfig{Requests: 0, Window: time.Minute})
	require.Error(t, err)

	mw, err := RateLimit(RateLimitConfig{Requests: 2, Window: time.Minute})
	require.NoError(t, err)
	r := testutil.NewEngine()
	r.Use(mw)
	r.GET("/ping", okHandler)

	for i := 0; i < 2; i++ {
		w := testutil.Do(t, r, http.MethodGet, "/ping", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}
	w := testutil.Do(t, r, http.MethodGet, "/ping", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeRateLimited)
}

type quantityRequest struct {
	ProductID       int64           `json:"product_id" binding:"required,min=1"`
	Quantity        decimal.Decimal `json:"quantity" binding:"decimal_positive"`
	Scrap           decimal.Decimal `json:"scrap" binding:"decimal_nonnegative"`
	FromWarehouseID int64           `json:"from_warehouse_id" binding:"required"`
	ToWarehouseID   int64           `json:"to_warehouse_id" binding:"required,nefield=FromWarehouseID"`
}

func TestValidation(t *testing.T) {
	require.NoError(t, SetupValidator())

	r := testutil.NewEngine()
	r.POST("/moves", func(c *gin.Context) {
		var req quantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", "", FormatValidationErrors(err)))
			return
		}
		okHandler(c)
	})

	t.Run("valid", func(t *testing.T) {
		w := testutil.Do(t, r, http.MethodPost, "/moves", gin.H{
			"product_id": 1, "quantity": "2.5", "scrap": "0", "from_warehouse_id": 1, "to_warehouse_id": 2,
		}, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid fields are reported by json name", func(t *testing.T) {
		w := testutil.Do(t, r, http.MethodPost, "/moves", gin.H{
			"product_id": 1, "quantity": "0", "scrap": "-1", "from_warehouse_id": 3, "to_warehouse_id": 3,
		}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)
		fields := resp["error"].(map[string]any)["fields"].([]any)
		messages := map[string]string{}
		for _, f := range fields {
			m := f.(map[string]any)
			messages[m["field"].(string)] = m["message"].(string)
		}
		assert.Equal(t, "Must be a positive quantity", messages["quantity"])
		assert.Equal(t, "Must not be negative", messages["scrap"])
		assert.Equal(t, "Must differ from from_warehouse_id", messages["to_warehouse_id"])
	})

	assert.Nil(t, FormatValidationErrors(assert.AnError))
}

func TestToJSONName(t *testing.T) {
	assert.Equal(t, "from_warehouse_id", toJSONName("FromWarehouseID"))
	assert.Equal(t, "bom_id", toJSONName("BOMID"))
	assert.Equal(t, "quantity", toJSONName("Quantity"))
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mw, err := HTTPMetrics(provider.Meter("test"))
	require.NoError(t, err)

	r := testutil.NewEngine()
	r.Use(mw)
	r.GET("/orders/:id", okHandler)

	testutil.Do(t, r, http.MethodGet, "/orders/1", nil, nil)
	testutil.Do(t, r, http.MethodGet, "/orders/2", nil, nil)
	testutil.Do(t, r, http.MethodGet, "/nowhere", nil, nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	routes := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http.server.requests" {
				continue
			}
			sum := m.Data.(metricdata.Sum[int64])
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value("http.route")
				routes[route.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), routes["/orders/:id"])
	assert.Equal(t, int64(1), routes[unmatchedRoute])
}

func TestProfiling_LabelsMatchedRoutes(t *testing.T) {
	r := testutil.NewEngine()
	r.Use(Profiling())
	var route, method string
	r.GET("/orders/:id", func(c *gin.Context) {
		route, _ = pprof.Label(c.Request.Context(), "route")
		method, _ = pprof.Label(c.Request.Context(), "method")
		c.Status(http.StatusNoContent)
	})

	w := testutil.Do(t, r, http.MethodGet, "/orders/42", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "/orders/:id", route)
	assert.Equal(t, http.MethodGet, method)
}
