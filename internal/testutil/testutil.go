// Package testutil provides common test utilities for the manufacturing
// engine: a migrated in-memory database, seed data, fakes for the service
// ports, and gin request helpers.
package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/manufacturing/internal/domain/catalog"
	"github.com/erp/manufacturing/internal/domain/partner"
	"github.com/erp/manufacturing/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewSQLiteDB opens a migrated in-memory database. A single connection keeps
// every statement, transactions included, on the same memory database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := persistence.Open(sqlite.Open(":memory:"), nil)
	require.NoError(t, err, "Failed to open sqlite")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.AutoMigrate(db), "Failed to migrate schema")
	return db
}

// Dec is shorthand for decimal.NewFromInt
func Dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// SeedProduct stores an untracked stock product with the given cost price
func SeedProduct(t *testing.T, db *gorm.DB, code string, cost int64) *catalog.Product {
	t.Helper()
	return SeedTrackedProduct(t, db, code, cost, catalog.TrackingNone)
}

// SeedTrackedProduct stores a stock product tracked at the given granularity
func SeedTrackedProduct(t *testing.T, db *gorm.DB, code string, cost int64, mode catalog.TrackingMode) *catalog.Product {
	t.Helper()

	p, err := catalog.NewProduct(code, code, "pcs", Dec(cost))
	require.NoError(t, err)
	p.TrackingMode = mode
	require.NoError(t, persistence.NewGormProductRepository(db).Save(context.Background(), p))
	return p
}

// SeedWarehouse stores an active warehouse accepting both directions
func SeedWarehouse(t *testing.T, db *gorm.DB, code string) *partner.Warehouse {
	t.Helper()

	w, err := partner.NewWarehouse(code, code)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormWarehouseRepository(db).Save(context.Background(), w))
	return w
}

// TestContext wraps a Gin test context with HTTP recorder.
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
	Engine   *gin.Engine
}

// NewTestContext creates a new Gin test context.
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	return &TestContext{
		Context:  c,
		Recorder: w,
		Engine:   engine,
	}
}

// SetUserID sets the acting user header on the request.
func (tc *TestContext) SetUserID(id string) {
	tc.Context.Request.Header.Set("X-User-ID", id)
}

// ResponseBody returns the response body as bytes.
func (tc *TestContext) ResponseBody() []byte {
	return tc.Recorder.Body.Bytes()
}

// ResponseCode returns the HTTP status code.
func (tc *TestContext) ResponseCode() int {
	return tc.Recorder.Code
}

// ContextWithTimeout creates a context with a timeout for tests.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually polls condition until it holds or the timeout passes.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}

	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}
