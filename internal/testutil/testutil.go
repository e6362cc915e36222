// Package testutil provides the sqlite-backed store, seed fixtures and
// HTTP helpers shared by the package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Store is an in-memory sqlite database with the full schema and the
// repositories on top of it
type Store struct {
	DB    *gorm.DB
	Repos txn.Repositories
	Scope txn.TransactionScope
}

// NewStore opens a private in-memory database and migrates every model.
// The connection pool is pinned to one connection so the schema survives.
func NewStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	database, err := persistence.Open(sqlite.Open(dsn), persistence.Options{})
	require.NoError(t, err, "Failed to open sqlite")

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.AutoMigrate(database.DB), "Failed to migrate schema")

	return &Store{
		DB:    database.DB,
		Repos: persistence.NewRepositories(database.DB),
		Scope: persistence.NewGormTransactionScope(database.DB),
	}
}

// MockDB wraps a GORM postgres dialector over sqlmock for query-shape tests
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a sqlmock-backed database closed on test cleanup
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = sqlDB.Close() })

	database, err := persistence.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), persistence.Options{})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{DB: database.DB, Mock: mock, SqlDB: sqlDB}
}

// ExpectationsWereMet verifies that all expectations were met
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// Context returns a context cancelled when the test ends
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Day builds a UTC date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
