//go:build integration

package persistence_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/numbering"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/madrasa/backend/internal/infrastructure/migration"
	"github.com/madrasa/backend/internal/infrastructure/persistence"
	"github.com/madrasa/backend/internal/testutil"
	"github.com/madrasa/backend/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
)

// newPostgresStore starts a throwaway postgres, applies the embedded
// migrations and returns a store over it
func newPostgresStore(t *testing.T) *testutil.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("madrasa_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	database, err := persistence.Open(gormpostgres.Open(dsn), persistence.Options{})
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	migrator, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up(), "Failed to apply migrations")

	return &testutil.Store{
		DB:    database.DB,
		Repos: persistence.NewRepositories(database.DB),
		Scope: persistence.NewGormTransactionScope(database.DB),
	}
}

func TestPostgres_ConcurrentIdentifiers(t *testing.T) {
	st := newPostgresStore(t)
	ctx := testutil.Context(t)
	tenant := uuid.New()
	scope := numbering.AdmissionScope("NOOR")

	const workers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := st.Repos.Sequences().Next(ctx, tenant, scope, nil)
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers, "no number is handed out twice")
	for n := int64(1); n <= workers; n++ {
		assert.True(t, seen[n], "gap at %d", n)
	}
}

func TestPostgres_DueKeyHoldsUnderRace(t *testing.T) {
	st := newPostgresStore(t)
	ctx := testutil.Context(t)
	school := st.SeedSchool(t, "NOOR")
	tuition, _ := st.SeedFee(t, school, "Tuition", fee.TriggerMonthly, nil, 500)
	s, _ := st.SeedStudent(t, school, "NOOR0001", student.CategoryPermanent)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			due, err := fee.NewStudentFeeDue(school.TenantID(), fee.DueInput{
				StudentID:      s.ID,
				AcademicYearID: school.Year.ID,
				FeeTypeID:      tuition.ID,
				Month:          9,
				Total:          decimal.NewFromInt(500),
				DueDate:        testutil.Day(2024, time.September, 11),
				Source:         fee.SourceAutoMonthly,
			})
			if !assert.NoError(t, err) {
				return
			}
			ok, err := st.Repos.Dues().CreateIfAbsent(ctx, due)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)

	dues, err := st.Repos.Dues().ListForStudent(ctx, school.TenantID(), s.ID, &school.Year.ID)
	require.NoError(t, err)
	require.Len(t, dues, 1)
	assert.Equal(t, "500.00", dues[0].DueAmount.StringFixed(2))
}

func TestPostgres_TenantIsolation(t *testing.T) {
	st := newPostgresStore(t)
	ctx := testutil.Context(t)
	noor := st.SeedSchool(t, "NOOR")
	huda := st.SeedSchool(t, "HUDA")
	s, _ := st.SeedStudent(t, noor, "NOOR0001", student.CategoryPermanent)

	_, err := st.Repos.Students().FindByIDForTenant(ctx, huda.TenantID(), s.ID)
	assert.True(t, shared.IsNotFound(err))

	_, err = st.Repos.AcademicYears().FindByIDForTenant(ctx, noor.TenantID(), huda.Year.ID)
	assert.True(t, shared.IsNotFound(err))

	found, err := st.Repos.Students().FindByIDForTenant(ctx, noor.TenantID(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "NOOR0001", found.AdmissionNumber)
}
