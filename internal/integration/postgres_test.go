package integration

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lab-scheduler/internal/app"
	"lab-scheduler/internal/config"
	"lab-scheduler/internal/database"
	"lab-scheduler/internal/database/migration"
	dbpostgres "lab-scheduler/internal/database/postgres"
	"lab-scheduler/internal/database/seeder"
	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/material"
	"lab-scheduler/internal/infrastructure/cache"
	"lab-scheduler/internal/usecase"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	host := strings.TrimSpace(os.Getenv("LAB_TEST_DB_HOST"))
	if host == "" {
		t.Skip("LAB_TEST_DB_HOST not set")
	}
	get := func(key, def string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return def
	}
	return config.Config{
		App: config.AppConfig{AppName: "lab-scheduler-it", Store: config.StorePostgres},
		Database: config.DatabaseConfig{
			DBHost:     host,
			DBPort:     get("LAB_TEST_DB_PORT", "5432"),
			DBName:     get("LAB_TEST_DB_NAME", "lab_scheduler_test"),
			DBUser:     get("LAB_TEST_DB_USER", "postgres"),
			DBPassword: os.Getenv("LAB_TEST_DB_PASSWORD"),
			DBSSLMode:  "disable",
		},
		Engine: config.EngineConfig{WriteTimeout: 10 * time.Second},
	}
}

func setup(t *testing.T, ctx context.Context) (database.DB, app.Usecases) {
	t.Helper()
	cfg := testConfig(t)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := dbpostgres.Connect(ctx, cfg.Database, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migration.Runner{Logger: logger}.Run(ctx, db.SQLDB()))
	require.NoError(t, seeder.Runner{Seeders: seeder.Defaults(time.Now()), Logger: logger}.Run(ctx, db))

	return db, app.NewUsecases(cfg, app.PostgresRepositories(db), cache.NewRedis(cfg.Redis, logger), logger)
}

func newTask(t *testing.T, ctx context.Context, uc app.Usecases, equipment string) uuid.UUID {
	t.Helper()
	eq := seeder.ID("equipment", equipment)
	out, err := uc.Tasks.Submit(ctx, usecase.SubmitTaskInput{
		WorkOrderID:         seeder.ID("work_order", "WO-1001"),
		Title:               "integration " + t.Name(),
		RequiredEquipmentID: &eq,
	})
	require.NoError(t, err)
	return out.Task.ID
}

func TestIntegration_ConcurrentReservationsNeverOverlap(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	_, uc := setup(t, ctx)

	hplc := seeder.ID("equipment", "HPLC-01")
	taskID := newTask(t, ctx, uc, "HPLC-01")

	// Each run books a distinct future minute so reruns do not collide.
	start := time.Now().UTC().AddDate(1, 0, 0).Truncate(time.Minute)
	var won atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := uc.Scheduling.Reserve(ctx, usecase.ReserveInput{
				EquipmentID: hplc,
				TaskID:      taskID,
				Start:       start.Add(time.Duration(i) * time.Second),
				End:         start.Add(30*time.Second + time.Duration(i)*time.Second),
			})
			if err == nil {
				won.Add(1)
				return nil
			}
			if errors.Is(err, domain.ErrScheduleConflict) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), won.Load())

	items, err := uc.Scheduling.Timeline(ctx, hplc, usecase.TimelineParams{From: start, To: start.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = uc.Scheduling.Cancel(ctx, items[0].ID)
	require.NoError(t, err)
}

func TestIntegration_ConsumptionIsAllOrNothing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	db, uc := setup(t, ctx)

	acn := seeder.ID("material", "RGT-ACN")
	taskID := newTask(t, ctx, uc, "HPLC-01")
	before := stock(t, ctx, db, acn)

	_, err := uc.Consumptions.RegisterConsumptions(ctx, taskID, []material.Item{
		{MaterialID: acn, QuantityConsumed: decimal.NewFromInt(1)},
		{MaterialID: seeder.ID("material", "KIT-LIB"), QuantityConsumed: decimal.NewFromInt(1_000_000_000)},
	})
	var se *domain.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, before.String(), stock(t, ctx, db, acn).String())

	created, err := uc.Consumptions.RegisterConsumptions(ctx, taskID, []material.Item{{MaterialID: acn, QuantityConsumed: decimal.NewFromInt(2)}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, before.Sub(decimal.NewFromInt(2)).String(), stock(t, ctx, db, acn).String())

	voided, err := uc.Consumptions.VoidConsumption(ctx, created[0].ID, "integration cleanup")
	require.NoError(t, err)
	assert.Equal(t, material.StatusVoided, voided.Status)
	assert.Equal(t, before.String(), stock(t, ctx, db, acn).String())
}

func TestIntegration_EquipmentRequiresKnownCapacity(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, _ := setup(t, ctx)

	_, err := db.Exec(ctx, `INSERT INTO equipment (id, name, is_critical, capacity) VALUES ($1, $2, false, NULL)`, uuid.New(), "unsized "+t.Name())
	assert.Error(t, err)

	_, err = db.Exec(ctx, `INSERT INTO equipment (id, name, is_critical, capacity) VALUES ($1, $2, true, NULL)`, uuid.New(), "critical "+t.Name())
	assert.NoError(t, err)
}

func stock(t *testing.T, ctx context.Context, db database.DB, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var q decimal.Decimal
	require.NoError(t, db.QueryRow(ctx, `SELECT quantity FROM materials WHERE id = $1`, id).Scan(&q))
	return q
}
