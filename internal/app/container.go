package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lab-scheduler/internal/config"
	"lab-scheduler/internal/database"
	dbpostgres "lab-scheduler/internal/database/postgres"
	"lab-scheduler/internal/database/seeder"
	"lab-scheduler/internal/domain/matching"
	"lab-scheduler/internal/domain/priority"
	"lab-scheduler/internal/infrastructure/cache"
	"lab-scheduler/internal/repository"
	"lab-scheduler/internal/repository/memory"
	"lab-scheduler/internal/usecase"
	"lab-scheduler/internal/worker"

	"github.com/sirupsen/logrus"
)

// Repositories groups every store the usecases read and write.
type Repositories struct {
	Skills       repository.SkillRepository
	Technicians  repository.TechnicianRepository
	Workload     repository.WorkloadRepository
	Tasks        repository.TaskRepository
	WorkOrders   repository.WorkOrderRepository
	Equipment    repository.EquipmentRepository
	Allocations  repository.AllocationRepository
	Reservations repository.ReservationRepository
	Materials    repository.MaterialRepository
	Consumptions repository.ConsumptionRepository
}

func PostgresRepositories(db database.DB) Repositories {
	return Repositories{
		Skills:       repository.NewPostgresSkillRepository(db),
		Technicians:  repository.NewPostgresTechnicianRepository(db),
		Workload:     repository.NewPostgresWorkloadRepository(db),
		Tasks:        repository.NewPostgresTaskRepository(db),
		WorkOrders:   repository.NewPostgresWorkOrderRepository(db),
		Equipment:    repository.NewPostgresEquipmentRepository(db),
		Allocations:  repository.NewPostgresAllocationRepository(db),
		Reservations: repository.NewPostgresReservationRepository(db),
		Materials:    repository.NewPostgresMaterialRepository(db),
		Consumptions: repository.NewPostgresConsumptionRepository(db),
	}
}

func MemoryRepositories(s *memory.Store) Repositories {
	return Repositories{
		Skills:       s,
		Technicians:  s,
		Workload:     s,
		Tasks:        s,
		WorkOrders:   s,
		Equipment:    s,
		Allocations:  s,
		Reservations: s,
		Materials:    s,
		Consumptions: s,
	}
}

type Usecases struct {
	Matching     *usecase.Matching
	Scheduling   *usecase.Scheduling
	Capacity     *usecase.Capacity
	WorkOrders   *usecase.WorkOrders
	Consumptions *usecase.Consumptions
	Tasks        *usecase.Tasks
}

func NewUsecases(cfg config.Config, repos Repositories, priorityCache usecase.PriorityCache, logger logrus.FieldLogger) Usecases {
	opts := usecase.Options{WriteTimeout: cfg.Engine.WriteTimeout, Logger: logger}

	match := usecase.NewMatchingUsecase(repos.Tasks, repos.Technicians, repos.Workload, matching.DefaultWeights, opts)
	sched := usecase.NewSchedulingUsecase(repos.Equipment, repos.Tasks, repos.Reservations, opts)
	capa := usecase.NewCapacityUsecase(repos.Equipment, repos.Tasks, repos.Allocations, opts)
	wos := usecase.NewWorkOrderUsecase(repos.WorkOrders, priority.NewCalculator(cfg.Engine.PriorityHorizon), priorityCache, cfg.Redis.TTL, opts)
	cons := usecase.NewConsumptionUsecase(repos.Tasks, repos.Consumptions, opts)
	tasks := usecase.NewTaskUsecase(usecase.TaskDeps{
		Tasks:        repos.Tasks,
		Equipment:    repos.Equipment,
		Reservations: repos.Reservations,
		Eligibility:  match,
		Scheduler:    sched,
		Capacity:     capa,
		Consumptions: cons,
		Priorities:   wos,
	}, opts)

	return Usecases{
		Matching:     match,
		Scheduling:   sched,
		Capacity:     capa,
		WorkOrders:   wos,
		Consumptions: cons,
		Tasks:        tasks,
	}
}

type Container struct {
	Config    config.Config
	Logger    logrus.FieldLogger
	DB        database.DB
	Cache     *cache.Redis
	Repos     Repositories
	Usecases  Usecases
	Refresher *worker.PriorityRefresher
}

// NewContainer connects the configured store. With STORE=memory no database
// is opened and the store is loaded with the reference fixtures.
func NewContainer(cfg config.Config, logger logrus.FieldLogger) (*Container, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Container{Config: cfg, Logger: logger}

	switch cfg.App.Store {
	case config.StoreMemory:
		store := memory.NewStore()
		seeder.LoadMemory(store, seeder.DefaultFixtures(time.Now()))
		c.Repos = MemoryRepositories(store)
		logger.WithField("component", "app").Warn("using in-memory store; data is lost on exit")
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db, err := dbpostgres.Connect(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		c.DB = db
		c.Repos = PostgresRepositories(db)
	}

	c.Cache = cache.NewRedis(cfg.Redis, logger)
	c.Usecases = NewUsecases(cfg, c.Repos, c.Cache, logger)
	c.Refresher = worker.NewPriorityRefresher(c.Usecases.WorkOrders, c.Cache, worker.RefresherConfig{
		Interval:      cfg.Engine.PriorityRefreshEvery,
		Workers:       cfg.Engine.PriorityRefreshWorkers,
		RatePerSecond: cfg.Engine.PriorityRefreshRate,
	}, logger)

	return c, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
