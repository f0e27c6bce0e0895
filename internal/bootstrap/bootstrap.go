package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krittawat/order-register/internal/config"
	"github.com/krittawat/order-register/internal/core/ports"
	"github.com/krittawat/order-register/internal/core/usecase"
	"github.com/krittawat/order-register/internal/infrastructure/catalog"
	"github.com/krittawat/order-register/internal/infrastructure/erp"
	"github.com/krittawat/order-register/internal/infrastructure/extractor/pattern"
	"github.com/krittawat/order-register/internal/infrastructure/extractor/service"
	"github.com/krittawat/order-register/internal/infrastructure/queue/nats"
	"github.com/krittawat/order-register/internal/infrastructure/repository/postgres"
	"github.com/krittawat/order-register/internal/infrastructure/resilience"
	"github.com/krittawat/order-register/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue   ports.MessageQueue
	Repo    ports.RecordRepository
	Catalog ports.CatalogProvider

	IntakeUC  ports.OrderIntake
	ProcessUC ports.OrderProcessor
	ReviewUC  ports.ReviewService
	SyncUC    ports.RecordSyncer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	ledger := postgres.NewIntakeLedger(db)
	repo := postgres.NewRecordRepository(db)
	customers := postgres.NewCustomerDirectory(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	index, err := catalog.LoadFile(cfg.CatalogPath, catalog.LookupConfig{
		SynonymFloor: cfg.Tuning.SynonymFloor,
		FuzzyFloor:   cfg.Tuning.FuzzyFloor,
		MaxMatches:   cfg.Tuning.MaxMatches,
	})
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	catalogStore := catalog.NewStore(index)

	var (
		extractor   ports.CandidateExtractor
		extractorID string
	)
	switch cfg.ExtractorMode {
	case "service":
		extractor = service.New(cfg.ExtractorURL, time.Duration(cfg.ExtractorTimeoutSec)*time.Second, executor)
		extractorID = service.ExtractorID
	default:
		extractor = pattern.New(storage)
		extractorID = pattern.ExtractorID
	}

	erpGateway := erp.New(cfg.ERPURL, time.Duration(cfg.ERPTimeoutSec)*time.Second, executor)

	rules := usecase.NewRuleEngine(
		logger,
		usecase.DefaultRules(decimal.NewFromFloat(cfg.Tuning.PriceWarnTolerance))...,
	)
	fusionCfg := usecase.FusionConfig{
		WarnPenalty:     cfg.Tuning.WarnPenalty,
		ReviewThreshold: cfg.Tuning.ReviewThreshold,
	}

	intakeUC := usecase.NewIntakeOrderUseCase(ledger, repo, queue)
	processUC := usecase.NewProcessOrderUseCase(repo, extractor, catalogStore, customers, rules, fusionCfg, extractorID, logger)
	reviewUC := usecase.NewReviewUseCase(repo, catalogStore, customers, rules, fusionCfg, logger)
	syncUC := usecase.NewSyncRecordUseCase(repo, erpGateway, logger)

	return &App{
		Config:  cfg,
		Queue:   queue,
		Repo:    repo,
		Catalog: catalogStore,

		IntakeUC:  intakeUC,
		ProcessUC: processUC,
		ReviewUC:  reviewUC,
		SyncUC:    syncUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
