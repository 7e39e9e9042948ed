package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/upb/mindscreen/config"
	"github.com/upb/mindscreen/internal/rag"
	"github.com/upb/mindscreen/internal/risk"
	"github.com/upb/mindscreen/middleware"
	"github.com/upb/mindscreen/repositories"
	"github.com/upb/mindscreen/repositories/sqldb"
	"github.com/upb/mindscreen/services/assessment"
	"github.com/upb/mindscreen/services/audit"
	"github.com/upb/mindscreen/services/resources"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *sqldb.DB
	Logger *zap.Logger

	RepoFactory *sqldb.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager

	// Knowledge base
	Knowledge *Knowledge
	Reloader  *rag.Reloader

	// Services
	Classifier   *risk.Classifier
	AuditService *audit.AuditService
	Assessments  *assessment.AssessmentService
	Resources    *resources.ResourceService

	IdentityMiddleware *middleware.IdentityMiddleware

	cancelWatch context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:             cfg,
		Logger:             logger,
		IdentityMiddleware: middleware.NewIdentityMiddleware(logger),
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	classifier, err := NewClassifier(cfg, logger)
	if err != nil {
		deps.closeDatabase()
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}
	deps.Classifier = classifier

	knowledge, err := NewKnowledge(ctx, cfg, logger)
	if err != nil {
		deps.closeDatabase()
		return nil, fmt.Errorf("failed to initialize knowledge base: %w", err)
	}
	deps.Knowledge = knowledge

	if err := deps.initServices(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}

	if err := deps.initReloader(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to watch knowledge base: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the pool, creates missing tables and the repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := sqldb.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := factory.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Repos = factory.NewRepositories()
	d.TxManager = factory.GetTransactionManager()

	d.Logger.Info("repositories initialized", zap.String("driver", d.DB.Driver()))
	return nil
}

// initServices starts the audit pool and builds the domain services
func (d *Dependencies) initServices(ctx context.Context, cfg *config.Config) error {
	d.AuditService = audit.NewAuditService(d.Repos.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.Workers,
	})
	if err := d.AuditService.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	d.Assessments = assessment.NewAssessmentService(d.Repos, d.TxManager, d.Classifier, d.AuditService, d.Logger)
	if _, err := d.Assessments.SeedQuestionnaires(ctx); err != nil {
		return fmt.Errorf("failed to seed questionnaires: %w", err)
	}

	d.Resources = resources.NewResourceService(d.Knowledge.Retriever, d.AuditService, resources.Config{
		DefaultTopK:    cfg.Retrieval.DefaultTopK,
		MaxTopK:        cfg.Retrieval.MaxTopK,
		ResourcesLimit: cfg.Retrieval.ResourcesLimit,
	}, d.Logger)

	return nil
}

// initReloader watches the knowledge file when one is configured
func (d *Dependencies) initReloader(cfg *config.Config) error {
	if cfg.Knowledge.Path == "" {
		return nil
	}

	d.Reloader = rag.NewReloader(cfg.Knowledge.Path, d.Knowledge.Index, d.Logger)
	d.Reloader.OnReload = func(stats rag.IndexStats, err error) {
		if auditErr := d.AuditService.LogKnowledgeReloaded(stats, err); auditErr != nil {
			d.Logger.Warn("failed to audit knowledge reload", zap.Error(auditErr))
		}
	}

	if !cfg.Knowledge.Watch {
		return nil
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	if err := d.Reloader.Watch(watchCtx); err != nil {
		cancel()
		return err
	}
	d.cancelWatch = cancel
	return nil
}

func (d *Dependencies) closeDatabase() {
	if d.RepoFactory != nil {
		_ = d.RepoFactory.Close()
	}
}

// Close gracefully shuts down all dependencies. It is safe to call twice.
func (d *Dependencies) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.closeErr = d.close(ctx)
	})
	return d.closeErr
}

func (d *Dependencies) close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.cancelWatch != nil {
		d.cancelWatch()
	}
	if d.Reloader != nil {
		if err := d.Reloader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop knowledge watcher: %w", err))
		}
	}

	if d.Knowledge != nil {
		d.Knowledge.Close()
	}

	// Drain audit events before the database goes away
	if d.AuditService != nil {
		if err := d.AuditService.Stop(d.Config.Audit.ShutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}
