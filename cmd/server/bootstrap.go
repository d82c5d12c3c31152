package main

import (
	"context"

	"github.com/panelbridge/surveylink/internal/config"
	"github.com/panelbridge/surveylink/internal/handlers"
	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/services"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/internal/utils"
	"github.com/panelbridge/surveylink/pkg/logger"
	"github.com/robfig/cron/v3"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	store       *store.Store
	linkService *services.LinkService
	taskQueue   services.TaskQueue
	worker      *services.Worker
	schedulers  []*cron.Cron

	authHandler      *handlers.AuthHandler
	linkHandler      *handlers.LinkHandler
	qcHandler        *handlers.QCHandler
	presurveyHandler *handlers.PresurveyHandler
	projectHandler   *handlers.ProjectHandler
	vendorHandler    *handlers.VendorHandler
	questionHandler  *handlers.QuestionHandler
	dashboardHandler *handlers.DashboardHandler
	auditLogHandler  *handlers.AuditLogHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	st := store.New(models.GetDB())
	services.InitAuditLogger(st)

	linkService := services.NewLinkService(st, cfg)

	// Task queue for deferred generation (Redis when enabled, otherwise
	// in-process). Both paths run the same pipeline.
	processGenerate := func(ctx context.Context, task *services.GenerateTask) error {
		_, err := linkService.Generate(ctx, &task.Request, task.RequestedBy)
		return err
	}
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(processGenerate)
	}

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(processGenerate)
			worker.Start()
		}
	}

	schedulers := []*cron.Cron{
		services.StartAuditCleanupScheduler(st, cfg.Audit.RetentionDays),
		services.StartSweepScheduler(st, cfg.Generation.StaleAfter()),
	}

	authHandler := handlers.NewAuthHandler(st, cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		store:       st,
		linkService: linkService,
		taskQueue:   taskQueue,
		worker:      worker,
		schedulers:  schedulers,

		authHandler:      authHandler,
		linkHandler:      handlers.NewLinkHandler(st, cfg, taskQueue),
		qcHandler:        handlers.NewQCHandler(st),
		presurveyHandler: handlers.NewPresurveyHandler(st),
		projectHandler:   handlers.NewProjectHandler(st),
		vendorHandler:    handlers.NewVendorHandler(st),
		questionHandler:  handlers.NewQuestionHandler(st),
		dashboardHandler: handlers.NewDashboardHandler(st),
		auditLogHandler:  handlers.NewAuditLogHandler(st, cfg),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	for _, scheduler := range s.schedulers {
		scheduler.Stop()
	}
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	logger.Info().Msg("All background services stopped")
}
