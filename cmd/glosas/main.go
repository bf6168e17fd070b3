package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"3tcapital/goglosas/internal/adapters/excel"
	glosashandler "3tcapital/goglosas/internal/adapters/http/glosas"
	healthhandler "3tcapital/goglosas/internal/adapters/http/health"
	homologacionhandler "3tcapital/goglosas/internal/adapters/http/homologacion"
	runauditpg "3tcapital/goglosas/internal/adapters/runaudit/postgres"
	"3tcapital/goglosas/internal/application/emitter"
	apphealth "3tcapital/goglosas/internal/application/health"
	apphomologacion "3tcapital/goglosas/internal/application/homologacion"
	"3tcapital/goglosas/internal/application/ingestion"
	"3tcapital/goglosas/internal/application/orchestrator"
	"3tcapital/goglosas/internal/application/pipeline"
	"3tcapital/goglosas/internal/application/pipeline/coosalud"
	"3tcapital/goglosas/internal/application/pipeline/mutualser"
	"3tcapital/goglosas/internal/core/glosas"
	"3tcapital/goglosas/internal/core/runaudit"
	"3tcapital/goglosas/internal/infrastructure/config"
	"3tcapital/goglosas/internal/infrastructure/database"
	"3tcapital/goglosas/internal/infrastructure/http/server"
	"3tcapital/goglosas/internal/infrastructure/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run audit is optional: without a database the pipelines still run,
	// they just leave no trail.
	var auditRepo runaudit.Repository
	if cfg.Database.Host != "" && cfg.Database.Database != "" {
		pool, err := database.NewPool(ctx, database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Database:        cfg.Database.Database,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			log.Warn("Failed to connect to database, run audit trail will be disabled",
				"error", err,
				"host", cfg.Database.Host,
				"database", cfg.Database.Database)
		} else {
			defer pool.Close()
			if err := database.RunMigrations(ctx, pool, log); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			auditRepo = runauditpg.NewRepositoryWithLogger(pool, log)
			log.Info("Database connection established", "database", cfg.Database.Database)
		}
	} else {
		log.Info("Database not configured, run audit trail will be disabled")
	}

	adapter := excel.New()
	store := apphomologacion.NewStore(
		map[glosas.EPS]string{
			glosas.EPSMutualser: cfg.Glosas.TablePath(glosas.EPSMutualser.String()),
			glosas.EPSCoosalud:  cfg.Glosas.TablePath(glosas.EPSCoosalud.String()),
		},
		adapter, adapter, log,
	)
	engine := apphomologacion.NewEngine(store, log)
	parser := ingestion.NewParser(adapter, log)
	em := emitter.New(adapter, log)

	runners := map[glosas.EPS]pipeline.Runner{
		glosas.EPSMutualser: mutualser.New(parser, engine, em, adapter, log),
		glosas.EPSCoosalud:  coosalud.New(parser, engine, em, adapter, log),
	}
	orch := orchestrator.New(runners, auditRepo, log)

	healthMeta := apphealth.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	}
	if auditRepo != nil {
		healthMeta.AuditEnabled = true
		healthMeta.Dependencies = []string{"postgres"}
	}
	healthService := apphealth.NewService(healthMeta)

	srv, err := server.New(server.Options{
		Config: cfg,
		Logger: log,
		Handlers: server.Handlers{
			Health:       healthhandler.NewHandler(healthService),
			Glosas:       glosashandler.NewHandler(orch, cfg.Glosas.OutputDir),
			Homologacion: homologacionhandler.NewHandler(store, engine),
		},
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	log.Info("Starting HTTP server", "port", cfg.HTTP.Port)
	return srv.Run(ctx)
}
