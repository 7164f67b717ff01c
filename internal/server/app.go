// Package server initializes and runs the main application: it wires the
// database, artifact storage, mail relay and signing credential into the
// services, starts the background jobs and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/signvault/internal/cryptox"
	"github.com/dmitrijs2005/signvault/internal/logging"
	"github.com/dmitrijs2005/signvault/internal/pdfx"
	"github.com/dmitrijs2005/signvault/internal/server/config"
	"github.com/dmitrijs2005/signvault/internal/server/mailer"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/signvault/internal/server/scheduler"
	"github.com/dmitrijs2005/signvault/internal/server/services"
	"github.com/dmitrijs2005/signvault/internal/server/storage"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	envelopes   *services.EnvelopeService
	signing     *services.SigningService
	maintenance *services.MaintenanceService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	l := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(l)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := storage.NewLocal(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	var sealer services.Sealer
	if cfg.SigningCertFile != "" && cfg.SigningKeyFile != "" {
		cred, err := cryptox.LoadCredential(cfg.SigningCertFile, cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("signing credential error: %w", err)
		}
		sealer = cred
	} else {
		logger.Warn(ctx, "no signing credential configured, artifacts will not be sealed")
	}

	var archiver services.Archiver
	if cfg.S3Bucket != "" {
		archive, err := storage.NewArchive(ctx, storage.S3Options{
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		archiver = archive
	}

	mail := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword)
	converter := pdfx.NewConverter(cfg.ConvertBinary, cfg.ConvertTimeout)

	es := services.NewEnvelopeService(db, rm, store, mail, logger, cfg)
	ss := services.NewSigningService(db, rm, store, sealer, archiver, logger)
	ms := services.NewMaintenanceService(db, rm, converter, store, logger, cfg.RetentionDays)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		envelopes:   es,
		signing:     ss,
		maintenance: ms,
	}, nil
}

// Envelopes exposes the creator-side service.
func (app *App) Envelopes() *services.EnvelopeService { return app.envelopes }

// Signing exposes the token-authorized signing service.
func (app *App) Signing() *services.SigningService { return app.signing }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the background jobs and blocks until the context is canceled
// or a termination signal arrives.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	runner := scheduler.NewRunner(app.logger)
	runner.Every(ctx, app.config.ConvertInterval, &scheduler.Job{Name: "convert_pending", Run: app.maintenance.ConvertPending})
	runner.Every(ctx, app.config.ExpireInterval, &scheduler.Job{Name: "expire_envelopes", Run: app.maintenance.ExpireEnvelopes})
	runner.DailyAt(ctx, app.config.PurgeHour, &scheduler.Job{Name: "purge_artifacts", Run: app.maintenance.PurgeArtifacts})

	runner.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
