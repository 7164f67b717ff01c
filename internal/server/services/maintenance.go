package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/signvault/internal/logging"
	"github.com/dmitrijs2005/signvault/internal/server/models"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/signvault/internal/server/storage"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentConversions bounds the number of converter processes
// running at once.
const maxConcurrentConversions = 4

// Converter turns an uploaded file into a PDF artifact.
// pdfx.Converter implements it.
type Converter interface {
	ToPDF(ctx context.Context, path string) (string, error)
}

// MaintenanceService holds the bodies of the background jobs: pending
// document conversion, envelope expiration and artifact purging.
type MaintenanceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	converter   Converter
	store       storage.Storage
	logger      logging.Logger
	retention   time.Duration
}

// NewMaintenanceService constructs a MaintenanceService. Retention is
// expressed in days and applies to the artifact purge job.
func NewMaintenanceService(db *sql.DB, m repomanager.RepositoryManager, conv Converter, store storage.Storage, logger logging.Logger, retentionDays int) *MaintenanceService {
	return &MaintenanceService{
		db:          db,
		repomanager: m,
		converter:   conv,
		store:       store,
		logger:      logger,
		retention:   time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// ConvertPending converts every document that has no PDF artifact yet.
// Conversions run concurrently with a fixed limit; one failed document is
// logged and retried on the next pass without affecting the others.
func (s *MaintenanceService) ConvertPending(ctx context.Context) error {
	docs, err := s.repomanager.Documents(s.db).SelectPendingConversion(ctx)
	if err != nil {
		return fmt.Errorf("error selecting pending documents: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentConversions)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			pdf, err := s.converter.ToPDF(gctx, doc.OriginalPath)
			if err != nil {
				s.logger.Warn(gctx, "conversion failed", "document_id", doc.ID, "error", err)
				return nil
			}
			if err := s.repomanager.Documents(s.db).UpdatePDFPath(gctx, doc.ID, pdf); err != nil {
				s.logger.Warn(gctx, "conversion record failed", "document_id", doc.ID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ExpireEnvelopes voids every non-terminal envelope whose expiration has
// passed. Each transition carries its audit event like any other.
func (s *MaintenanceService) ExpireEnvelopes(ctx context.Context) error {
	envs, err := s.repomanager.Envelopes(s.db).SelectExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("error selecting expired envelopes: %w", err)
	}
	for _, env := range envs {
		if err := setStatus(ctx, s.db, s.repomanager, env, models.StatusVoided); err != nil {
			s.logger.Warn(ctx, "expiration failed", "envelope_id", env.ID, "error", err)
			continue
		}
		s.logger.Info(ctx, "envelope expired", "envelope_id", env.ID)
	}
	return nil
}

// PurgeArtifacts removes stored files older than the retention window.
// The purge is age-based only; it does not consult database references.
func (s *MaintenanceService) PurgeArtifacts(ctx context.Context) error {
	removed, err := s.store.PurgeOlderThan(ctx, s.retention)
	if err != nil {
		return fmt.Errorf("error purging artifacts: %w", err)
	}
	if removed > 0 {
		s.logger.Info(ctx, "artifacts purged", "removed", removed)
	}
	return nil
}
