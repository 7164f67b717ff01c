package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/signvault/internal/common"
	"github.com/dmitrijs2005/signvault/internal/cryptox"
	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/logging"
	"github.com/dmitrijs2005/signvault/internal/server/config"
	"github.com/dmitrijs2005/signvault/internal/server/mailer"
	"github.com/dmitrijs2005/signvault/internal/server/models"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/signvault/internal/server/storage"
	"github.com/google/uuid"
)

// DocumentUpload is one file attached to a new envelope.
type DocumentUpload struct {
	Filename string
	Content  io.Reader
}

// SignerInput describes one recipient of a new envelope.
type SignerInput struct {
	Name  string
	Email string
	Order int
}

// FieldInput places a signer's mark on a document page. Indexes refer to
// the Documents and Signers slices of the same request.
type FieldInput struct {
	DocumentIndex int
	SignerIndex   int
	FieldType     string
	Page          int
	X, Y          float64
	Width, Height float64
	Required      bool
}

// CreateEnvelopeRequest carries everything needed to assemble a draft
// envelope in one call.
type CreateEnvelopeRequest struct {
	CreatorID string
	Subject   string
	Message   string
	Documents []DocumentUpload
	Signers   []SignerInput
	Fields    []FieldInput
}

// EnvelopeDetails bundles an envelope with its attached rows for display.
type EnvelopeDetails struct {
	Envelope  *models.Envelope
	Documents []*models.Document
	Signers   []*models.Signer
	Audit     []*models.AuditEvent
}

// EnvelopeService handles the creator-side envelope operations: assembling
// drafts, sending them out, voiding, and read access to envelope state.
type EnvelopeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.Storage
	mailer      mailer.Mailer
	logger      logging.Logger
	linkBaseURL string
	envelopeTTL time.Duration
}

// NewEnvelopeService constructs an EnvelopeService using repositories,
// artifact storage, the outgoing mailer and server config.
func NewEnvelopeService(db *sql.DB, m repomanager.RepositoryManager, store storage.Storage, mail mailer.Mailer, logger logging.Logger, cfg *config.Config) *EnvelopeService {
	return &EnvelopeService{
		db:          db,
		repomanager: m,
		store:       store,
		mailer:      mail,
		logger:      logger,
		linkBaseURL: cfg.LinkBaseURL,
		envelopeTTL: cfg.EnvelopeTTL,
	}
}

// CreateEnvelope persists the uploaded documents, mints invite tokens for
// every signer and writes the whole draft in one transaction. The envelope
// starts in draft status with its expiration stamped.
func (s *EnvelopeService) CreateEnvelope(ctx context.Context, req CreateEnvelopeRequest) (*models.Envelope, error) {
	if len(req.Documents) == 0 {
		return nil, fmt.Errorf("%w: envelope needs at least one document", common.ErrorInternal)
	}
	if len(req.Signers) == 0 {
		return nil, fmt.Errorf("%w: envelope needs at least one signer", common.ErrorInternal)
	}

	env := &models.Envelope{
		ID:        uuid.New().String(),
		CreatorID: req.CreatorID,
		Subject:   req.Subject,
		Message:   req.Message,
		Status:    models.StatusDraft,
		CreatedAt: time.Now(),
	}
	env.EnsureExpiration(s.envelopeTTL)

	// Artifacts are written before the transaction; a failed insert leaves
	// orphan files for the purge job to clean up.
	docs := make([]*models.Document, 0, len(req.Documents))
	for _, upload := range req.Documents {
		path, err := s.store.Persist(ctx, upload.Content, upload.Filename)
		if err != nil {
			return nil, fmt.Errorf("error storing document: %w", err)
		}
		docs = append(docs, &models.Document{
			ID:           uuid.New().String(),
			EnvelopeID:   env.ID,
			Filename:     upload.Filename,
			OriginalPath: path,
			CreatedAt:    time.Now(),
		})
	}

	sgnrs := make([]*models.Signer, 0, len(req.Signers))
	for _, in := range req.Signers {
		token, err := cryptox.NewInviteToken()
		if err != nil {
			return nil, fmt.Errorf("error generating invite token: %w", err)
		}
		sgnrs = append(sgnrs, &models.Signer{
			ID:          uuid.New().String(),
			EnvelopeID:  env.ID,
			Name:        in.Name,
			Email:       in.Email,
			InviteToken: token,
			Order:       in.Order,
			CreatedAt:   time.Now(),
		})
	}

	flds := make([]*models.Field, 0, len(req.Fields))
	for _, in := range req.Fields {
		if in.DocumentIndex < 0 || in.DocumentIndex >= len(docs) ||
			in.SignerIndex < 0 || in.SignerIndex >= len(sgnrs) {
			return nil, fmt.Errorf("%w: field references unknown document or signer", common.ErrorInternal)
		}
		flds = append(flds, &models.Field{
			ID:         uuid.New().String(),
			DocumentID: docs[in.DocumentIndex].ID,
			SignerID:   sgnrs[in.SignerIndex].ID,
			FieldType:  in.FieldType,
			Page:       in.Page,
			X:          in.X,
			Y:          in.Y,
			Width:      in.Width,
			Height:     in.Height,
			Required:   in.Required,
		})
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Envelopes(tx).Create(ctx, env); err != nil {
			return err
		}
		docRepo := s.repomanager.Documents(tx)
		for _, d := range docs {
			if err := docRepo.Create(ctx, d); err != nil {
				return err
			}
		}
		signerRepo := s.repomanager.Signers(tx)
		for _, sg := range sgnrs {
			if err := signerRepo.Create(ctx, sg); err != nil {
				return err
			}
		}
		fieldRepo := s.repomanager.Fields(tx)
		for _, f := range flds {
			if err := fieldRepo.Create(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error creating envelope: %w", err)
	}

	return env, nil
}

// SendEnvelope moves a draft to sent and emails every signer an invite
// link. Delivery failures are recorded as unsuccessful notifications and
// never undo the send. Calling it again on an already-sent envelope is a
// no-op; signers are invited once.
func (s *EnvelopeService) SendEnvelope(ctx context.Context, envelopeID string) error {
	env, err := s.repomanager.Envelopes(s.db).GetByID(ctx, envelopeID)
	if err != nil {
		return fmt.Errorf("error loading envelope: %w", err)
	}

	wasDraft := env.Status == models.StatusDraft
	if err := setStatus(ctx, s.db, s.repomanager, env, models.StatusSent); err != nil {
		return err
	}
	if !wasDraft {
		return nil
	}

	sgnrs, err := s.repomanager.Signers(s.db).ListByEnvelope(ctx, env.ID)
	if err != nil {
		return fmt.Errorf("error listing signers: %w", err)
	}

	for _, sg := range sgnrs {
		s.notifySigner(ctx, env, sg)
	}
	return nil
}

// notifySigner sends one invite email and records the attempt.
func (s *EnvelopeService) notifySigner(ctx context.Context, env *models.Envelope, sg *models.Signer) {
	subject := fmt.Sprintf("Signature requested: %s", env.Subject)
	body := fmt.Sprintf("Hello %s,\n\n%s\n\nPlease review and sign: %s/%s\n", sg.Name, env.Message, s.linkBaseURL, sg.InviteToken)

	sendErr := s.mailer.Send(ctx, mailer.EmailRequest{To: sg.Email, Subject: subject, Body: body})
	if sendErr != nil {
		s.logger.Warn(ctx, "invite delivery failed", "envelope_id", env.ID, "signer_id", sg.ID, "error", sendErr)
	}

	n := &models.Notification{
		ID:         uuid.New().String(),
		EnvelopeID: &env.ID,
		SignerID:   &sg.ID,
		Subject:    subject,
		Body:       body,
		Success:    sendErr == nil,
		SentAt:     time.Now(),
	}
	if err := s.repomanager.Notifications(s.db).Create(ctx, n); err != nil {
		s.logger.Warn(ctx, "notification record failed", "envelope_id", env.ID, "error", err)
	}
}

// VoidEnvelope cancels an envelope. Legal from every non-terminal status.
func (s *EnvelopeService) VoidEnvelope(ctx context.Context, envelopeID string) error {
	env, err := s.repomanager.Envelopes(s.db).GetByID(ctx, envelopeID)
	if err != nil {
		return fmt.Errorf("error loading envelope: %w", err)
	}
	return setStatus(ctx, s.db, s.repomanager, env, models.StatusVoided)
}

// GetEnvelope returns an envelope with its documents, signers and audit log.
func (s *EnvelopeService) GetEnvelope(ctx context.Context, envelopeID string) (*EnvelopeDetails, error) {
	env, err := s.repomanager.Envelopes(s.db).GetByID(ctx, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("error loading envelope: %w", err)
	}
	docs, err := s.repomanager.Documents(s.db).ListByEnvelope(ctx, env.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	sgnrs, err := s.repomanager.Signers(s.db).ListByEnvelope(ctx, env.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing signers: %w", err)
	}
	events, err := s.repomanager.Audit(s.db).ListByEnvelope(ctx, env.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing audit events: %w", err)
	}
	return &EnvelopeDetails{Envelope: env, Documents: docs, Signers: sgnrs, Audit: events}, nil
}

// ListEnvelopes returns all envelopes created by the given user.
func (s *EnvelopeService) ListEnvelopes(ctx context.Context, creatorID string) ([]*models.Envelope, error) {
	return s.repomanager.Envelopes(s.db).ListByCreator(ctx, creatorID)
}

// OpenDocument streams the current artifact of a document: the signed or
// converted PDF when one exists, the original upload otherwise.
func (s *EnvelopeService) OpenDocument(ctx context.Context, documentID string) (io.ReadCloser, error) {
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("error loading document: %w", err)
	}
	return s.store.Open(ctx, doc.CurrentPath())
}
