package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/signvault/internal/common"
	"github.com/dmitrijs2005/signvault/internal/cryptox"
	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/logging"
	"github.com/dmitrijs2005/signvault/internal/pdfx"
	"github.com/dmitrijs2005/signvault/internal/server/models"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/signvault/internal/server/storage"
	"github.com/google/uuid"
)

// Indirection over the PDF toolkit so tests can substitute the composition
// steps without real PDF files.
var (
	renderOverlays  = pdfx.RenderOverlays
	composeOverlays = pdfx.ComposeOverlays
	embedSignature  = pdfx.EmbedSignature
	derivedPath     = pdfx.DerivedPath
)

// Sealer produces a detached cryptographic signature over a file.
// cryptox.Credential implements it.
type Sealer interface {
	SignFile(path string) (*cryptox.DetachedSignature, error)
}

// Archiver uploads a sealed artifact to long-term storage.
// storage.Archive implements it.
type Archiver interface {
	Store(ctx context.Context, key string, r io.ReadSeeker) error
}

// SealOutcome reports whether the cryptographic sealing of the signed
// artifacts succeeded. A degraded outcome means the visual signing went
// through but the attestation (or its embedding) failed; the envelope still
// advances.
type SealOutcome string

const (
	SealOk       SealOutcome = "ok"
	SealDegraded SealOutcome = "degraded"
	SealSkipped  SealOutcome = "skipped"
)

// SubmitSignatureRequest carries one signer's submission: the invite token
// that authorizes it, the drawn signature image and an optional stamp image.
type SubmitSignatureRequest struct {
	Token      string
	ImageData  []byte
	StampImage []byte
}

// SubmitResult is the outcome of a signature submission.
type SubmitResult struct {
	Envelope *models.Envelope
	Seal     SealOutcome
}

// InviteView is what a signer sees after opening their invite link.
type InviteView struct {
	Envelope  *models.Envelope
	Signer    *models.Signer
	Documents []*models.Document
}

// SigningService implements the public, token-authorized signing flow:
// opening an invite and submitting a signature, including artifact
// composition, optional sealing and archival.
type SigningService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.Storage
	sealer      Sealer
	archiver    Archiver
	logger      logging.Logger
}

// NewSigningService constructs a SigningService. Sealer and archiver may be
// nil; the corresponding pipeline steps are then skipped.
func NewSigningService(db *sql.DB, m repomanager.RepositoryManager, store storage.Storage, sealer Sealer, archiver Archiver, logger logging.Logger) *SigningService {
	return &SigningService{
		db:          db,
		repomanager: m,
		store:       store,
		sealer:      sealer,
		archiver:    archiver,
		logger:      logger,
	}
}

// OpenInvite resolves an invite token and returns the signer's view of the
// envelope. Unknown tokens return common.ErrorNotFound. The envelope must
// be in a viewable status (sent, viewed or signed); the first open moves a
// sent envelope to viewed. Every open appends an invite_opened audit event.
func (s *SigningService) OpenInvite(ctx context.Context, token string) (*InviteView, error) {
	signer, err := s.repomanager.Signers(s.db).FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	env, err := s.repomanager.Envelopes(s.db).GetByID(ctx, signer.EnvelopeID)
	if err != nil {
		return nil, fmt.Errorf("error loading envelope: %w", err)
	}

	switch env.Status {
	case models.StatusSent, models.StatusViewed, models.StatusSigned:
	default:
		return nil, fmt.Errorf("%w: envelope is %s", common.ErrInvalidStatus, env.Status)
	}

	if env.Status == models.StatusSent {
		if err := setStatus(ctx, s.db, s.repomanager, env, models.StatusViewed); err != nil {
			return nil, err
		}
	}

	event := &models.AuditEvent{
		ID:         uuid.New().String(),
		EnvelopeID: env.ID,
		SignerID:   &signer.ID,
		EventType:  models.EventInviteOpened,
		OccurredAt: time.Now(),
	}
	if err := s.repomanager.Audit(s.db).Append(ctx, event); err != nil {
		s.logger.Warn(ctx, "audit append failed", "envelope_id", env.ID, "event", models.EventInviteOpened, "error", err)
	}

	docs, err := s.repomanager.Documents(s.db).ListByEnvelope(ctx, env.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}

	return &InviteView{Envelope: env, Signer: signer, Documents: docs}, nil
}

// SubmitSignature records one signer's signature across all envelope
// documents. The visual composition runs first and produces new artifact
// files; the signature rows, the has_signed flip, the artifact references
// and the status transition are then committed in one transaction. A second
// submission by the same signer returns common.ErrInvalidStatus.
//
// After commit the artifacts are sealed and archived on a best-effort
// basis, and completion is attempted when every signer has signed.
func (s *SigningService) SubmitSignature(ctx context.Context, req SubmitSignatureRequest) (*SubmitResult, error) {
	signer, err := s.repomanager.Signers(s.db).FindByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	env, err := s.repomanager.Envelopes(s.db).GetByID(ctx, signer.EnvelopeID)
	if err != nil {
		return nil, fmt.Errorf("error loading envelope: %w", err)
	}

	switch env.Status {
	case models.StatusSent, models.StatusViewed, models.StatusSigned:
	default:
		return nil, fmt.Errorf("%w: envelope is %s", common.ErrInvalidStatus, env.Status)
	}
	if signer.HasSigned {
		return nil, fmt.Errorf("%w: signer already signed", common.ErrInvalidStatus)
	}
	if len(req.ImageData) == 0 && len(req.StampImage) == 0 {
		return nil, fmt.Errorf("%w: submission carries no signature image", common.ErrorInternal)
	}

	req.ImageData, err = decodeImagePayload(req.ImageData)
	if err != nil {
		return nil, fmt.Errorf("error decoding signature image: %w", err)
	}
	req.StampImage, err = decodeImagePayload(req.StampImage)
	if err != nil {
		return nil, fmt.Errorf("error decoding stamp image: %w", err)
	}

	sigPath, stampPath, err := s.persistImages(ctx, req)
	if err != nil {
		return nil, err
	}

	docs, err := s.repomanager.Documents(s.db).ListByEnvelope(ctx, env.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}

	// Composition happens outside the transaction: each pass writes a new
	// artifact file and never mutates the previous one, so a later rollback
	// only leaves orphan files behind.
	signed := make(map[string]string, len(docs))
	placements := make(map[string]*string, len(docs))
	for _, doc := range docs {
		placement, fieldID, err := s.findPlacement(ctx, doc.ID, signer.ID)
		if err != nil {
			return nil, err
		}
		overlays := renderOverlays(sigPath, stampPath, placement)
		out := derivedPath(doc.CurrentPath(), "signed")
		if err := composeOverlays(doc.CurrentPath(), out, overlays); err != nil {
			return nil, fmt.Errorf("error compositing %s: %w", doc.Filename, err)
		}
		signed[doc.ID] = out
		placements[doc.ID] = fieldID
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		flipped, err := s.repomanager.Signers(tx).MarkSigned(ctx, signer.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return fmt.Errorf("%w: signer already signed", common.ErrInvalidStatus)
		}

		sigRepo := s.repomanager.Signatures(tx)
		docRepo := s.repomanager.Documents(tx)
		auditRepo := s.repomanager.Audit(tx)
		for _, doc := range docs {
			sig := &models.Signature{
				ID:         uuid.New().String(),
				DocumentID: doc.ID,
				SignerID:   signer.ID,
				FieldID:    placements[doc.ID],
				ImageData:  req.ImageData,
				AppliedAt:  time.Now(),
			}
			if stampPath != "" {
				sig.StampPath = &stampPath
			}
			if err := sigRepo.Create(ctx, sig); err != nil {
				return err
			}
			if err := docRepo.UpdatePDFPath(ctx, doc.ID, signed[doc.ID]); err != nil {
				return err
			}
			payload, _ := json.Marshal(map[string]string{"document_id": doc.ID, "artifact": signed[doc.ID]})
			if err := auditRepo.Append(ctx, &models.AuditEvent{
				ID:         uuid.New().String(),
				EnvelopeID: env.ID,
				SignerID:   &signer.ID,
				EventType:  models.EventSignatureCaptured,
				Payload:    payload,
				OccurredAt: time.Now(),
			}); err != nil {
				return err
			}
		}

		// Later signers find the envelope already signed; the status and
		// its audit event are written only on the first pass.
		if env.Status != models.StatusSigned {
			err := applyTransition(ctx, tx, s.repomanager, env.ID, env.Status, models.StatusSigned)
			if errors.Is(err, common.ErrInvalidTransition) {
				// A concurrent submission may have won the transition
				// between our status read and this update. If the envelope
				// is signed now, this submission proceeds like any later
				// signer's.
				cur, gerr := s.repomanager.Envelopes(tx).GetByID(ctx, env.ID)
				if gerr == nil && cur.Status == models.StatusSigned {
					return nil
				}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	env.Status = models.StatusSigned

	outcome := s.sealArtifacts(ctx, env, signer, docs, signed)

	// Completion is attempted after every submission; an illegal transition
	// just means other signers are still pending.
	if err := s.tryComplete(ctx, env); err != nil {
		s.logger.Warn(ctx, "completion attempt failed", "envelope_id", env.ID, "error", err)
	}

	s.archiveArtifacts(ctx, env, docs)

	return &SubmitResult{Envelope: env, Seal: outcome}, nil
}

// decodeImagePayload accepts either raw image bytes or a browser-style
// data URL ("data:image/png;base64,...") and returns the raw bytes.
func decodeImagePayload(b []byte) ([]byte, error) {
	if !bytes.HasPrefix(b, []byte("data:")) {
		return b, nil
	}
	_, encoded, found := bytes.Cut(b, []byte(";base64,"))
	if !found {
		return nil, fmt.Errorf("%w: unsupported data url encoding", common.ErrorInternal)
	}
	decoded, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return decoded, nil
}

// persistImages stores the submitted signature and stamp images as
// artifacts and returns their paths. Either may be absent.
func (s *SigningService) persistImages(ctx context.Context, req SubmitSignatureRequest) (string, string, error) {
	var sigPath, stampPath string
	if len(req.ImageData) > 0 {
		p, err := s.store.Persist(ctx, bytes.NewReader(req.ImageData), "signature.png")
		if err != nil {
			return "", "", fmt.Errorf("error storing signature image: %w", err)
		}
		sigPath = p
	}
	if len(req.StampImage) > 0 {
		p, err := s.store.Persist(ctx, bytes.NewReader(req.StampImage), "stamp.png")
		if err != nil {
			return "", "", fmt.Errorf("error storing stamp image: %w", err)
		}
		stampPath = p
	}
	return sigPath, stampPath, nil
}

// findPlacement loads the declared field for a document/signer pair.
// Absent fields are not an error; the mark then renders at the page origin.
func (s *SigningService) findPlacement(ctx context.Context, documentID, signerID string) (*pdfx.Placement, *string, error) {
	field, err := s.repomanager.Fields(s.db).FindForSigner(ctx, documentID, signerID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error loading field: %w", err)
	}
	return &pdfx.Placement{
		Page:   field.Page,
		X:      field.X,
		Y:      field.Y,
		Width:  field.Width,
		Height: field.Height,
	}, &field.ID, nil
}

// sealArtifacts signs each freshly composed artifact with the configured
// credential and embeds the detached signature into the PDF. Any failure
// degrades the outcome but never undoes the signing.
func (s *SigningService) sealArtifacts(ctx context.Context, env *models.Envelope, signer *models.Signer, docs []*models.Document, signed map[string]string) SealOutcome {
	if s.sealer == nil {
		return SealSkipped
	}

	outcome := SealOk
	for _, doc := range docs {
		artifact := signed[doc.ID]

		detached, err := s.sealer.SignFile(artifact)
		if err != nil {
			s.logger.Warn(ctx, "sealing failed", "envelope_id", env.ID, "document_id", doc.ID, "error", err)
			outcome = SealDegraded
			continue
		}

		sigFile, err := s.store.Persist(ctx, bytes.NewReader(detached.Bytes), doc.Filename+".sig")
		if err != nil {
			s.logger.Warn(ctx, "sealing failed", "envelope_id", env.ID, "document_id", doc.ID, "error", err)
			outcome = SealDegraded
			continue
		}

		sealed := derivedPath(artifact, "sealed")
		if err := embedSignature(artifact, sealed, sigFile); err != nil {
			s.logger.Warn(ctx, "sealing failed", "envelope_id", env.ID, "document_id", doc.ID, "error", err)
			outcome = SealDegraded
			continue
		}

		if err := s.recordSeal(ctx, env, signer, doc, sealed, detached); err != nil {
			s.logger.Warn(ctx, "seal record failed", "envelope_id", env.ID, "document_id", doc.ID, "error", err)
			outcome = SealDegraded
			continue
		}
		signed[doc.ID] = sealed
	}
	return outcome
}

// recordSeal advances the document artifact to the sealed file and stores
// the crypto record plus audit event in one transaction.
func (s *SigningService) recordSeal(ctx context.Context, env *models.Envelope, signer *models.Signer, doc *models.Document, sealed string, detached *cryptox.DetachedSignature) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		sigs, err := s.repomanager.Signatures(tx).ListByDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		var sigID string
		for _, sig := range sigs {
			if sig.SignerID == signer.ID {
				sigID = sig.ID
				break
			}
		}
		if sigID == "" {
			return common.ErrorNotFound
		}

		if err := s.repomanager.Signatures(tx).AttachCryptoRecord(ctx, &models.CryptoRecord{
			ID:                 uuid.New().String(),
			SignatureID:        sigID,
			Algorithm:          detached.Algorithm,
			CertificateSubject: detached.CertificateSubject,
			SignedAt:           time.Now(),
			SignatureBytes:     detached.Bytes,
		}); err != nil {
			return err
		}

		if err := s.repomanager.Documents(tx).UpdatePDFPath(ctx, doc.ID, sealed); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]string{"document_id": doc.ID, "algorithm": detached.Algorithm})
		return s.repomanager.Audit(tx).Append(ctx, &models.AuditEvent{
			ID:         uuid.New().String(),
			EnvelopeID: env.ID,
			SignerID:   &signer.ID,
			EventType:  models.EventArtifactSealed,
			Payload:    payload,
			OccurredAt: time.Now(),
		})
	})
}

// tryComplete moves the envelope to completed once every signer has signed.
func (s *SigningService) tryComplete(ctx context.Context, env *models.Envelope) error {
	sgnrs, err := s.repomanager.Signers(s.db).ListByEnvelope(ctx, env.ID)
	if err != nil {
		return err
	}
	for _, sg := range sgnrs {
		if !sg.HasSigned {
			return nil
		}
	}
	if err := setStatus(ctx, s.db, s.repomanager, env, models.StatusCompleted); err != nil {
		if errors.Is(err, common.ErrInvalidTransition) {
			return nil
		}
		return err
	}
	return nil
}

// archiveArtifacts uploads the current artifact of every document to the
// archive backend. Failures are logged and never affect the submission.
func (s *SigningService) archiveArtifacts(ctx context.Context, env *models.Envelope, docs []*models.Document) {
	if s.archiver == nil {
		return
	}
	for _, doc := range docs {
		current, err := s.repomanager.Documents(s.db).GetByID(ctx, doc.ID)
		if err != nil {
			s.logger.Warn(ctx, "archive skipped", "document_id", doc.ID, "error", err)
			continue
		}
		f, err := os.Open(current.CurrentPath())
		if err != nil {
			s.logger.Warn(ctx, "archive skipped", "document_id", doc.ID, "error", err)
			continue
		}
		key := storage.ArchiveKey(env.ID, current.Filename)
		err = s.archiver.Store(ctx, key, f)
		f.Close()
		if err != nil {
			s.logger.Warn(ctx, "archive failed", "document_id", doc.ID, "error", err)
			continue
		}

		payload, _ := json.Marshal(map[string]string{"document_id": doc.ID, "key": key})
		if err := s.repomanager.Audit(s.db).Append(ctx, &models.AuditEvent{
			ID:         uuid.New().String(),
			EnvelopeID: env.ID,
			EventType:  models.EventArtifactArchived,
			Payload:    payload,
			OccurredAt: time.Now(),
		}); err != nil {
			s.logger.Warn(ctx, "audit append failed", "envelope_id", env.ID, "event", models.EventArtifactArchived, "error", err)
		}
	}
}
