package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/signvault/internal/common"
	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/logging"
	"github.com/dmitrijs2005/signvault/internal/server/mailer"
	"github.com/dmitrijs2005/signvault/internal/server/models"
	auditrepo "github.com/dmitrijs2005/signvault/internal/server/repositories/audit"
	documentsrepo "github.com/dmitrijs2005/signvault/internal/server/repositories/documents"
	envelopesrepo "github.com/dmitrijs2005/signvault/internal/server/repositories/envelopes"
	fieldsrepo "github.com/dmitrijs2005/signvault/internal/server/repositories/fields"
	notificationsrepo "github.com/dmitrijs2005/signvault/internal/server/repositories/notifications"
	signaturesrepo "github.com/dmitrijs2005/signvault/internal/server/repositories/signatures"
	signersrepo "github.com/dmitrijs2005/signvault/internal/server/repositories/signers"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// expectTx registers n Begin/Commit pairs.
func expectTx(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

// --- in-memory repositories ---

type memEnvelopes struct {
	mu   sync.Mutex
	byID map[string]*models.Envelope
}

func newMemEnvelopes() *memEnvelopes { return &memEnvelopes{byID: map[string]*models.Envelope{}} }

func (m *memEnvelopes) Create(ctx context.Context, e *models.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEnvelopes) GetByID(ctx context.Context, id string) (*models.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEnvelopes) ListByCreator(ctx context.Context, creatorID string) ([]*models.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Envelope
	for _, e := range m.byID {
		if e.CreatorID == creatorID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEnvelopes) UpdateStatus(ctx context.Context, id string, from, to models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok || e.Status != from {
		return common.ErrInvalidTransition
	}
	e.Status = to
	return nil
}

func (m *memEnvelopes) SelectExpired(ctx context.Context, now time.Time) ([]*models.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Envelope
	for _, e := range m.byID {
		if e.ExpiresAt != nil && e.ExpiresAt.Before(now) && !e.Status.Terminal() {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memDocuments struct {
	mu   sync.Mutex
	byID map[string]*models.Document
}

func newMemDocuments() *memDocuments { return &memDocuments{byID: map[string]*models.Document{}} }

func (m *memDocuments) Create(ctx context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memDocuments) GetByID(ctx context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDocuments) ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, d := range m.byID {
		if d.EnvelopeID == envelopeID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDocuments) SelectPendingConversion(ctx context.Context) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, d := range m.byID {
		if d.PDFPath == nil {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memDocuments) UpdatePDFPath(ctx context.Context, id string, pdfPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	p := pdfPath
	d.PDFPath = &p
	return nil
}

type memSigners struct {
	mu   sync.Mutex
	byID map[string]*models.Signer
}

func newMemSigners() *memSigners { return &memSigners{byID: map[string]*models.Signer{}} }

func (m *memSigners) Create(ctx context.Context, s *models.Signer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSigners) FindByToken(ctx context.Context, token string) (*models.Signer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.InviteToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memSigners) ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.Signer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Signer
	for _, s := range m.byID {
		if s.EnvelopeID == envelopeID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *memSigners) MarkSigned(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || s.HasSigned {
		return false, nil
	}
	s.HasSigned = true
	return true, nil
}

type memFields struct {
	mu     sync.Mutex
	fields []*models.Field
}

func (m *memFields) Create(ctx context.Context, f *models.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.fields = append(m.fields, &cp)
	return nil
}

func (m *memFields) FindForSigner(ctx context.Context, documentID, signerID string) (*models.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.fields {
		if f.DocumentID == documentID && f.SignerID == signerID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

type memSignatures struct {
	mu         sync.Mutex
	signatures []*models.Signature
	records    []*models.CryptoRecord
}

func (m *memSignatures) Create(ctx context.Context, s *models.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.signatures = append(m.signatures, &cp)
	return nil
}

func (m *memSignatures) ListByDocument(ctx context.Context, documentID string) ([]*models.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Signature
	for _, s := range m.signatures {
		if s.DocumentID == documentID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSignatures) AttachCryptoRecord(ctx context.Context, r *models.CryptoRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.records = append(m.records, &cp)
	return nil
}

type memAudit struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

func (m *memAudit) Append(ctx context.Context, e *models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	// Mirrors the payload column's NOT NULL default.
	if len(cp.Payload) == 0 {
		cp.Payload = []byte("{}")
	}
	m.events = append(m.events, &cp)
	return nil
}

func (m *memAudit) ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AuditEvent
	for _, e := range m.events {
		if e.EnvelopeID == envelopeID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// byType returns the envelope's events of one type.
func (m *memAudit) byType(envelopeID, eventType string) []*models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AuditEvent
	for _, e := range m.events {
		if e.EnvelopeID == envelopeID && e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type memNotifications struct {
	mu            sync.Mutex
	notifications []*models.Notification
}

func (m *memNotifications) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications = append(m.notifications, &cp)
	return nil
}

func (m *memNotifications) ListByEnvelope(ctx context.Context, envelopeID string) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.EnvelopeID != nil && *n.EnvelopeID == envelopeID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- fake repository manager ---

type fakeRepoManager struct {
	envelopes     *memEnvelopes
	documents     *memDocuments
	signers       *memSigners
	fields        *memFields
	signatures    *memSignatures
	audit         *memAudit
	notifications *memNotifications
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		envelopes:     newMemEnvelopes(),
		documents:     newMemDocuments(),
		signers:       newMemSigners(),
		fields:        &memFields{},
		signatures:    &memSignatures{},
		audit:         &memAudit{},
		notifications: &memNotifications{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (m *fakeRepoManager) Envelopes(db dbx.DBTX) envelopesrepo.Repository { return m.envelopes }
func (m *fakeRepoManager) Documents(db dbx.DBTX) documentsrepo.Repository { return m.documents }
func (m *fakeRepoManager) Signers(db dbx.DBTX) signersrepo.Repository     { return m.signers }
func (m *fakeRepoManager) Fields(db dbx.DBTX) fieldsrepo.Repository       { return m.fields }
func (m *fakeRepoManager) Signatures(db dbx.DBTX) signaturesrepo.Repository {
	return m.signatures
}
func (m *fakeRepoManager) Audit(db dbx.DBTX) auditrepo.Repository { return m.audit }
func (m *fakeRepoManager) Notifications(db dbx.DBTX) notificationsrepo.Repository {
	return m.notifications
}

// --- fake collaborators ---

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.EmailRequest
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, req mailer.EmailRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, req)
	return nil
}
