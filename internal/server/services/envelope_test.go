package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/signvault/internal/common"
	"github.com/dmitrijs2005/signvault/internal/server/config"
	"github.com/dmitrijs2005/signvault/internal/server/models"
	"github.com/dmitrijs2005/signvault/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnvelopeService(t *testing.T, rm *fakeRepoManager, mail *fakeMailer) (*EnvelopeService, func()) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	mock.MatchExpectationsInOrder(false)
	// Transactions are opened against sqlmock; allow plenty of them.
	expectTx(mock, 16)

	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		LinkBaseURL: "http://localhost/sign",
		EnvelopeTTL: 72 * time.Hour,
	}
	s := NewEnvelopeService(db, rm, store, mail, discardLogger(), cfg)
	return s, func() { db.Close() }
}

func draftRequest() CreateEnvelopeRequest {
	return CreateEnvelopeRequest{
		CreatorID: "creator-1",
		Subject:   "NDA",
		Message:   "please sign",
		Documents: []DocumentUpload{{Filename: "nda.pdf", Content: strings.NewReader("%PDF-1.4")}},
		Signers: []SignerInput{
			{Name: "Alice", Email: "alice@example.com", Order: 1},
			{Name: "Bob", Email: "bob@example.com", Order: 2},
		},
		Fields: []FieldInput{
			{DocumentIndex: 0, SignerIndex: 0, FieldType: "signature", Page: 1, X: 100, Y: 200, Width: 400, Height: 100, Required: true},
		},
	}
}

func TestCreateEnvelope_Success(t *testing.T) {
	rm := newFakeRepoManager()
	s, closeDB := newEnvelopeService(t, rm, &fakeMailer{})
	defer closeDB()

	env, err := s.CreateEnvelope(context.Background(), draftRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, env.Status)
	require.NotNil(t, env.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), *env.ExpiresAt, time.Minute)

	docs, err := rm.documents.ListByEnvelope(context.Background(), env.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Nil(t, docs[0].PDFPath)
	// The uploaded bytes must be on disk.
	b, err := os.ReadFile(docs[0].OriginalPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))

	sgnrs, err := rm.signers.ListByEnvelope(context.Background(), env.ID)
	require.NoError(t, err)
	require.Len(t, sgnrs, 2)
	assert.NotEmpty(t, sgnrs[0].InviteToken)
	assert.NotEqual(t, sgnrs[0].InviteToken, sgnrs[1].InviteToken)
	assert.False(t, sgnrs[0].HasSigned)

	field, err := rm.fields.FindForSigner(context.Background(), docs[0].ID, sgnrs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, field.Width)
}

func TestCreateEnvelope_Validation(t *testing.T) {
	rm := newFakeRepoManager()
	s, closeDB := newEnvelopeService(t, rm, &fakeMailer{})
	defer closeDB()

	req := draftRequest()
	req.Documents = nil
	_, err := s.CreateEnvelope(context.Background(), req)
	assert.Error(t, err)

	req = draftRequest()
	req.Signers = nil
	_, err = s.CreateEnvelope(context.Background(), req)
	assert.Error(t, err)

	req = draftRequest()
	req.Fields[0].SignerIndex = 7
	_, err = s.CreateEnvelope(context.Background(), req)
	assert.Error(t, err)
}

func TestSendEnvelope_NotifiesSignersOnce(t *testing.T) {
	rm := newFakeRepoManager()
	mail := &fakeMailer{}
	s, closeDB := newEnvelopeService(t, rm, mail)
	defer closeDB()

	env, err := s.CreateEnvelope(context.Background(), draftRequest())
	require.NoError(t, err)

	require.NoError(t, s.SendEnvelope(context.Background(), env.ID))

	stored, err := rm.envelopes.GetByID(context.Background(), env.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, stored.Status)

	require.Len(t, mail.sent, 2)
	sgnrs, _ := rm.signers.ListByEnvelope(context.Background(), env.ID)
	assert.Contains(t, mail.sent[0].Body, sgnrs[0].InviteToken)

	notes, err := rm.notifications.ListByEnvelope(context.Background(), env.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.True(t, notes[0].Success)

	// Exactly one status_changed event for draft->sent.
	events := rm.audit.byType(env.ID, models.EventStatusChanged)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"from":"draft","to":"sent"}`, string(events[0].Payload))
}

func TestSendEnvelope_ResendIsNoOp(t *testing.T) {
	rm := newFakeRepoManager()
	mail := &fakeMailer{}
	s, closeDB := newEnvelopeService(t, rm, mail)
	defer closeDB()

	env, err := s.CreateEnvelope(context.Background(), draftRequest())
	require.NoError(t, err)

	require.NoError(t, s.SendEnvelope(context.Background(), env.ID))
	require.NoError(t, s.SendEnvelope(context.Background(), env.ID))

	// A repeated send neither re-delivers invites nor records another
	// transition or notification row.
	assert.Len(t, mail.sent, 2)
	assert.Len(t, rm.audit.byType(env.ID, models.EventStatusChanged), 1)
	assert.Len(t, rm.notifications.notifications, 2)
}

func TestSendEnvelope_DeliveryFailureDoesNotAbort(t *testing.T) {
	rm := newFakeRepoManager()
	mail := &fakeMailer{err: errors.New("relay down")}
	s, closeDB := newEnvelopeService(t, rm, mail)
	defer closeDB()

	env, err := s.CreateEnvelope(context.Background(), draftRequest())
	require.NoError(t, err)

	require.NoError(t, s.SendEnvelope(context.Background(), env.ID))

	stored, _ := rm.envelopes.GetByID(context.Background(), env.ID)
	assert.Equal(t, models.StatusSent, stored.Status)

	notes, _ := rm.notifications.ListByEnvelope(context.Background(), env.ID)
	require.Len(t, notes, 2)
	assert.False(t, notes[0].Success)
	assert.False(t, notes[1].Success)
}

func TestVoidEnvelope(t *testing.T) {
	rm := newFakeRepoManager()
	s, closeDB := newEnvelopeService(t, rm, &fakeMailer{})
	defer closeDB()

	env, err := s.CreateEnvelope(context.Background(), draftRequest())
	require.NoError(t, err)

	require.NoError(t, s.VoidEnvelope(context.Background(), env.ID))
	stored, _ := rm.envelopes.GetByID(context.Background(), env.ID)
	assert.Equal(t, models.StatusVoided, stored.Status)

	// Voided is terminal.
	err = s.VoidEnvelope(context.Background(), env.ID)
	assert.NoError(t, err, "voiding a voided envelope is a no-op")
	assert.Len(t, rm.audit.byType(env.ID, models.EventStatusChanged), 1)
}

func TestGetEnvelope_Unknown(t *testing.T) {
	rm := newFakeRepoManager()
	s, closeDB := newEnvelopeService(t, rm, &fakeMailer{})
	defer closeDB()

	_, err := s.GetEnvelope(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetEnvelope_Details(t *testing.T) {
	rm := newFakeRepoManager()
	s, closeDB := newEnvelopeService(t, rm, &fakeMailer{})
	defer closeDB()

	env, err := s.CreateEnvelope(context.Background(), draftRequest())
	require.NoError(t, err)

	details, err := s.GetEnvelope(context.Background(), env.ID)
	require.NoError(t, err)
	assert.Equal(t, env.ID, details.Envelope.ID)
	assert.Len(t, details.Documents, 1)
	assert.Len(t, details.Signers, 2)
}

func TestListEnvelopes(t *testing.T) {
	rm := newFakeRepoManager()
	s, closeDB := newEnvelopeService(t, rm, &fakeMailer{})
	defer closeDB()

	_, err := s.CreateEnvelope(context.Background(), draftRequest())
	require.NoError(t, err)

	envs, err := s.ListEnvelopes(context.Background(), "creator-1")
	require.NoError(t, err)
	assert.Len(t, envs, 1)

	envs, err = s.ListEnvelopes(context.Background(), "someone-else")
	require.NoError(t, err)
	assert.Empty(t, envs)
}
