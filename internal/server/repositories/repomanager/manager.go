// Package repomanager wires entity repositories to a shared DB handle and
// owns schema migrations. Services ask the manager for repositories bound to
// either the pool or an open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/audit"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/envelopes"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/fields"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/signers"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Envelopes(db dbx.DBTX) envelopes.Repository
	Documents(db dbx.DBTX) documents.Repository
	Signers(db dbx.DBTX) signers.Repository
	Fields(db dbx.DBTX) fields.Repository
	Signatures(db dbx.DBTX) signatures.Repository
	Audit(db dbx.DBTX) audit.Repository
	Notifications(db dbx.DBTX) notifications.Repository
}
