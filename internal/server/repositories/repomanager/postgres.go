package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/signvault/internal/dbx"
	"github.com/dmitrijs2005/signvault/internal/server/migrations"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/audit"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/envelopes"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/fields"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/signvault/internal/server/repositories/signers"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Envelopes(db dbx.DBTX) envelopes.Repository {
	return envelopes.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Documents(db dbx.DBTX) documents.Repository {
	return documents.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Signers(db dbx.DBTX) signers.Repository {
	return signers.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Fields(db dbx.DBTX) fields.Repository {
	return fields.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Signatures(db dbx.DBTX) signatures.Repository {
	return signatures.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return audit.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Notifications(db dbx.DBTX) notifications.Repository {
	return notifications.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
