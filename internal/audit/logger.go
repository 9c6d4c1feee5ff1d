package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Entry represents a structured audit event.
type Entry struct {
	AccountID *uuid.UUID
	Action    string
	Detail    map[string]any
	IPAddress string
	UserAgent string
}

// Logger writes audit entries into the database. A nil pool disables
// persistence, which tests rely on.
type Logger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New constructs a Logger.
func New(pool *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{pool: pool, logger: logger}
}

// Record persists an audit entry, logging failures but not interrupting flows.
func (l *Logger) Record(ctx context.Context, entry Entry) {
	if entry.Action == "" || l.pool == nil {
		return
	}

	const query = `
		INSERT INTO audit_log (account_id, action, detail, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := l.pool.Exec(ctx, query,
		entry.AccountID, entry.Action, entry.Detail, entry.IPAddress, entry.UserAgent,
	); err != nil {
		l.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
