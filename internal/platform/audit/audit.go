package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Entry struct {
	ID             string                 `json:"id"`
	OrganizationID string                 `json:"organization_id"`
	UserID         string                 `json:"user_id"`
	Action         string                 `json:"action"`
	ResourceType   string                 `json:"resource_type"`
	ResourceID     string                 `json:"resource_id"`
	Metadata       map[string]interface{} `json:"metadata"`
	IPAddress      string                 `json:"ip_address"`
	UserAgent      string                 `json:"user_agent"`
	CreatedAt      int64                  `json:"created_at"`
}

// Logger writes auth-domain audit rows. Inserts are best-effort: a failed
// audit write is logged and never fails the request.
type Logger struct {
	db *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

func (l *Logger) Record(ctx context.Context, entry Entry) {
	entry.ID = "aud_" + uuid.NewString()
	entry.CreatedAt = time.Now().Unix()

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		metadata = []byte("{}")
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, organization_id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.OrganizationID, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, string(metadata), entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	if err != nil {
		log.Warn().Err(err).Str("action", entry.Action).Msg("failed to write audit log")
	}
}
