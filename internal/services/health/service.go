package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	db       Pinger
	provider string
}

// NewService constructs a health service. db may be nil when repositories are in memory.
func NewService(db *sql.DB, provider string) *Service {
	s := &Service{provider: provider}
	if db != nil {
		s.db = db
	}
	return s
}

// Status reports liveness plus the state of the database and the configured LLM provider.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	out := map[string]any{"ok": true, "llmProvider": s.provider}
	if s.db == nil {
		out["database"] = "memory"
		return out, true
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		out["ok"] = false
		out["database"] = "down"
		return out, false
	}
	out["database"] = "up"
	return out, true
}
