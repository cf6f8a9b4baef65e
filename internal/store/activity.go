package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/halcyard/botfarm/internal/bot"
)

// LogActivity appends an immutable activity record.
func (s *Store) LogActivity(ctx context.Context, e *bot.ActivityEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO agent_activity (id, agent_id, action, content_id, content_kind, metadata, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		e.ID, e.AgentID, string(e.Action), e.ContentID, e.ContentKind, e.Metadata, e.Success)
	if err != nil {
		return fmt.Errorf("log activity for %s: %w", e.AgentID, err)
	}
	return nil
}

// CountActivitySince counts an agent's successful actions after the given
// time. Feeds the anti-spam cap.
func (s *Store) CountActivitySince(ctx context.Context, agentID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM agent_activity
		WHERE agent_id = $1 AND success = true AND created_at > $2`,
		agentID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count activity for %s: %w", agentID, err)
	}
	return count, nil
}

// RecentActivity returns an agent's newest activity entries.
func (s *Store) RecentActivity(ctx context.Context, agentID string, limit int) ([]*bot.ActivityEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, agent_id, action, content_id, content_kind, metadata, success, created_at
		FROM agent_activity WHERE agent_id = $1
		ORDER BY created_at DESC LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity for %s: %w", agentID, err)
	}
	defer rows.Close()

	var entries []*bot.ActivityEntry
	for rows.Next() {
		var e bot.ActivityEntry
		var action string
		if err := rows.Scan(&e.ID, &e.AgentID, &action, &e.ContentID, &e.ContentKind,
			&e.Metadata, &e.Success, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.Action = bot.Action(action)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
