package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/halcyard/botfarm/internal/bot"
)

// RecentForAgent returns the newest memory entries for one agent.
// Implements dedup.MemoryStore.
func (s *Store) RecentForAgent(ctx context.Context, agentID string, limit int) ([]bot.MemoryEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, agent_id, text, hash, keywords, category, pattern, created_at
		FROM agent_memory WHERE agent_id = $1
		ORDER BY created_at DESC LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query memory for %s: %w", agentID, err)
	}
	defer rows.Close()

	var entries []bot.MemoryEntry
	for rows.Next() {
		var m bot.MemoryEntry
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Text, &m.Hash, &m.Keywords,
			&m.Category, &m.Pattern, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		entries = append(entries, m)
	}
	return entries, rows.Err()
}

// Append stores a memory entry and prunes the agent's corpus to the newest
// keep rows. Implements dedup.MemoryStore.
func (s *Store) Append(ctx context.Context, entry *bot.MemoryEntry, keep int) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO agent_memory (id, agent_id, text, hash, keywords, category, pattern, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		entry.ID, entry.AgentID, entry.Text, entry.Hash, entry.Keywords,
		entry.Category, entry.Pattern); err != nil {
		return fmt.Errorf("insert memory entry: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM agent_memory
		WHERE agent_id = $1 AND id NOT IN (
			SELECT id FROM agent_memory WHERE agent_id = $1
			ORDER BY created_at DESC LIMIT $2
		)`, entry.AgentID, keep); err != nil {
		return fmt.Errorf("prune memory: %w", err)
	}
	return tx.Commit(ctx)
}

// RecentGlobal returns the newest texts across all agents, the fallback for
// the community-wide reuse check when redis is empty.
func (s *Store) RecentGlobal(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT text FROM agent_memory ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query global memory: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan memory text: %w", err)
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}
