package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/halcyard/botfarm/internal/bot"
)

// AddSchedule inserts a schedule rule for an agent.
func (s *Store) AddSchedule(ctx context.Context, r *bot.ScheduleRule) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO agent_schedules (id, agent_id, weekday, start_min, end_min, timezone, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.AgentID, r.Weekday, r.StartMin, r.EndMin, r.Timezone, r.Active)
	if err != nil {
		return fmt.Errorf("add schedule for %s: %w", r.AgentID, err)
	}
	return nil
}

// SchedulesFor returns all schedule rules for an agent.
func (s *Store) SchedulesFor(ctx context.Context, agentID string) ([]bot.ScheduleRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, agent_id, weekday, start_min, end_min, timezone, active
		FROM agent_schedules WHERE agent_id = $1`, agentID)
	if err != nil {
		return nil, fmt.Errorf("query schedules for %s: %w", agentID, err)
	}
	defer rows.Close()

	var rules []bot.ScheduleRule
	for rows.Next() {
		var r bot.ScheduleRule
		if err := rows.Scan(&r.ID, &r.AgentID, &r.Weekday, &r.StartMin, &r.EndMin, &r.Timezone, &r.Active); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteSchedule removes one schedule rule.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM agent_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	return nil
}
